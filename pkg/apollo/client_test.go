package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

func TestEnrichOrganization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/organizations/enrich", r.URL.Path)
		assert.Equal(t, "paystack.com", r.URL.Query().Get("domain"))
		assert.Equal(t, "apollo-key", r.Header.Get("X-Api-Key"))

		_, _ = w.Write([]byte(`{"organization":{
			"id":"org1",
			"name":"Paystack",
			"website_url":"http://www.paystack.com",
			"linkedin_url":"http://www.linkedin.com/company/paystack",
			"twitter_url":"https://twitter.com/paystack",
			"industry":"financial services",
			"estimated_num_employees":420,
			"short_description":"Modern online and offline payments for Africa",
			"city":"Lagos",
			"country":"Nigeria"
		}}`))
	}))
	defer srv.Close()

	org, err := NewClient("apollo-key", WithBaseURL(srv.URL)).EnrichOrganization(context.Background(), "paystack.com")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "Paystack", org.Name)
	assert.Equal(t, "financial services", org.Industry)
	assert.Equal(t, 420, org.EstimatedNumEmployees)
	assert.Equal(t, "http://www.linkedin.com/company/paystack", org.LinkedInURL)
	assert.Empty(t, org.FacebookURL)
}

func TestEnrichOrganization_NoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	org, err := NewClient("k", WithBaseURL(srv.URL)).EnrichOrganization(context.Background(), "unknown.example")
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestEnrichOrganization_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	org, err := NewClient("k", WithBaseURL(srv.URL)).EnrichOrganization(context.Background(), "gone.example")
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestEnrichOrganization_EmptyDomain(t *testing.T) {
	_, err := NewClient("k").EnrichOrganization(context.Background(), "")
	assert.ErrorContains(t, err, "domain is required")
}

func TestEnrichOrganization_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantRate    bool
		wantRetry   bool
		wantMessage string
	}{
		{"rate_limited", http.StatusTooManyRequests, true, true, "unexpected status 429"},
		{"bad_gateway", http.StatusBadGateway, false, true, "unexpected status 502"},
		{"unauthorized", http.StatusUnauthorized, false, false, "unexpected status 401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).EnrichOrganization(context.Background(), "x.com")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMessage)
			assert.Equal(t, tt.wantRate, resilience.IsRateLimited(err))
			assert.Equal(t, tt.wantRetry, resilience.IsTransient(err))
		})
	}
}

func TestSearchPeople(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mixed_people/search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hubtel.com", body["q_organization_domains"])
		assert.EqualValues(t, 5, body["per_page"])
		assert.EqualValues(t, 1, body["page"])

		_, _ = w.Write([]byte(`{"people":[
			{"id":"p1","name":"Alex Bram","title":"CEO","linkedin_url":"https://linkedin.com/in/abram"},
			{"id":"p2","name":"Kojo Mensah","title":"CTO"}
		]}`))
	}))
	defer srv.Close()

	people, err := NewClient("k", WithBaseURL(srv.URL)).SearchPeople(context.Background(), PeopleSearchRequest{
		Domain: "hubtel.com",
		Titles: []string{"ceo", "cto"},
	})
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "CEO", people[0].Title)
	assert.Empty(t, people[1].LinkedInURL)
}

func TestSearchPeople_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"people":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("k", WithBaseURL(srv.URL)).SearchPeople(ctx, PeopleSearchRequest{Domain: "a.com"})
	require.Error(t, err)
}
