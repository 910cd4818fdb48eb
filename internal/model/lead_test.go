package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Acme Corp", "acme corp"},
		{"trim", "  Acme Corp  ", "acme corp"},
		{"inner_whitespace", "Acme   \t Corp", "acme corp"},
		{"fullwidth", "ＡＣＭＥ", "acme"},
		{"german_sharp_s", "Straße GmbH", "strasse gmbh"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCompany(tt.in))
		})
	}
}

func TestLead_ApplyDefaults(t *testing.T) {
	l := Lead{Company: " Stripe ", Location: "Dublin, Ireland"}
	l.ApplyDefaults()

	assert.Equal(t, "Stripe", l.Company)
	assert.Equal(t, DefaultConfidence, l.Confidence)
	assert.Equal(t, DefaultIndustry, l.Industry)
	assert.Equal(t, DefaultContact, l.Contact)
	assert.Equal(t, LeadStatusNew, l.Status)
	assert.NotNil(t, l.Management)
	assert.Contains(t, l.GoogleMapsURL, "query=Stripe+Dublin%2C+Ireland")
	assert.False(t, l.HasContact())
}

func TestLead_ApplyDefaults_KeepsValues(t *testing.T) {
	l := Lead{
		Company:       "Monzo",
		Confidence:    140,
		Industry:      "Finance",
		Contact:       "hello@monzo.com",
		GoogleMapsURL: "https://maps.example/monzo",
		Status:        LeadStatusWon,
	}
	l.ApplyDefaults()

	assert.Equal(t, 100, l.Confidence)
	assert.Equal(t, "Finance", l.Industry)
	assert.Equal(t, "https://maps.example/monzo", l.GoogleMapsURL)
	assert.Equal(t, LeadStatusWon, l.Status)
	assert.True(t, l.HasContact())
}

func TestParseLeadStatus(t *testing.T) {
	st, err := ParseLeadStatus(" Qualified ")
	require.NoError(t, err)
	assert.Equal(t, LeadStatusQualified, st)

	_, err = ParseLeadStatus("archived")
	assert.Error(t, err)
}

func TestConstraints_AppendTo(t *testing.T) {
	c := Constraints{Location: "Accra", Industry: "Finance", Size: "11-50"}
	assert.Equal(t, "fintech startups in Accra (industry: Finance) (company size: 11-50)", c.AppendTo(" fintech startups "))
	assert.Equal(t, "fintech", Constraints{}.AppendTo("fintech"))
}

func TestLeadFilter_Match(t *testing.T) {
	l := Lead{Location: "Lagos, Nigeria", Industry: "Financial Services", Employees: "51-200", Status: LeadStatusNew, Score: 70}

	assert.True(t, LeadFilter{}.Match(l))
	assert.True(t, LeadFilter{Location: "lagos", Industry: "financial"}.Match(l))
	assert.False(t, LeadFilter{Location: "Accra"}.Match(l))
	assert.False(t, LeadFilter{Status: LeadStatusWon}.Match(l))
	assert.False(t, LeadFilter{MinScore: 80}.Match(l))
	assert.True(t, LeadFilter{Employees: "51"}.Match(l))
}

func TestNormalizeCompany_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "kofi dental ltd", NormalizeCompany("  KOFI   Dental LTD "))
			}
		}()
	}
	wg.Wait()
}
