// Package apollo is a client for the Apollo.io organization and people APIs.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

const defaultBaseURL = "https://api.apollo.io/v1"

// Client performs Apollo.io API operations.
type Client interface {
	EnrichOrganization(ctx context.Context, domain string) (*Organization, error)
	SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error)
}

// Organization is the subset of Apollo's organization record lead
// enrichment reads.
type Organization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	WebsiteURL            string `json:"website_url"`
	PrimaryDomain         string `json:"primary_domain"`
	LinkedInURL           string `json:"linkedin_url"`
	TwitterURL            string `json:"twitter_url"`
	FacebookURL           string `json:"facebook_url"`
	Industry              string `json:"industry"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
	ShortDescription      string `json:"short_description"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	Country               string `json:"country"`
	Phone                 string `json:"phone"`
}

// Person is a contact returned by people search.
type Person struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url"`
}

// PeopleSearchRequest narrows a people search to one company domain.
type PeopleSearchRequest struct {
	Domain  string   `json:"-"`
	Titles  []string `json:"person_titles,omitempty"`
	PerPage int      `json:"per_page,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apollo.io API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type enrichResponse struct {
	Organization *Organization `json:"organization"`
}

// EnrichOrganization looks up a company by web domain. It returns nil and no
// error when Apollo has no record for the domain.
func (c *httpClient) EnrichOrganization(ctx context.Context, domain string) (*Organization, error) {
	if domain == "" {
		return nil, eris.New("apollo: domain is required")
	}
	u := c.baseURL + "/organizations/enrich?" + url.Values{"domain": {domain}}.Encode()

	var out enrichResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, eris.Wrapf(err, "apollo: enrich organization %s", domain)
	}
	return out.Organization, nil
}

type peopleSearchBody struct {
	PeopleSearchRequest
	Domains string `json:"q_organization_domains"`
	Page    int    `json:"page"`
}

type peopleSearchResponse struct {
	People []Person `json:"people"`
}

// SearchPeople returns the first page of contacts at a company domain.
func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error) {
	if req.Domain == "" {
		return nil, eris.New("apollo: domain is required")
	}
	if req.PerPage <= 0 {
		req.PerPage = 5
	}
	body, err := json.Marshal(peopleSearchBody{PeopleSearchRequest: req, Domains: req.Domain, Page: 1})
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal people search")
	}

	var out peopleSearchResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/mixed_people/search", body, &out); err != nil {
		return nil, eris.Wrapf(err, "apollo: search people at %s", req.Domain)
	}
	return out.People, nil
}

func (c *httpClient) do(ctx context.Context, method, u string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.HTTPError("apollo", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
