// Package arkesel is a client for the Arkesel SMS gateway (v2 API).
package arkesel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

const defaultBaseURL = "https://sms.arkesel.com/api/v2"

// MaxSenderLength is the longest alphanumeric sender ID carriers accept.
const MaxSenderLength = 11

// Client sends SMS through Arkesel.
type Client interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

// SendRequest is one SMS broadcast. Recipients are international numbers
// without a leading "+".
type SendRequest struct {
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
	Sandbox    bool     `json:"sandbox,omitempty"`
}

// SendResponse is the gateway's reply.
type SendResponse struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    []Recipient `json:"data,omitempty"`
}

// Recipient is the per-number result of a send.
type Recipient struct {
	Recipient string `json:"recipient"`
	ID        string `json:"id"`
}

// OK reports whether the gateway accepted the message.
func (r *SendResponse) OK() bool {
	return r != nil && r.Status == "success"
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

// WithRateLimit caps sends per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Arkesel client authenticated with apiKey.
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

func (c *httpClient) Send(ctx context.Context, sr SendRequest) (*SendResponse, error) {
	if len(sr.Recipients) == 0 {
		return nil, eris.New("arkesel: at least one recipient is required")
	}
	if sr.Sender == "" || len(sr.Sender) > MaxSenderLength {
		return nil, eris.Errorf("arkesel: sender must be 1-%d characters", MaxSenderLength)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "arkesel: rate limit")
		}
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, eris.Wrap(err, "arkesel: marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms/send", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "arkesel: create request")
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "arkesel: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "arkesel: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.HTTPError("arkesel", resp.StatusCode, string(respBody))
	}

	var out SendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "arkesel: unmarshal response")
	}
	if !out.OK() {
		return &out, eris.Errorf("arkesel: send rejected: %s", out.Message)
	}
	return &out, nil
}
