package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/anthropic"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/jina"
)

// maxSnippet bounds each search result pasted into the grounding context.
const maxSnippet = 600

// AnthropicBackend generates leads with Claude. Claude has no built-in web
// search here, so each batch is grounded with Jina search results for the
// query when a Jina client is configured.
type AnthropicBackend struct {
	client anthropic.Client
	search jina.Client
	model  string
	settings
}

// NewAnthropicBackend creates a backend. search may be nil.
func NewAnthropicBackend(client anthropic.Client, search jina.Client, model string, opts ...BackendOption) *AnthropicBackend {
	b := &AnthropicBackend{client: client, search: search, model: model, settings: defaultSettings()}
	for _, o := range opts {
		o(&b.settings)
	}
	return b
}

// GenerateBatch implements Generator.
func (b *AnthropicBackend) GenerateBatch(ctx context.Context, req Request) (*Batch, error) {
	grounding, searchTokens := b.ground(ctx, req)
	batch, err := generateWith(ctx, b, grounding+BuildPrompt(req, b.excludeCap), b.temperature)
	if batch != nil {
		batch.Usage.SearchTokens += searchTokens
	}
	return batch, err
}

// ground fetches search snippets for the query. Search is best effort: on
// failure the batch is generated from model knowledge alone.
func (b *AnthropicBackend) ground(ctx context.Context, req Request) (string, int) {
	if b.search == nil {
		return "", 0
	}
	q := req.Query
	if req.BatchIndex > 0 {
		q = fmt.Sprintf("%s companies list page %d", req.Query, req.BatchIndex+1)
	}
	resp, err := b.search.Search(ctx, q, jina.WithMaxResults(b.searchLimit))
	if err != nil {
		zap.L().Debug("generate: jina grounding failed", zap.String("query", q), zap.Error(err))
		return "", 0
	}
	if len(resp.Data) == 0 {
		return "", resp.Tokens()
	}

	var sb strings.Builder
	sb.WriteString("WEB SEARCH RESULTS (use these to find real companies):\n")
	for i, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet]
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n%s\n", i+1, r.Title, r.URL, strings.TrimSpace(snippet))
	}
	sb.WriteString("\n")
	return sb.String(), resp.Tokens()
}

// Complete implements Completer.
func (b *AnthropicBackend) Complete(ctx context.Context, p Prompt) (string, cost.Usage, error) {
	temp := p.Temperature
	req := anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		req.System = []anthropic.SystemBlock{{Text: p.System, Cached: true}}
	}

	resp, err := b.client.CreateMessage(ctx, req)
	if err != nil {
		return "", cost.Usage{}, eris.Wrap(err, "generate: anthropic completion")
	}
	resp.Usage.LogUsage(b.model, "generate")

	usage := cost.Usage{
		Provider:     cost.ProviderAnthropic,
		Model:        b.model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		Requests:     1,
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", usage, eris.Wrap(ErrMalformedResponse, "empty reply from anthropic")
	}
	return text, usage, nil
}
