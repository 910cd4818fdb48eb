package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/perplexity"
)

// PerplexityBackend generates leads with Perplexity's sonar models, which
// search the live web before answering.
type PerplexityBackend struct {
	client perplexity.Client
	model  string
	settings
}

// NewPerplexityBackend creates a backend. An empty model uses the client's
// default.
func NewPerplexityBackend(client perplexity.Client, model string, opts ...BackendOption) *PerplexityBackend {
	b := &PerplexityBackend{client: client, model: model, settings: defaultSettings()}
	for _, o := range opts {
		o(&b.settings)
	}
	return b
}

// GenerateBatch implements Generator.
func (b *PerplexityBackend) GenerateBatch(ctx context.Context, req Request) (*Batch, error) {
	return generateWith(ctx, b, BuildPrompt(req, b.excludeCap), b.temperature)
}

// Complete implements Completer.
func (b *PerplexityBackend) Complete(ctx context.Context, p Prompt) (string, cost.Usage, error) {
	temp := p.Temperature
	maxTokens := int(b.maxTokens)
	var msgs []perplexity.Message
	if p.System != "" {
		msgs = append(msgs, perplexity.Message{Role: "system", Content: p.System})
	}
	msgs = append(msgs, perplexity.Message{Role: "user", Content: p.User})

	resp, err := b.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       b.model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", cost.Usage{}, eris.Wrap(err, "generate: perplexity completion")
	}

	usage := cost.Usage{
		Provider:     cost.ProviderPerplexity,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Requests:     1,
	}
	text := resp.Content()
	if strings.TrimSpace(text) == "" {
		return "", usage, eris.Wrap(ErrMalformedResponse, "empty reply from perplexity")
	}
	return text, usage, nil
}
