// Package research runs one-shot market research prompts: competitor
// analysis and lookalike company discovery.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/jina"
)

// MaxLookalikes caps the lookalike list.
const MaxLookalikes = 20

// maxPageContext bounds the site text pasted into a research prompt.
const maxPageContext = 4000

// Target describes the analyzed company.
type Target struct {
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Summary  string `json:"summary"`
}

// Competitor is one direct competitor of the target.
type Competitor struct {
	Name        string        `json:"name"`
	Website     string        `json:"website"`
	Description string        `json:"description"`
	Strength    string        `json:"strength"`
	Weakness    string        `json:"weakness"`
	Socials     model.Socials `json:"socials"`
}

// CompetitorAnalysis is the target's profile plus its competitors.
type CompetitorAnalysis struct {
	Target      Target       `json:"target"`
	Competitors []Competitor `json:"competitors"`
	Usage       cost.Usage   `json:"-"`
}

// PageReader fetches a web page as text. jina.Client satisfies it.
type PageReader interface {
	Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error)
}

// Option configures a Researcher.
type Option func(*Researcher)

// WithReader grounds research prompts with the target site's own content.
func WithReader(r PageReader) Option {
	return func(rs *Researcher) {
		rs.reader = r
	}
}

// Researcher runs research prompts through a generation backend.
type Researcher struct {
	llm    generate.Completer
	reader PageReader
}

// New creates a Researcher.
func New(llm generate.Completer, opts ...Option) *Researcher {
	r := &Researcher{llm: llm}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ground reads the target site and returns it as prompt context. Reading
// is best effort: on failure the prompt runs on model knowledge alone.
func (r *Researcher) ground(ctx context.Context, website string) (string, int) {
	if r.reader == nil {
		return "", 0
	}
	target := website
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	resp, err := r.reader.Read(ctx, target)
	if err != nil {
		zap.L().Debug("research: site read failed", zap.String("website", website), zap.Error(err))
		return "", 0
	}
	content := strings.TrimSpace(resp.Data.Content)
	if content == "" {
		return "", resp.Data.Usage.Tokens
	}
	if len(content) > maxPageContext {
		content = content[:maxPageContext]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "WEBSITE CONTENT of %s", target)
	if resp.Data.Title != "" {
		fmt.Fprintf(&sb, " (%s)", resp.Data.Title)
	}
	sb.WriteString(":\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")
	return sb.String(), resp.Data.Usage.Tokens
}

// AnalyzeCompetitors profiles the company behind website and lists 5-8
// direct competitors. Competitors without a name are dropped.
func (r *Researcher) AnalyzeCompetitors(ctx context.Context, website string) (*CompetitorAnalysis, error) {
	website, err := normalizeWebsite(website)
	if err != nil {
		return nil, err
	}

	grounding, readTokens := r.ground(ctx, website)
	text, usage, err := r.llm.Complete(ctx, generate.Prompt{
		System:      "You are a market researcher. Output strictly valid JSON.",
		User:        grounding + competitorPrompt(website),
		Temperature: 0.5,
	})
	usage.SearchTokens += readTokens
	if err != nil {
		return nil, eris.Wrapf(err, "research: analyze competitors of %s", website)
	}

	var out CompetitorAnalysis
	if err := generate.DecodeObject(text, &out); err != nil {
		return nil, eris.Wrapf(err, "research: parse competitor analysis of %s", website)
	}
	kept := out.Competitors[:0]
	for _, c := range out.Competitors {
		if strings.TrimSpace(c.Name) != "" {
			kept = append(kept, c)
		}
	}
	out.Competitors = kept
	out.Usage = usage

	zap.L().Info("research: competitor analysis",
		zap.String("website", website),
		zap.String("target", out.Target.Name),
		zap.Int("competitors", len(out.Competitors)),
	)
	return &out, nil
}

// FindLookalikes returns up to MaxLookalikes companies resembling the one
// behind website, as fresh leads with defaults applied.
func (r *Researcher) FindLookalikes(ctx context.Context, website string) ([]model.Lead, cost.Usage, error) {
	website, err := normalizeWebsite(website)
	if err != nil {
		return nil, cost.Usage{}, err
	}

	grounding, readTokens := r.ground(ctx, website)
	text, usage, err := r.llm.Complete(ctx, generate.Prompt{
		System:      "Output JSON only.",
		User:        grounding + lookalikePrompt(website),
		Temperature: 0.6,
	})
	usage.SearchTokens += readTokens
	if err != nil {
		return nil, usage, eris.Wrapf(err, "research: find lookalikes of %s", website)
	}

	leads, err := generate.ParseCandidates(text)
	if err != nil {
		return nil, usage, eris.Wrapf(err, "research: parse lookalikes of %s", website)
	}
	if len(leads) > MaxLookalikes {
		leads = leads[:MaxLookalikes]
	}
	query := "lookalikes: " + website
	for i := range leads {
		leads[i].Query = query
	}
	return leads, usage, nil
}

func normalizeWebsite(website string) (string, error) {
	w := strings.TrimSpace(website)
	if w == "" {
		return "", eris.New("research: website is required")
	}
	return w, nil
}

func competitorPrompt(website string) string {
	return fmt.Sprintf(`Analyze this company domain: %q.

1. Identify Company Name, Industry, Summary.
2. Search for 5-8 DIRECT COMPETITORS.
3. Return strictly valid JSON.

Structure:
{
  "target": { "name": "...", "industry": "...", "summary": "..." },
  "competitors": [
    {
      "name": "...",
      "website": "...",
      "description": "...",
      "strength": "...",
      "weakness": "...",
      "socials": { "linkedin": "", "twitter": "", "instagram": "", "facebook": "" }
    }
  ]
}`, website)
}

func lookalikePrompt(website string) string {
	return fmt.Sprintf(`Find %d "Lookalike" companies similar to: %q.
Match Revenue Model, Tech Stack, and Customer Base.
Verify they exist with a web search.

Output strictly valid JSON Array of Lead objects.
Structure: [{ "company": "...", "description": "...", "location": "...", "website": "...", "contact": "...", "industry": "...", "employees": "...", "socials": {}, "management": [] }]`,
		MaxLookalikes, website)
}
