package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// DefaultProduct is the offer named in drafts when none is configured.
const DefaultProduct = "LeadGenius"

const (
	emailTemperature    = 0.7
	templateTemperature = 0.8
)

// Email is a drafted cold email.
type Email struct {
	Subject string     `json:"subject"`
	Body    string     `json:"body"`
	Usage   cost.Usage `json:"usage"`
}

// Composer drafts outreach copy with the generation backend.
type Composer struct {
	llm     generate.Completer
	product string
}

// NewComposer creates a Composer pitching product.
func NewComposer(llm generate.Completer, product string) *Composer {
	if strings.TrimSpace(product) == "" {
		product = DefaultProduct
	}
	return &Composer{llm: llm, product: product}
}

// ComposeEmail drafts a cold email to the lead's first manager. An empty
// brandVoice uses a professional default tone.
func (c *Composer) ComposeEmail(ctx context.Context, l model.Lead, brandVoice string) (*Email, error) {
	if strings.TrimSpace(l.Company) == "" {
		return nil, eris.New("outreach: lead has no company")
	}
	text, usage, err := c.llm.Complete(ctx, generate.Prompt{
		System:      "You write concise B2B cold outreach emails.",
		User:        c.emailPrompt(l, brandVoice),
		Temperature: emailTemperature,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "outreach: compose email for %q", l.Company)
	}
	if strings.TrimSpace(text) == "" {
		return nil, eris.New("outreach: empty email draft")
	}
	subject, body := splitEmail(text)
	return &Email{Subject: subject, Body: body, Usage: usage}, nil
}

func (c *Composer) emailPrompt(l model.Lead, brandVoice string) string {
	name, role := "Hiring Manager", "Decision Maker"
	if len(l.Management) > 0 {
		if n := strings.TrimSpace(l.Management[0].Name); n != "" {
			name = n
		}
		if r := strings.TrimSpace(l.Management[0].Role); r != "" {
			role = r
		}
	}
	tone := "Tone: Professional, concise, value-driven, and not spammy."
	if v := strings.TrimSpace(brandVoice); v != "" {
		tone = "BRAND VOICE: " + v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a high-converting cold outreach email to %s.\n\n", l.Company)
	fmt.Fprintf(&b, "Target: %s (%s)\n", name, role)
	fmt.Fprintf(&b, "Industry: %s\n", l.Industry)
	fmt.Fprintf(&b, "Location: %s\n", l.Location)
	if l.Description != "" {
		fmt.Fprintf(&b, "About them: %s\n", l.Description)
	}
	fmt.Fprintf(&b, "\nContext: I am offering a B2B lead generation service called %q.\n", c.product)
	b.WriteString("Goal: Book a 15-minute demo.\n")
	b.WriteString(tone + "\n\n")
	b.WriteString("Start with a line \"Subject: <subject>\", then a blank line, then the email body.")
	return b.String()
}

// splitEmail separates a leading "Subject:" line from the body. Drafts
// without one come back with an empty subject.
func splitEmail(text string) (subject, body string) {
	text = strings.TrimSpace(generate.StripFences(text))
	first, rest, _ := strings.Cut(text, "\n")
	trimmed := strings.TrimSpace(strings.Trim(first, "*#"))
	if len(trimmed) >= 8 && strings.EqualFold(trimmed[:8], "subject:") {
		subject = strings.TrimSpace(strings.Trim(trimmed[8:], "*"))
		return subject, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "Body:"))
	}
	return "", text
}

// Channel is a short-message delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// ComposeTemplate drafts a reusable message template with {{name}} and
// {{company}} placeholders for the channel.
func (c *Composer) ComposeTemplate(ctx context.Context, ch Channel, brandVoice string) (string, error) {
	var prompt, tone string
	switch ch {
	case ChannelSMS:
		tone = "Tone: Professional but urgent."
		prompt = "Write a hyper-short SMS (under 160 characters) for B2B cold outreach.\nVariables: {{name}}, {{company}}.\n"
	case ChannelWhatsApp:
		tone = "Tone: Friendly, direct, not salesy."
		prompt = "Write a short, casual, and professional WhatsApp message template for B2B cold outreach.\n" +
			"Keep it under 30 words.\n" +
			"Use variables: {{name}} for person's name, {{company}} for company name, {{industry}} for industry.\n"
	default:
		return "", eris.Errorf("outreach: unknown channel %q", ch)
	}
	if v := strings.TrimSpace(brandVoice); v != "" {
		tone = "Tone: " + v
	}
	prompt += tone + fmt.Sprintf("\nContext: Selling %s lead generation services.\nReply with the template text only.", c.product)

	text, _, err := c.llm.Complete(ctx, generate.Prompt{User: prompt, Temperature: templateTemperature})
	if err != nil {
		return "", eris.Wrapf(err, "outreach: compose %s template", ch)
	}
	text = strings.Trim(strings.TrimSpace(generate.StripFences(text)), `"`)
	if text == "" {
		return "", eris.New("outreach: empty template draft")
	}
	return text, nil
}
