package outreach

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/arkesel"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"054 123 4567", "233541234567"},
		{"+233 (54) 123-4567", "233541234567"},
		{"0541234567", "233541234567"},
		{"05412345678", "05412345678"},
		{"1 415 555 0100", "14155550100"},
		{"none", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPhoneNumber(tt.in))
		})
	}
}

func TestLeadPhone(t *testing.T) {
	assert.Equal(t, "233201234567", LeadPhone(model.Lead{
		Socials: model.Socials{WhatsApp: "+233 20 123 4567"},
		Contact: "0300000000",
	}))
	assert.Equal(t, "233301234567", LeadPhone(model.Lead{Contact: "030 123 4567 | info@x.example"}))
	assert.Equal(t, "", LeadPhone(model.Lead{Contact: "info@x.example"}))
	assert.Equal(t, "", LeadPhone(model.Lead{Contact: model.DefaultContact}))
}

func TestLeadPhone_SkipsShortDigitRuns(t *testing.T) {
	tests := []struct {
		contact string
		want    string
	}{
		{"hello@studio54.io, +233 24 123 4567", "233241234567"},
		{"Suite 200, Accra - 024 123 4567", "233241234567"},
		{"Plot 12, Ring Road", ""},
	}
	for _, tt := range tests {
		t.Run(tt.contact, func(t *testing.T) {
			assert.Equal(t, tt.want, LeadPhone(model.Lead{Contact: tt.contact}))
		})
	}
}

func TestRender(t *testing.T) {
	l := model.Lead{
		Company:    "Kofi Dental",
		Industry:   "Healthcare",
		Management: []model.Manager{{Name: "Ama Mensah"}},
	}
	assert.Equal(t, "Hi Ama Mensah, Kofi Dental in Healthcare", Render("Hi {{name}}, {{company}} in {{industry}}", l))
	assert.Equal(t, "Hi there, your industry", Render("Hi {{name}}, {{industry}}", model.Lead{Industry: model.DefaultIndustry}))
}

func TestWhatsAppLink(t *testing.T) {
	assert.Equal(t, "https://wa.me/233541234567?text=Hi%20Ama%20%26%20co", WhatsAppLink("054 123 4567", "Hi Ama & co"))
	assert.Equal(t, "https://wa.me/14155550100", WhatsAppLink("+1 415 555 0100", ""))
}

func TestWhatsAppBroadcast(t *testing.T) {
	items := WhatsAppBroadcast([]model.Lead{
		{ID: "a", Company: "A", Contact: "0541234567"},
		{ID: "b", Company: "B"},
	}, "Hi {{name}} at {{company}}")
	require.Len(t, items, 2)
	assert.Equal(t, "Hi there at A", items[0].Message)
	assert.Contains(t, items[0].Link, "https://wa.me/233541234567?text=")
	assert.Empty(t, items[1].Link)
}

type fakeSMS struct {
	sent []arkesel.SendRequest
	fail map[string]error
}

func (f *fakeSMS) Send(_ context.Context, req arkesel.SendRequest) (*arkesel.SendResponse, error) {
	f.sent = append(f.sent, req)
	if err := f.fail[req.Recipients[0]]; err != nil {
		return nil, err
	}
	return &arkesel.SendResponse{Status: "success"}, nil
}

func testCampaign(c arkesel.Client) *SMSCampaign {
	s := NewSMSCampaign(c, time.Millisecond)
	s.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestSMSCampaign_Send(t *testing.T) {
	client := &fakeSMS{fail: map[string]error{
		"233209999999": errors.New("arkesel: send rejected: invalid number"),
	}}
	leads := []model.Lead{
		{ID: "1", Company: "Kofi Dental", Contact: "0201234567", Management: []model.Manager{{Name: "Ama"}}},
		{ID: "2", Company: "No Phone", Contact: model.DefaultContact},
		{ID: "3", Company: "Bad Number", Contact: "0209999999"},
	}

	report, err := testCampaign(client).Send(context.Background(), leads, "", "Hi {{name}}, saw {{company}}")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Results, 3)
	assert.Equal(t, SMSDelivered, report.Results[0].Status)
	assert.Equal(t, "Hi Ama, saw Kofi Dental", report.Results[0].Message)
	assert.Equal(t, SMSSkipped, report.Results[1].Status)
	assert.Equal(t, SMSFailed, report.Results[2].Status)
	assert.Contains(t, report.Results[2].Error, "invalid number")

	require.Len(t, client.sent, 2)
	assert.Equal(t, DefaultSender, client.sent[0].Sender)
	assert.Equal(t, []string{"233201234567"}, client.sent[0].Recipients)
}

func TestSMSCampaign_RetriesTransient(t *testing.T) {
	calls := 0
	client := &funcSMS{fn: func() error {
		calls++
		if calls == 1 {
			return resilience.NewTransientError(errors.New("arkesel: 503"), 503)
		}
		return nil
	}}
	report, err := testCampaign(client).Send(context.Background(),
		[]model.Lead{{ID: "1", Company: "A", Contact: "0201234567"}}, "Shop", "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 2, calls)
}

func TestSMSCampaign_SenderTooLong(t *testing.T) {
	_, err := testCampaign(&fakeSMS{}).Send(context.Background(), nil, "ABCDEFGHIJKL", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longer than 11")
}

func TestSMSCampaign_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := testCampaign(&fakeSMS{}).Send(ctx,
		[]model.Lead{{ID: "1", Company: "A", Contact: "0201234567"}}, "", "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}

type funcSMS struct{ fn func() error }

func (f *funcSMS) Send(context.Context, arkesel.SendRequest) (*arkesel.SendResponse, error) {
	if err := f.fn(); err != nil {
		return nil, err
	}
	return &arkesel.SendResponse{Status: "success"}, nil
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt generate.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, p generate.Prompt) (string, cost.Usage, error) {
	f.prompt = p
	return f.reply, cost.Usage{Provider: cost.ProviderAnthropic, InputTokens: 10, OutputTokens: 20, Requests: 1}, f.err
}

func TestComposeEmail(t *testing.T) {
	llm := &fakeCompleter{reply: "**Subject: More patients for Kofi Dental**\n\nBody: Hi Ama,\nLet's talk."}
	c := NewComposer(llm, "")

	email, err := c.ComposeEmail(context.Background(), model.Lead{
		Company:    "Kofi Dental",
		Industry:   "Healthcare",
		Location:   "Accra",
		Management: []model.Manager{{Name: "Ama Mensah", Role: "CEO"}},
	}, "Warm and witty")
	require.NoError(t, err)

	assert.Equal(t, "More patients for Kofi Dental", email.Subject)
	assert.Equal(t, "Hi Ama,\nLet's talk.", email.Body)
	assert.Equal(t, 20, email.Usage.OutputTokens)
	assert.Contains(t, llm.prompt.User, "Target: Ama Mensah (CEO)")
	assert.Contains(t, llm.prompt.User, "BRAND VOICE: Warm and witty")
	assert.Contains(t, llm.prompt.User, `"LeadGenius"`)
}

func TestComposeEmail_Defaults(t *testing.T) {
	llm := &fakeCompleter{reply: "Hello there"}
	email, err := NewComposer(llm, "Acme CRM").ComposeEmail(context.Background(), model.Lead{Company: "X"}, "")
	require.NoError(t, err)
	assert.Empty(t, email.Subject)
	assert.Equal(t, "Hello there", email.Body)
	assert.Contains(t, llm.prompt.User, "Target: Hiring Manager (Decision Maker)")
	assert.Contains(t, llm.prompt.User, "Tone: Professional, concise")
	assert.Contains(t, llm.prompt.User, `"Acme CRM"`)
}

func TestComposeEmail_Errors(t *testing.T) {
	_, err := NewComposer(&fakeCompleter{}, "").ComposeEmail(context.Background(), model.Lead{}, "")
	require.Error(t, err)

	_, err = NewComposer(&fakeCompleter{err: generate.ErrQuotaExhausted}, "").ComposeEmail(context.Background(), model.Lead{Company: "X"}, "")
	require.ErrorIs(t, err, generate.ErrQuotaExhausted)

	_, err = NewComposer(&fakeCompleter{reply: "  "}, "").ComposeEmail(context.Background(), model.Lead{Company: "X"}, "")
	require.Error(t, err)
}

func TestComposeTemplate(t *testing.T) {
	llm := &fakeCompleter{reply: "\"Hi {{name}}, {{company}} could use more leads.\""}
	c := NewComposer(llm, "")

	tmpl, err := c.ComposeTemplate(context.Background(), ChannelSMS, "")
	require.NoError(t, err)
	assert.Equal(t, "Hi {{name}}, {{company}} could use more leads.", tmpl)
	assert.Contains(t, llm.prompt.User, "under 160 characters")

	_, err = c.ComposeTemplate(context.Background(), ChannelWhatsApp, "Chill")
	require.NoError(t, err)
	assert.Contains(t, llm.prompt.User, "Tone: Chill")

	_, err = c.ComposeTemplate(context.Background(), Channel("fax"), "")
	require.Error(t, err)
}
