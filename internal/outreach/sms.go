package outreach

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/arkesel"
)

// DefaultSender is the sender ID used when none is configured.
const DefaultSender = "LeadGenius"

// DefaultSMSTemplate is the starting SMS draft.
const DefaultSMSTemplate = "Hi {{name}}, saw {{company}} and wanted to connect about scaling your leads."

// DefaultSMSInterval spaces consecutive sends.
const DefaultSMSInterval = 500 * time.Millisecond

// SMSStatus is the per-recipient outcome of a campaign.
type SMSStatus string

const (
	SMSDelivered SMSStatus = "delivered"
	SMSFailed    SMSStatus = "failed"
	SMSSkipped   SMSStatus = "skipped"
)

// SMSResult is one lead's delivery outcome.
type SMSResult struct {
	LeadID  string    `json:"lead_id"`
	Company string    `json:"company"`
	Phone   string    `json:"phone,omitempty"`
	Message string    `json:"message,omitempty"`
	Status  SMSStatus `json:"status"`
	Error   string    `json:"error,omitempty"`
}

// SMSReport summarizes a finished campaign.
type SMSReport struct {
	Results   []SMSResult `json:"results"`
	Delivered int         `json:"delivered"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
}

func (r *SMSReport) add(res SMSResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case SMSDelivered:
		r.Delivered++
	case SMSFailed:
		r.Failed++
	case SMSSkipped:
		r.Skipped++
	}
}

// SMSCampaign sends one templated SMS per lead through Arkesel, one at a
// time.
type SMSCampaign struct {
	client  arkesel.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewSMSCampaign creates a campaign that sends at most one message per
// interval. A zero interval uses DefaultSMSInterval.
func NewSMSCampaign(c arkesel.Client, interval time.Duration) *SMSCampaign {
	if interval <= 0 {
		interval = DefaultSMSInterval
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("arkesel", "send")
	return &SMSCampaign{
		client:  c,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   retry,
	}
}

// Send messages every lead. Leads without a phone number are skipped; a
// failed send is recorded and the campaign moves on. Cancellation stops
// the campaign and returns the results so far with the context error.
func (s *SMSCampaign) Send(ctx context.Context, leads []model.Lead, sender, template string) (SMSReport, error) {
	report := SMSReport{Results: make([]SMSResult, 0, len(leads))}
	if sender == "" {
		sender = DefaultSender
	}
	if len(sender) > arkesel.MaxSenderLength {
		return report, eris.Errorf("outreach: sender id %q longer than %d characters", sender, arkesel.MaxSenderLength)
	}
	if template == "" {
		template = DefaultSMSTemplate
	}

	for _, l := range leads {
		res := SMSResult{LeadID: l.ID, Company: l.Company, Phone: LeadPhone(l)}
		if res.Phone == "" {
			res.Status = SMSSkipped
			report.add(res)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return report, eris.Wrap(err, "outreach: sms campaign cancelled")
		}

		res.Message = Render(template, l)
		err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
			_, err := s.client.Send(ctx, arkesel.SendRequest{
				Sender:     sender,
				Message:    res.Message,
				Recipients: []string{res.Phone},
			})
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, eris.Wrap(ctx.Err(), "outreach: sms campaign cancelled")
			}
			res.Status = SMSFailed
			res.Error = err.Error()
			zap.L().Warn("outreach: sms send failed",
				zap.String("company", l.Company),
				zap.Error(err),
			)
		} else {
			res.Status = SMSDelivered
		}
		report.add(res)
	}

	zap.L().Info("outreach: sms campaign finished",
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
