package export

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/analytics"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/notion"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/salesforce"
)

// LeadSource tags records LeadGenius creates in a CRM.
const LeadSource = "LeadGenius"

// Pusher sends leads to one CRM target.
type Pusher interface {
	Name() string
	Push(ctx context.Context, leads []model.Lead) (PushResult, error)
}

// PushResult counts what a push did for one target.
type PushResult struct {
	Target  string `json:"target"`
	Pushed  int    `json:"pushed"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// PushAll pushes leads to every target concurrently. Targets are independent:
// one failing does not stop the others. The returned slice is in pusher
// order; the error is the first failure.
func PushAll(ctx context.Context, leads []model.Lead, pushers ...Pusher) ([]PushResult, error) {
	results := make([]PushResult, len(pushers))
	var g errgroup.Group
	var mu sync.Mutex
	var firstErr error

	for i, p := range pushers {
		g.Go(func() error {
			res, err := p.Push(ctx, leads)
			res.Target = p.Name()
			if err != nil {
				res.Error = err.Error()
				zap.L().Warn("export: crm push failed",
					zap.String("target", p.Name()),
					zap.Int("pushed", res.Pushed),
					zap.Error(err),
				)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, firstErr
}

// StatusSyncer is a Pusher that can mirror a lead's pipeline status onto
// the record it created.
type StatusSyncer interface {
	SyncStatus(ctx context.Context, l model.Lead) error
}

// SyncStatus mirrors l's status to every target that supports it. Failures
// are logged and do not stop the other targets.
func SyncStatus(ctx context.Context, l model.Lead, pushers ...Pusher) {
	for _, p := range pushers {
		s, ok := p.(StatusSyncer)
		if !ok {
			continue
		}
		if err := s.SyncStatus(ctx, l); err != nil {
			zap.L().Warn("export: crm status sync failed",
				zap.String("target", p.Name()),
				zap.String("lead_id", l.ID),
				zap.Error(err),
			)
		}
	}
}

// SalesforcePusher inserts leads as Salesforce Lead records, skipping
// companies that already exist.
type SalesforcePusher struct {
	client salesforce.Client
}

// NewSalesforcePusher wraps a Salesforce client.
func NewSalesforcePusher(c salesforce.Client) *SalesforcePusher {
	return &SalesforcePusher{client: c}
}

// Name implements Pusher.
func (p *SalesforcePusher) Name() string { return "salesforce" }

// Push implements Pusher.
func (p *SalesforcePusher) Push(ctx context.Context, leads []model.Lead) (PushResult, error) {
	var res PushResult
	names := make([]string, 0, len(leads))
	for _, l := range leads {
		names = append(names, l.Company)
	}
	existing, err := salesforce.ExistingLeadCompanies(ctx, p.client, names)
	if err != nil {
		return res, eris.Wrap(err, "export: salesforce existing leads")
	}

	records := make([]salesforce.Lead, 0, len(leads))
	for _, l := range leads {
		if existing[strings.ToLower(l.Company)] {
			res.Skipped++
			continue
		}
		records = append(records, SalesforceLead(l))
	}

	results, err := salesforce.InsertLeads(ctx, p.client, records)
	for _, r := range results {
		if r.Success {
			res.Pushed++
		} else {
			res.Failed++
		}
	}
	if err != nil {
		return res, eris.Wrap(err, "export: salesforce insert")
	}
	return res, nil
}

// SalesforceLead maps a lead onto the Lead sObject. The first manager
// becomes the contact person; Salesforce requires a last name, so the
// company name stands in when there is none.
func SalesforceLead(l model.Lead) salesforce.Lead {
	sf := salesforce.Lead{
		Company:           l.Company,
		Website:           l.Website,
		Industry:          l.Industry,
		Description:       l.Description,
		City:              analytics.City(l.Location),
		NumberOfEmployees: EmployeeCount(l.Employees),
		Rating:            Rating(l.Score),
		LeadSource:        LeadSource,
	}
	if len(l.Management) > 0 {
		m := l.Management[0]
		sf.FirstName, sf.LastName = splitName(m.Name)
		sf.Title = m.Role
	}
	if sf.LastName == "" {
		sf.LastName = l.Company
	}
	if l.HasContact() {
		if strings.Contains(l.Contact, "@") {
			sf.Email = strings.TrimSpace(l.Contact)
		} else {
			sf.Phone = strings.TrimSpace(l.Contact)
		}
	}
	if _, country, ok := lastComma(l.Location); ok {
		sf.Country = country
	}
	return sf
}

// Rating buckets a lead score into Salesforce's Hot/Warm/Cold picklist.
func Rating(score int) string {
	switch {
	case score >= 70:
		return "Hot"
	case score >= 40:
		return "Warm"
	default:
		return "Cold"
	}
}

var firstNumber = regexp.MustCompile(`\d[\d,]*`)

// EmployeeCount reads the lower bound of a headcount string such as
// "50-200" or "1,000+". It returns 0 when there is no number.
func EmployeeCount(s string) int {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func lastComma(s string) (head, tail string, ok bool) {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

// NotionPusher creates one page per lead in a Notion lead database,
// skipping titles already present.
type NotionPusher struct {
	client notion.Client
	dbID   string
}

// NewNotionPusher wraps a Notion client and target database.
func NewNotionPusher(c notion.Client, dbID string) *NotionPusher {
	return &NotionPusher{client: c, dbID: dbID}
}

// Name implements Pusher.
func (p *NotionPusher) Name() string { return "notion" }

// Push implements Pusher.
func (p *NotionPusher) Push(ctx context.Context, leads []model.Lead) (PushResult, error) {
	var res PushResult
	existing, err := notion.ExistingTitles(ctx, p.client, p.dbID)
	if err != nil {
		return res, eris.Wrap(err, "export: notion existing pages")
	}

	pages := make([]notion.LeadPage, 0, len(leads))
	for _, l := range leads {
		if existing[strings.ToLower(l.Company)] {
			res.Skipped++
			continue
		}
		pages = append(pages, NotionPage(l))
	}

	n, err := notion.CreateLeadPages(ctx, p.client, p.dbID, pages)
	res.Pushed = n
	if err != nil {
		res.Failed = len(pages) - n
		return res, eris.Wrap(err, "export: notion create pages")
	}
	return res, nil
}

// SyncStatus implements StatusSyncer. Leads never pushed to Notion are
// ignored.
func (p *NotionPusher) SyncStatus(ctx context.Context, l model.Lead) error {
	pageID, err := notion.FindLeadPage(ctx, p.client, p.dbID, l.Company)
	if err != nil {
		return eris.Wrap(err, "export: notion status sync")
	}
	if pageID == "" {
		return nil
	}
	return notion.UpdateLeadStatus(ctx, p.client, pageID, string(l.Status))
}

// NotionPage maps a lead onto a Notion lead database row.
func NotionPage(l model.Lead) notion.LeadPage {
	contact := ""
	if l.HasContact() {
		contact = l.Contact
	}
	return notion.LeadPage{
		Name:        l.Company,
		Website:     l.Website,
		Industry:    l.Industry,
		Location:    l.Location,
		Contact:     contact,
		Employees:   l.Employees,
		LinkedIn:    l.Socials.LinkedIn,
		Description: l.Description,
		Status:      string(l.Status),
		Confidence:  l.Confidence,
		Score:       l.Score,
	}
}
