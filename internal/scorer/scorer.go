package scorer

import (
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// MaxScore caps every score.
const MaxScore = 100

// Scorer computes lead scores from a fixed rule set. It is safe for
// concurrent use.
type Scorer struct {
	rules Rules
}

// New creates a Scorer.
func New(rules Rules) *Scorer {
	return &Scorer{rules: rules}
}

// Rules returns the active rule set.
func (s *Scorer) Rules() Rules {
	return s.rules
}

// Score implements the mining loop's scoring function.
func (s *Scorer) Score(lead model.Lead) int {
	return Score(lead, s.rules)
}

// Breakdown lists the points each rule contributed.
type Breakdown struct {
	Base       int            `json:"base"`
	Components map[string]int `json:"components"`
	Total      int            `json:"total"`
}

// Score returns a 0-100 score. It depends only on the lead's fields, so the
// same lead always scores the same.
func Score(lead model.Lead, r Rules) int {
	return Explain(lead, r).Total
}

// Explain scores a lead and reports each rule's contribution.
func Explain(lead model.Lead, r Rules) Breakdown {
	b := Breakdown{Base: lead.Confidence, Components: make(map[string]int)}
	if b.Base <= 0 {
		b.Base = r.BaseScore
	}

	if matchesIndustry(lead.Industry, r.HighValueIndustries) {
		b.Components["industry"] = r.IndustryPoints
	}
	if lead.HasContact() {
		b.Components["contact"] = r.ContactPoints
	}
	if strings.TrimSpace(lead.Website) != "" {
		b.Components["website"] = r.WebsitePoints
	}
	if len(lead.Management) > 0 {
		b.Components["management"] = r.ManagementPoints
	}
	if strings.TrimSpace(lead.Socials.LinkedIn) != "" {
		b.Components["linkedin"] = r.LinkedInPoints
	}

	total := b.Base
	for _, p := range b.Components {
		total += p
	}
	b.Total = min(max(total, 0), MaxScore)
	return b
}

func matchesIndustry(industry string, keywords []string) bool {
	ind := strings.ToLower(industry)
	for _, k := range keywords {
		if k != "" && strings.Contains(ind, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
