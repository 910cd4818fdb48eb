package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusWon         LeadStatus = "won"
	LeadStatusLost        LeadStatus = "lost"
)

// LeadStatuses lists every pipeline stage in board order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusNegotiation,
	LeadStatusWon,
	LeadStatusLost,
}

// Valid reports whether s is one of the known pipeline stages.
func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts user input into a LeadStatus.
func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown lead status %q", s)
	}
	return st, nil
}

// Default field values applied to loosely-structured generation output.
const (
	DefaultConfidence = 85
	DefaultIndustry   = "Unknown"
	DefaultContact    = "N/A"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Socials holds public social profile links for a company.
type Socials struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
}

// Manager is a named management contact at a lead company.
type Manager struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Lead is a candidate company produced by a mining run.
type Lead struct {
	ID            string       `json:"id"`
	Company       string       `json:"company"`
	Description   string       `json:"description"`
	Location      string       `json:"location"`
	Confidence    int          `json:"confidence"`
	Website       string       `json:"website"`
	Contact       string       `json:"contact"`
	Industry      string       `json:"industry"`
	Employees     string       `json:"employees"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	GoogleMapsURL string       `json:"google_maps_url,omitempty"`
	Socials       Socials      `json:"socials"`
	Management    []Manager    `json:"management"`
	Score         int          `json:"score"`
	Status        LeadStatus   `json:"status"`
	Query         string       `json:"query,omitempty"`
	RunID         string       `json:"run_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ApplyDefaults fills optional fields that generation left empty.
func (l *Lead) ApplyDefaults() {
	l.Company = strings.TrimSpace(l.Company)
	if l.Confidence <= 0 {
		l.Confidence = DefaultConfidence
	}
	if l.Confidence > 100 {
		l.Confidence = 100
	}
	if strings.TrimSpace(l.Industry) == "" {
		l.Industry = DefaultIndustry
	}
	if strings.TrimSpace(l.Contact) == "" {
		l.Contact = DefaultContact
	}
	if l.Management == nil {
		l.Management = []Manager{}
	}
	if l.GoogleMapsURL == "" && l.Company != "" {
		l.GoogleMapsURL = MapsSearchURL(l.Company + " " + l.Location)
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
}

// HasContact reports whether the lead carries a usable phone or email.
func (l Lead) HasContact() bool {
	c := strings.TrimSpace(l.Contact)
	return c != "" && c != DefaultContact
}

// Key returns the dedupe key for the lead's company name.
func (l Lead) Key() string {
	return NormalizeCompany(l.Company)
}

// MapsSearchURL builds a Google Maps search link for free text.
func MapsSearchURL(q string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(strings.TrimSpace(q))
}

// NormalizeCompany returns the case-insensitive, whitespace-normalized form of
// a company name. Two leads with equal keys are duplicates.
func NormalizeCompany(name string) string {
	s := norm.NFKC.String(strings.TrimSpace(name))
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Constraints are optional structured search filters appended to the query.
type Constraints struct {
	Location string `json:"location,omitempty"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
}

// AppendTo renders the constraints onto a free-text query.
func (c Constraints) AppendTo(query string) string {
	q := strings.TrimSpace(query)
	if v := strings.TrimSpace(c.Location); v != "" {
		q += " in " + v
	}
	if v := strings.TrimSpace(c.Industry); v != "" {
		q += " (industry: " + v + ")"
	}
	if v := strings.TrimSpace(c.Size); v != "" {
		q += " (company size: " + v + ")"
	}
	return q
}

// Industries is the fixed industry picklist offered by the dashboard filters.
var Industries = []string{
	"Technology", "Finance", "Healthcare", "Real Estate", "Retail", "Manufacturing",
	"Education", "Energy", "Consulting", "Marketing", "Legal", "Construction",
	"Transportation", "Other",
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	AccountID string     `json:"account_id,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	Query     string     `json:"query,omitempty"`
	Location  string     `json:"location,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	Employees string     `json:"employees,omitempty"`
	Status    LeadStatus `json:"status,omitempty"`
	MinScore  int        `json:"min_score,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// DefaultPageSize is the lead table page size.
const DefaultPageSize = 20

// Match reports whether a lead passes the filter's text fields.
// Matching is case-insensitive substring on location, industry and employees.
func (f LeadFilter) Match(l Lead) bool {
	if f.Location != "" && !containsFold(l.Location, f.Location) {
		return false
	}
	if f.Industry != "" && !containsFold(l.Industry, f.Industry) {
		return false
	}
	if f.Employees != "" && !containsFold(l.Employees, f.Employees) {
		return false
	}
	if f.Query != "" && !containsFold(l.Query, f.Query) {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.MinScore > 0 && l.Score < f.MinScore {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
