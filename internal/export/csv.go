// Package export renders leads into files (CSV, XLSX, DOCX, GeoJSON) and
// pushes them to CRMs.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// Columns is the header row shared by the CSV and XLSX exports.
var Columns = []string{
	"Company", "Description", "Location", "Confidence", "Industry", "Website",
	"Contact", "Employees", "Key People", "WhatsApp", "Company LinkedIn",
	"Instagram", "Twitter", "Facebook",
}

const peopleSearchURL = "https://www.linkedin.com/search/results/people/?keywords="

// Row renders one lead as the Columns values.
func Row(l model.Lead) []string {
	return []string{
		l.Company,
		l.Description,
		l.Location,
		fmt.Sprintf("%d%%", l.Confidence),
		l.Industry,
		l.Website,
		l.Contact,
		l.Employees,
		KeyPeople(l),
		WhatsAppURL(l.Socials.WhatsApp),
		l.Socials.LinkedIn,
		l.Socials.Instagram,
		l.Socials.Twitter,
		l.Socials.Facebook,
	}
}

// KeyPeople joins the lead's managers as "Name (Role) - link". Managers
// without a LinkedIn profile link to a people search for name and company.
func KeyPeople(l model.Lead) string {
	parts := make([]string, 0, len(l.Management))
	for _, m := range l.Management {
		link := m.LinkedIn
		if link == "" {
			link = peopleSearchURL + url.QueryEscape(m.Name+" "+l.Company)
		}
		parts = append(parts, fmt.Sprintf("%s (%s) - %s", m.Name, m.Role, link))
	}
	return strings.Join(parts, "; ")
}

// WhatsAppURL returns the wa.me link for a number, or "" when there is none.
func WhatsAppURL(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return ""
	}
	return "https://wa.me/" + n
}

// WriteCSV writes a header row and one row per lead.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, l := range leads {
		if err := cw.Write(Row(l)); err != nil {
			return eris.Wrapf(err, "export: write csv row %q", l.Company)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

var unsafeName = regexp.MustCompile(`(?i)[^a-z0-9]`)

// Filename builds the download name for an export of query, e.g.
// LeadGenius_Dentists_in_Accra_2026-10-17.csv. Letter case is kept.
func Filename(query string, at time.Time, ext string) string {
	q := unsafeName.ReplaceAllString(query, "_")
	return fmt.Sprintf("LeadGenius_%s_%s.%s", q, at.Format("2006-01-02"), strings.TrimPrefix(ext, "."))
}
