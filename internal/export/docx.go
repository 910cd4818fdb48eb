package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gingfrederik/docx"
	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/analytics"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// ReportFilename is the download name of the DOCX lead report.
func ReportFilename(at time.Time) string {
	return "LeadGenius_Report_" + at.Format("2006-01-02") + ".docx"
}

// BuildReport lays out the lead report: a dashboard summary followed by one
// section per lead.
func BuildReport(query string, leads []model.Lead, at time.Time) *docx.File {
	f := docx.NewFile()
	sum := analytics.Summarize(leads)

	f.AddParagraph().AddText("LeadGenius Lead Report").Size(20)
	f.AddParagraph().AddText(fmt.Sprintf("Query: %s", query))
	f.AddParagraph().AddText("Generated: " + at.Format("2006-01-02 15:04"))
	f.AddParagraph()

	f.AddParagraph().AddText("Summary").Size(16)
	f.AddParagraph().AddText(fmt.Sprintf("Total leads: %d", sum.Total))
	f.AddParagraph().AddText(fmt.Sprintf("Average confidence: %d%%", sum.AvgConfidence))
	if sum.TopLocation != "" {
		f.AddParagraph().AddText("Top location: " + sum.TopLocation)
	}
	for _, ic := range sum.Industries {
		f.AddParagraph().AddText(fmt.Sprintf("- %s: %d", ic.Name, ic.Count))
	}
	f.AddParagraph()

	for i, l := range leads {
		f.AddParagraph().AddText(fmt.Sprintf("%d. %s", i+1, l.Company)).Size(14)
		if l.Description != "" {
			f.AddParagraph().AddText(l.Description)
		}
		for _, line := range reportFields(l) {
			f.AddParagraph().AddText(line)
		}
		if people := KeyPeople(l); people != "" {
			f.AddParagraph().AddText("Key people: " + people)
		}
		f.AddParagraph()
	}
	return f
}

func reportFields(l model.Lead) []string {
	fields := []struct{ k, v string }{
		{"Industry", l.Industry},
		{"Location", l.Location},
		{"Website", l.Website},
		{"Contact", l.Contact},
		{"Employees", l.Employees},
		{"Status", string(l.Status)},
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, fmt.Sprintf("Confidence: %d%%  Score: %d", l.Confidence, l.Score))
	for _, f := range fields {
		if strings.TrimSpace(f.v) != "" {
			out = append(out, f.k+": "+f.v)
		}
	}
	return out
}

// WriteDOCX renders the lead report and copies it to w. The docx writer
// only saves to a path, so the document goes through a temp file.
func WriteDOCX(w io.Writer, query string, leads []model.Lead, at time.Time) error {
	dir, err := os.MkdirTemp("", "leadgenius-docx-")
	if err != nil {
		return eris.Wrap(err, "export: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, "report.docx")
	if err := BuildReport(query, leads, at).Save(path); err != nil {
		return eris.Wrap(err, "export: save docx")
	}

	src, err := os.Open(path) //nolint:gosec // path is our own temp file
	if err != nil {
		return eris.Wrap(err, "export: open docx")
	}
	defer src.Close() //nolint:errcheck

	if _, err := io.Copy(w, src); err != nil {
		return eris.Wrap(err, "export: copy docx")
	}
	return nil
}
