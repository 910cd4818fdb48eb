package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// LeadPage is one lead row in a Notion lead database. Property names match
// the columns a LeadGenius lead database is expected to have.
type LeadPage struct {
	Name        string
	Website     string
	Industry    string
	Location    string
	Contact     string
	Employees   string
	LinkedIn    string
	Description string
	Status      string
	Confidence  int
	Score       int
}

// Properties converts the lead into Notion page properties. Empty optional
// values are left out.
func (l LeadPage) Properties() notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(l.Name),
		},
		"Confidence": notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(l.Confidence)},
		"Score":      notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(l.Score)},
	}
	if l.Website != "" {
		props["Website"] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: l.Website}
	}
	if l.LinkedIn != "" {
		props["LinkedIn"] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: l.LinkedIn}
	}
	if l.Industry != "" {
		props["Industry"] = notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: l.Industry}}
	}
	if l.Status != "" {
		props["Status"] = statusProperty(l.Status)
	}
	for name, v := range map[string]string{
		"Location":    l.Location,
		"Contact":     l.Contact,
		"Employees":   l.Employees,
		"Description": l.Description,
	} {
		if v != "" {
			props[name] = notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(v)}
		}
	}
	return props
}

// CreateLeadPages creates one page per lead in dbID and returns the number
// created before any error. Cancellation stops between pages.
func CreateLeadPages(ctx context.Context, c Client, dbID string, leads []LeadPage) (int, error) {
	created := 0
	for _, l := range leads {
		if ctx.Err() != nil {
			return created, eris.Wrap(ctx.Err(), "notion: create lead pages cancelled")
		}
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: l.Properties(),
		}
		if _, err := c.CreatePage(ctx, req); err != nil {
			return created, eris.Wrapf(err, "notion: create page for %q", l.Name)
		}
		created++
	}
	return created, nil
}

// FindLeadPage returns the ID of the page titled name, compared
// case-insensitively, or "" when there is none.
func FindLeadPage(ctx context.Context, c Client, dbID, name string) (string, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return "", eris.Wrap(err, "notion: find lead page")
	}
	for _, p := range pages {
		if strings.EqualFold(pageTitle(p), strings.TrimSpace(name)) {
			return string(p.ID), nil
		}
	}
	return "", nil
}

// UpdateLeadStatus sets the Status select of an existing lead page.
func UpdateLeadStatus(ctx context.Context, c Client, pageID, status string) error {
	_, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{"Status": statusProperty(status)},
	})
	if err != nil {
		return eris.Wrap(err, "notion: update lead status")
	}
	return nil
}

func statusProperty(status string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: status}}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}
