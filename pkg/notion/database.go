package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches every page of a Notion database, following cursors.
// Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// ExistingTitles returns the lowercased titles of all pages in dbID. Lead
// export uses it to avoid creating a second page for the same company.
func ExistingTitles(ctx context.Context, c Client, dbID string) (map[string]bool, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: existing titles")
	}
	titles := make(map[string]bool, len(pages))
	for _, p := range pages {
		if t := pageTitle(p); t != "" {
			titles[strings.ToLower(t)] = true
		}
	}
	return titles, nil
}

func pageTitle(p notionapi.Page) string {
	for _, prop := range p.Properties {
		var title []notionapi.RichText
		switch v := prop.(type) {
		case *notionapi.TitleProperty:
			title = v.Title
		case notionapi.TitleProperty:
			title = v.Title
		default:
			continue
		}
		var b strings.Builder
		for _, rt := range title {
			b.WriteString(rt.PlainText)
			if rt.PlainText == "" && rt.Text != nil {
				b.WriteString(rt.Text.Content)
			}
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}
