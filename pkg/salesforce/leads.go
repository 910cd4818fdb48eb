package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is the subset of the Salesforce Lead sObject LeadGenius writes.
type Lead struct {
	ID                string `json:"Id,omitempty" salesforce:"Id"`
	Company           string `json:"Company" salesforce:"Company"`
	LastName          string `json:"LastName" salesforce:"LastName"`
	FirstName         string `json:"FirstName,omitempty" salesforce:"FirstName"`
	Title             string `json:"Title,omitempty" salesforce:"Title"`
	Website           string `json:"Website,omitempty" salesforce:"Website"`
	Industry          string `json:"Industry,omitempty" salesforce:"Industry"`
	Description       string `json:"Description,omitempty" salesforce:"Description"`
	Email             string `json:"Email,omitempty" salesforce:"Email"`
	Phone             string `json:"Phone,omitempty" salesforce:"Phone"`
	City              string `json:"City,omitempty" salesforce:"City"`
	Country           string `json:"Country,omitempty" salesforce:"Country"`
	NumberOfEmployees int    `json:"NumberOfEmployees,omitempty" salesforce:"NumberOfEmployees"`
	Rating            string `json:"Rating,omitempty" salesforce:"Rating"`
	LeadSource        string `json:"LeadSource,omitempty" salesforce:"LeadSource"`
}

// Record converts l into the field map the REST API expects, leaving out
// empty values.
func (l Lead) Record() map[string]any {
	m := map[string]any{
		"Company":  l.Company,
		"LastName": l.LastName,
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("FirstName", l.FirstName)
	set("Title", l.Title)
	set("Website", l.Website)
	set("Industry", l.Industry)
	set("Description", l.Description)
	set("Email", l.Email)
	set("Phone", l.Phone)
	set("City", l.City)
	set("Country", l.Country)
	set("Rating", l.Rating)
	set("LeadSource", l.LeadSource)
	if l.NumberOfEmployees > 0 {
		m["NumberOfEmployees"] = l.NumberOfEmployees
	}
	return m
}

// InsertLeads creates Lead records in batches of 200 (the Collections API
// limit). It returns the per-record results gathered before any batch error.
func InsertLeads(ctx context.Context, c Client, leads []Lead) ([]CollectionResult, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	var all []CollectionResult
	for start := 0; start < len(leads); start += maxBatchSize {
		end := min(start+maxBatchSize, len(leads))

		records := make([]map[string]any, 0, end-start)
		for _, l := range leads[start:end] {
			if l.Company == "" || l.LastName == "" {
				return all, eris.New(fmt.Sprintf("sf: lead %d missing Company or LastName", start+len(records)))
			}
			records = append(records, l.Record())
		}

		results, err := c.InsertCollection(ctx, "Lead", records)
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: insert leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// ExistingLeadCompanies returns the lowercased company names among names that
// already exist as Lead records, so exports can skip them.
func ExistingLeadCompanies(ctx context.Context, c Client, names []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(names) == 0 {
		return found, nil
	}

	// Keep IN clauses well under the SOQL length limit.
	const chunk = 100
	for start := 0; start < len(names); start += chunk {
		end := min(start+chunk, len(names))
		quoted := make([]string, 0, end-start)
		for _, n := range names[start:end] {
			quoted = append(quoted, "'"+escapeSoql(n)+"'")
		}
		soql := fmt.Sprintf("SELECT Id, Company FROM Lead WHERE Company IN (%s)", strings.Join(quoted, ", "))

		var rows []Lead
		if err := c.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(err, "sf: find existing leads")
		}
		for _, r := range rows {
			found[strings.ToLower(r.Company)] = true
		}
	}
	return found, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
