package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/salesforce"
)

type fakeSalesforce struct {
	existing []string
	inserted []map[string]any
	failOn   string
}

func (f *fakeSalesforce) Query(_ context.Context, _ string, out any) error {
	rows := out.(*[]salesforce.Lead)
	for _, c := range f.existing {
		*rows = append(*rows, salesforce.Lead{Company: c})
	}
	return nil
}

func (f *fakeSalesforce) InsertOne(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeSalesforce) InsertCollection(_ context.Context, _ string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	out := make([]salesforce.CollectionResult, 0, len(records))
	for _, r := range records {
		f.inserted = append(f.inserted, r)
		out = append(out, salesforce.CollectionResult{Success: r["Company"] != f.failOn})
	}
	return out, nil
}

type fakeNotion struct {
	titles  []string
	created []string
	updated []string
	err     error
}

func (f *fakeNotion) QueryDatabase(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp := &notionapi.DatabaseQueryResponse{}
	for i, t := range f.titles {
		resp.Results = append(resp.Results, notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("page-%d", i)), Properties: notionapi.Properties{
			"Name": &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: t}}},
		}})
	}
	return resp, nil
}

func (f *fakeNotion) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	title := req.Properties["Name"].(notionapi.TitleProperty)
	f.created = append(f.created, title.Title[0].Text.Content)
	return &notionapi.Page{}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, id string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	status := req.Properties["Status"].(notionapi.SelectProperty)
	f.updated = append(f.updated, id+"="+status.Select.Name)
	return &notionapi.Page{}, nil
}

func TestSalesforcePusher(t *testing.T) {
	sf := &fakeSalesforce{existing: []string{"TEMA SMILES"}, failOn: "Nowhere Ltd"}
	res, err := NewSalesforcePusher(sf).Push(context.Background(), sampleLeads())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, sf.inserted, 2)
	assert.Equal(t, "Kofi Dental", sf.inserted[0]["Company"])
	assert.Equal(t, "Mensah", sf.inserted[0]["LastName"])
	assert.Equal(t, LeadSource, sf.inserted[0]["LeadSource"])
}

func TestSalesforceLead(t *testing.T) {
	l := sampleLeads()[0]
	sf := SalesforceLead(l)
	assert.Equal(t, "Ama", sf.FirstName)
	assert.Equal(t, "Mensah", sf.LastName)
	assert.Equal(t, "CEO", sf.Title)
	assert.Equal(t, "+233201234567", sf.Phone)
	assert.Empty(t, sf.Email)
	assert.Equal(t, "Accra", sf.City)
	assert.Equal(t, "Ghana", sf.Country)
	assert.Equal(t, 10, sf.NumberOfEmployees)
	assert.Equal(t, "Hot", sf.Rating)

	bare := SalesforceLead(model.Lead{Company: "Solo", Contact: "hi@solo.example"})
	assert.Equal(t, "Solo", bare.LastName)
	assert.Equal(t, "hi@solo.example", bare.Email)
	assert.Equal(t, "Cold", bare.Rating)
}

func TestEmployeeCount(t *testing.T) {
	tests := map[string]int{
		"50-200": 50,
		"1,000+": 1000,
		"~25":    25,
		"":       0,
		"small":  0,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, EmployeeCount(in))
		})
	}
}

func TestNotionPusher(t *testing.T) {
	n := &fakeNotion{titles: []string{"kofi dental"}}
	res, err := NewNotionPusher(n, "db1").Push(context.Background(), sampleLeads())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Tema Smiles", "Nowhere Ltd"}, n.created)
}

func TestNotionPage_HidesPlaceholderContact(t *testing.T) {
	p := NotionPage(sampleLeads()[1])
	assert.Empty(t, p.Contact)
	assert.Equal(t, "new", p.Status)
}

func TestPushAll(t *testing.T) {
	sf := &fakeSalesforce{}
	n := &fakeNotion{err: errors.New("notion down")}

	results, err := PushAll(context.Background(), sampleLeads(), NewSalesforcePusher(sf), NewNotionPusher(n, "db1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion down")

	require.Len(t, results, 2)
	assert.Equal(t, "salesforce", results[0].Target)
	assert.Equal(t, 3, results[0].Pushed)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "notion", results[1].Target)
	assert.Equal(t, 0, results[1].Pushed)
	assert.Equal(t, 3, results[1].Failed)
	assert.True(t, strings.Contains(results[1].Error, "notion down"))
}

func TestNotionPusher_SyncStatus(t *testing.T) {
	nc := &fakeNotion{titles: []string{"Other Co", "Kofi Dental"}}
	p := NewNotionPusher(nc, "db-1")

	l := sampleLeads()[0]
	l.Status = model.LeadStatusContacted
	SyncStatus(context.Background(), l, p, NewSalesforcePusher(&fakeSalesforce{}))
	assert.Equal(t, []string{"page-1=" + string(model.LeadStatusContacted)}, nc.updated)

	l.Company = "Never Pushed"
	require.NoError(t, p.SyncStatus(context.Background(), l))
	assert.Len(t, nc.updated, 1)
}
