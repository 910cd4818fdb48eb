// Package analytics computes the dashboard aggregates over a lead list.
package analytics

import (
	"math"
	"slices"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// TopIndustries is how many industries the summary keeps.
const TopIndustries = 8

// NotAvailable stands in for a top value when there are no leads.
const NotAvailable = "N/A"

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"value"`
}

// Summary is the dashboard view of a lead list.
type Summary struct {
	Total         int                      `json:"total"`
	AvgConfidence int                      `json:"avg_confidence"`
	TopIndustry   string                   `json:"top_industry"`
	TopLocation   string                   `json:"top_location"`
	Industries    []Count                  `json:"industries"`
	Confidence    []Count                  `json:"confidence"`
	Pipeline      map[model.LeadStatus]int `json:"pipeline"`
}

// Confidence bucket labels, highest first.
const (
	Bucket90  = "90+"
	Bucket80  = "80-89"
	Bucket70  = "70-79"
	BucketLow = "<70"
)

// Summarize aggregates leads. Ties in the industry and location rankings
// keep first-seen order.
func Summarize(leads []model.Lead) Summary {
	s := Summary{
		Total:       len(leads),
		TopIndustry: NotAvailable,
		TopLocation: NotAvailable,
		Confidence: []Count{
			{Name: Bucket90}, {Name: Bucket80}, {Name: Bucket70}, {Name: BucketLow},
		},
		Pipeline: make(map[model.LeadStatus]int, len(model.LeadStatuses)),
	}
	for _, st := range model.LeadStatuses {
		s.Pipeline[st] = 0
	}
	if len(leads) == 0 {
		s.Industries = []Count{}
		return s
	}

	industries := newTally()
	locations := newTally()
	total := 0
	for _, l := range leads {
		total += l.Confidence
		s.Confidence[bucket(l.Confidence)].Count++

		ind := l.Industry
		if ind == "" {
			ind = "Other"
		}
		industries.add(ind)
		locations.add(City(l.Location))

		st := l.Status
		if st == "" {
			st = model.LeadStatusNew
		}
		s.Pipeline[st]++
	}

	s.AvgConfidence = int(math.Round(float64(total) / float64(len(leads))))
	s.Industries = industries.ranked()
	if len(s.Industries) > TopIndustries {
		s.Industries = s.Industries[:TopIndustries]
	}
	s.TopIndustry = s.Industries[0].Name
	if locs := locations.ranked(); len(locs) > 0 {
		s.TopLocation = locs[0].Name
	}
	return s
}

// City returns the first comma-separated segment of a location.
func City(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

func bucket(confidence int) int {
	switch {
	case confidence >= 90:
		return 0
	case confidence >= 80:
		return 1
	case confidence >= 70:
		return 2
	default:
		return 3
	}
}

type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(name string) {
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *tally) ranked() []Count {
	out := make([]Count, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, Count{Name: name, Count: t.counts[name]})
	}
	slices.SortStableFunc(out, func(a, b Count) int { return b.Count - a.Count })
	return out
}
