package generate

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

var fenceRe = regexp.MustCompile("(?i)```[a-z]*")

// StripFences removes markdown code fences from model output.
func StripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// ParseCandidates extracts the lead list from a model reply. The reply may
// be wrapped in markdown or prose, may be a lone object, and may have a
// trailing comma or missing closing bracket. Items without a company name
// are dropped. Optional fields take their defaults and every lead gets a
// fresh ID.
func ParseCandidates(text string) ([]model.Lead, error) {
	raw, err := extractArray(text)
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(raw))
	for _, item := range raw {
		var rl rawLead
		if err := json.Unmarshal(item, &rl); err != nil {
			continue
		}
		l := rl.toLead()
		if l.Company == "" {
			continue
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// DecodeObject finds the outermost JSON object in text and decodes it into v.
func DecodeObject(text string, v any) error {
	s := StripFences(text)
	first, last := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if first == -1 || last < first {
		return eris.Wrap(ErrMalformedResponse, "no JSON object in reply")
	}
	if err := json.Unmarshal([]byte(s[first:last+1]), v); err != nil {
		return eris.Wrapf(ErrMalformedResponse, "decode object: %v", err)
	}
	return nil
}

func extractArray(text string) ([]json.RawMessage, error) {
	s := StripFences(text)
	if s == "" {
		return nil, eris.Wrap(ErrMalformedResponse, "empty reply")
	}

	first, last := strings.Index(s, "["), strings.LastIndex(s, "]")
	switch {
	case first != -1 && last > first:
		s = s[first : last+1]
	case first != -1:
		// Truncated array; repair below appends the bracket.
		s = s[first:]
	default:
		ob, cb := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if ob == -1 || cb < ob {
			return nil, eris.Wrap(ErrMalformedResponse, "no JSON array in reply")
		}
		s = "[" + s[ob:cb+1] + "]"
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		return items, nil
	}

	repaired := strings.TrimSpace(s)
	repaired = strings.TrimSuffix(repaired, "]")
	repaired = strings.TrimRight(repaired, " \t\r\n")
	repaired = strings.TrimSuffix(repaired, ",")
	repaired += "]"
	if err := json.Unmarshal([]byte(repaired), &items); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "invalid JSON syntax: %v", err)
	}
	return items, nil
}

// rawLead mirrors the prompt's JSON shape. Numeric fields tolerate strings
// and nested fields tolerate the wrong JSON type.
type rawLead struct {
	Company       string          `json:"company"`
	Description   string          `json:"description"`
	Location      string          `json:"location"`
	GoogleMapsURL string          `json:"googleMapsUrl"`
	Confidence    looseInt        `json:"confidence"`
	Website       string          `json:"website"`
	Contact       looseString     `json:"contact"`
	Industry      string          `json:"industry"`
	Employees     looseString     `json:"employees"`
	Socials       json.RawMessage `json:"socials"`
	Management    json.RawMessage `json:"management"`
}

func (r rawLead) toLead() model.Lead {
	l := model.Lead{
		ID:            uuid.NewString(),
		Company:       r.Company,
		Description:   strings.TrimSpace(r.Description),
		Location:      strings.TrimSpace(r.Location),
		GoogleMapsURL: strings.TrimSpace(r.GoogleMapsURL),
		Confidence:    int(r.Confidence),
		Website:       strings.TrimSpace(r.Website),
		Contact:       strings.TrimSpace(string(r.Contact)),
		Industry:      strings.TrimSpace(r.Industry),
		Employees:     strings.TrimSpace(string(r.Employees)),
	}
	if isObject(r.Socials) {
		_ = json.Unmarshal(r.Socials, &l.Socials)
	}
	if isArray(r.Management) {
		var mgmt []model.Manager
		_ = json.Unmarshal(r.Management, &mgmt)
		for _, m := range mgmt {
			if strings.TrimSpace(m.Name) != "" {
				l.Management = append(l.Management, m)
			}
		}
	}
	l.ApplyDefaults()
	return l
}

func isObject(b json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(b), []byte("{"))
}

func isArray(b json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(b), []byte("["))
}

// looseInt accepts a JSON number or a numeric string such as "92" or "92%".
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseInt(f)
	return nil
}

// looseString accepts a JSON string or a scalar of another type.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	t := strings.TrimSpace(string(b))
	if t == "null" || strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		*s = ""
		return nil
	}
	*s = looseString(t)
	return nil
}
