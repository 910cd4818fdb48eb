// Package scorer ranks leads by fit and data completeness.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds the scoring weights. Points are added to the lead's
// confidence and the total is capped at 100.
type Rules struct {
	// BaseScore is used when a lead has no confidence.
	BaseScore int `yaml:"base_score"`

	HighValueIndustries []string `yaml:"high_value_industries"`
	IndustryPoints      int      `yaml:"industry_points"`
	ContactPoints       int      `yaml:"contact_points"`
	WebsitePoints       int      `yaml:"website_points"`
	ManagementPoints    int      `yaml:"management_points"`
	LinkedInPoints      int      `yaml:"linkedin_points"`
}

// DefaultRules returns the stock weights.
func DefaultRules() Rules {
	return Rules{
		BaseScore:           50,
		HighValueIndustries: []string{"Technology", "Finance", "SaaS", "Healthcare", "Software"},
		IndustryPoints:      10,
		ContactPoints:       15,
		WebsitePoints:       10,
		ManagementPoints:    10,
		LinkedInPoints:      5,
	}
}

// LoadRules reads rules from a yaml file. Keys missing from the file keep
// their default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "scorer: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, eris.Wrapf(err, "scorer: parse rules %s", path)
	}
	if err := ValidateRules(rules); err != nil {
		return rules, err
	}
	return rules, nil
}

// ValidateRules checks that weights are usable.
func ValidateRules(r Rules) error {
	var errs []string

	if r.BaseScore < 0 || r.BaseScore > 100 {
		errs = append(errs, "base_score must be between 0 and 100")
	}
	points := map[string]int{
		"industry_points":   r.IndustryPoints,
		"contact_points":    r.ContactPoints,
		"website_points":    r.WebsitePoints,
		"management_points": r.ManagementPoints,
		"linkedin_points":   r.LinkedInPoints,
	}
	for name, p := range points {
		if p < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	for _, ind := range r.HighValueIndustries {
		if strings.TrimSpace(ind) == "" {
			errs = append(errs, "high_value_industries must not contain blank entries")
			break
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
