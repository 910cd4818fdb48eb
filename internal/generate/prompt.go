package generate

import (
	"fmt"
	"strings"
)

// DefaultExcludeCap bounds how many already-seen names go into a prompt.
const DefaultExcludeCap = 50

// SystemPrompt is sent with every lead-generation call.
const SystemPrompt = "Output strictly valid JSON. No markdown."

// BuildPrompt renders the lead-generation prompt for one batch. Only the
// most recent excludeCap names from req.Exclude are listed.
func BuildPrompt(req Request, excludeCap int) string {
	if excludeCap <= 0 {
		excludeCap = DefaultExcludeCap
	}
	exclude := req.Exclude
	if len(exclude) > excludeCap {
		exclude = exclude[len(exclude)-excludeCap:]
	}

	var b strings.Builder
	b.WriteString("ROLE: B2B Market Research Agent.\n")
	fmt.Fprintf(&b, "TASK: Aggregate PUBLICLY AVAILABLE business contact details for %d companies matching: %q.\n\n", req.BatchSize, req.Query)
	fmt.Fprintf(&b, "CONTEXT: Batch #%d.", req.BatchIndex+1)
	if len(exclude) > 0 {
		fmt.Fprintf(&b, " Do NOT include these companies: %s.", strings.Join(exclude, ", "))
	}
	b.WriteString("\n\n")
	b.WriteString(`INSTRUCTIONS:
1. SEARCH: Use live web search to find real, active companies.
2. PUBLIC DATA ONLY: Extract contact info (Phone, Email, Address) from public websites, directories, and social profiles.
3. FORMAT: Return ONLY a JSON Array. Do not write "Here is the data".

REQUIRED JSON STRUCTURE:
[
  {
    "company": "string",
    "description": "string",
    "location": "City, Country",
    "googleMapsUrl": "string",
    "confidence": number (0-100),
    "website": "string",
    "contact": "Phone | Email",
    "industry": "string",
    "employees": "string",
    "socials": { "linkedin": "", "instagram": "", "whatsapp": "", "facebook": "", "twitter": "" },
    "management": [{ "name": "string", "role": "string", "linkedin": "string" }]
  }
]
`)
	return b.String()
}
