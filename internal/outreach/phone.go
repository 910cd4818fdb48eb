// Package outreach drafts cold outreach and delivers it over SMS and
// WhatsApp.
package outreach

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// DefaultCountryCode is prefixed to 10-digit local numbers that start with 0.
const DefaultCountryCode = "233"

// minPhoneDigits is the shortest digit run accepted as a phone number from
// free text.
const minPhoneDigits = 7

var (
	nonDigit  = regexp.MustCompile(`\D`)
	phoneLike = regexp.MustCompile(`[\d\-+()\s]+`)
)

// FormatPhoneNumber strips everything but digits and converts a 10-digit
// local number with a leading 0 into international form without "+".
// It returns "" when no digits remain.
func FormatPhoneNumber(phone string) string {
	clean := nonDigit.ReplaceAllString(phone, "")
	if len(clean) == 10 && strings.HasPrefix(clean, "0") {
		clean = DefaultCountryCode + clean[1:]
	}
	return clean
}

// LeadPhone picks the number to message for a lead: the WhatsApp handle
// first, then the first run in the contact field with at least
// minPhoneDigits digits.
func LeadPhone(l model.Lead) string {
	if p := FormatPhoneNumber(l.Socials.WhatsApp); p != "" {
		return p
	}
	for _, m := range phoneLike.FindAllString(l.Contact, -1) {
		if p := FormatPhoneNumber(m); len(p) >= minPhoneDigits {
			return p
		}
	}
	return ""
}

// ContactName is the first manager's name, or "there" for a generic greeting.
func ContactName(l model.Lead) string {
	if len(l.Management) > 0 && strings.TrimSpace(l.Management[0].Name) != "" {
		return strings.TrimSpace(l.Management[0].Name)
	}
	return "there"
}

// Render fills {{name}}, {{company}} and {{industry}} placeholders.
func Render(template string, l model.Lead) string {
	industry := l.Industry
	if industry == "" || industry == model.DefaultIndustry {
		industry = "your industry"
	}
	return strings.NewReplacer(
		"{{name}}", ContactName(l),
		"{{company}}", l.Company,
		"{{industry}}", industry,
	).Replace(template)
}

// WhatsAppLink builds a click-to-chat link with a prefilled message.
func WhatsAppLink(phone, message string) string {
	link := "https://wa.me/" + FormatPhoneNumber(phone)
	if message != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	}
	return link
}

// WhatsAppItem is one lead's click-to-chat entry in a broadcast.
type WhatsAppItem struct {
	LeadID  string `json:"lead_id"`
	Company string `json:"company"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// WhatsAppBroadcast renders template for each lead. Leads without a phone
// number get no link.
func WhatsAppBroadcast(leads []model.Lead, template string) []WhatsAppItem {
	items := make([]WhatsAppItem, 0, len(leads))
	for _, l := range leads {
		msg := Render(template, l)
		item := WhatsAppItem{
			LeadID:  l.ID,
			Company: l.Company,
			Name:    ContactName(l),
			Phone:   LeadPhone(l),
			Message: msg,
		}
		if item.Phone != "" {
			item.Link = WhatsAppLink(item.Phone, msg)
		}
		items = append(items, item)
	}
	return items
}
