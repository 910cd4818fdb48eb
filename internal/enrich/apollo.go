package enrich

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/apollo"
)

// managementTitles are the roles looked up when a lead has no management.
var managementTitles = []string{"ceo", "founder", "co-founder", "managing director", "cto", "head of sales"}

var titleCase = cases.Title(language.English)

// ApolloProvider fills firmographics from Apollo's organization record.
// Fields the generator already filled are kept.
type ApolloProvider struct {
	client apollo.Client
	people bool
}

// NewApolloProvider creates the provider. When people is true, leads
// without management contacts also get a people search.
func NewApolloProvider(client apollo.Client, people bool) *ApolloProvider {
	return &ApolloProvider{client: client, people: people}
}

// Name implements Provider.
func (p *ApolloProvider) Name() string { return "apollo" }

// Enrich implements Provider.
func (p *ApolloProvider) Enrich(ctx context.Context, lead model.Lead) (model.Lead, error) {
	domain := Domain(lead.Website)
	if domain == "" {
		return lead, nil
	}

	org, err := p.client.EnrichOrganization(ctx, domain)
	if err != nil {
		return lead, err
	}
	if org != nil {
		mergeOrganization(&lead, org)
	}

	if p.people && len(lead.Management) == 0 {
		people, err := p.client.SearchPeople(ctx, apollo.PeopleSearchRequest{Domain: domain, Titles: managementTitles, PerPage: 3})
		if err != nil {
			return lead, err
		}
		for _, person := range people {
			if strings.TrimSpace(person.Name) == "" {
				continue
			}
			lead.Management = append(lead.Management, model.Manager{
				Name:     person.Name,
				Role:     person.Title,
				LinkedIn: person.LinkedInURL,
			})
		}
	}
	return lead, nil
}

func mergeOrganization(lead *model.Lead, org *apollo.Organization) {
	if empty(lead.Industry) && org.Industry != "" {
		lead.Industry = titleCase.String(org.Industry)
	}
	if empty(lead.Employees) && org.EstimatedNumEmployees > 0 {
		lead.Employees = strconv.Itoa(org.EstimatedNumEmployees)
	}
	if empty(lead.Description) && org.ShortDescription != "" {
		lead.Description = org.ShortDescription
	}
	if empty(lead.Location) {
		var parts []string
		for _, s := range []string{org.City, org.Country} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		lead.Location = strings.Join(parts, ", ")
	}
	if empty(lead.Contact) && org.Phone != "" {
		lead.Contact = org.Phone
	}
	if lead.Socials.LinkedIn == "" {
		lead.Socials.LinkedIn = org.LinkedInURL
	}
	if lead.Socials.Twitter == "" {
		lead.Socials.Twitter = org.TwitterURL
	}
	if lead.Socials.Facebook == "" {
		lead.Socials.Facebook = org.FacebookURL
	}
}
