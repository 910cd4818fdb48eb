package enrich

import (
	"context"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/google"
)

// mapsSearchPrefix marks a maps link built from free text rather than a
// resolved place.
const mapsSearchPrefix = "https://www.google.com/maps/search/"

// PlacesProvider resolves a lead to a Google Places result for map
// coordinates and a canonical maps link.
type PlacesProvider struct {
	client google.Client
}

// NewPlacesProvider creates the provider.
func NewPlacesProvider(client google.Client) *PlacesProvider {
	return &PlacesProvider{client: client}
}

// Name implements Provider.
func (p *PlacesProvider) Name() string { return "google_places" }

// Enrich implements Provider.
func (p *PlacesProvider) Enrich(ctx context.Context, lead model.Lead) (model.Lead, error) {
	if lead.Coordinates != nil {
		return lead, nil
	}
	query := strings.TrimSpace(lead.Company + " " + lead.Location)
	resp, err := p.client.TextSearch(ctx, query)
	if err != nil {
		return lead, err
	}
	if resp == nil || len(resp.Places) == 0 {
		return lead, nil
	}

	place := resp.Places[0]
	if place.Location != nil {
		lead.Coordinates = &model.Coordinates{Lat: place.Location.Latitude, Lng: place.Location.Longitude}
	}
	if place.GoogleMapsURI != "" && (lead.GoogleMapsURL == "" || strings.HasPrefix(lead.GoogleMapsURL, mapsSearchPrefix)) {
		lead.GoogleMapsURL = place.GoogleMapsURI
	}
	if lead.Website == "" {
		lead.Website = place.WebsiteURI
	}
	if empty(lead.Contact) && place.InternationalPhoneNumber != "" {
		lead.Contact = place.InternationalPhoneNumber
	}
	if empty(lead.Location) && place.FormattedAddress != "" {
		lead.Location = place.FormattedAddress
	}
	return lead, nil
}
