package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// Point returns the lead's location as a WGS84 point, or nil when the lead
// has no usable coordinates.
func Point(l model.Lead) *geom.Point {
	c := l.Coordinates
	if c == nil || (c.Lat == 0 && c.Lng == 0) {
		return nil
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
}

// Bounds returns the bounding box of every mappable lead, or nil if none
// has coordinates.
func Bounds(leads []model.Lead) *geom.Bounds {
	var b *geom.Bounds
	for _, l := range leads {
		p := Point(l)
		if p == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b.Extend(p)
	}
	return b
}

// FeatureCollection converts the mappable leads into GeoJSON features.
// Leads without coordinates are skipped.
func FeatureCollection(leads []model.Lead) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, l := range leads {
		p := Point(l)
		if p == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       l.ID,
			Geometry: p,
			Properties: map[string]any{
				"company":         l.Company,
				"industry":        l.Industry,
				"location":        l.Location,
				"website":         l.Website,
				"confidence":      l.Confidence,
				"score":           l.Score,
				"status":          string(l.Status),
				"google_maps_url": l.GoogleMapsURL,
			},
		})
	}
	fc.BBox = Bounds(leads)
	return fc
}

// WriteGeoJSON writes the mappable leads as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, leads []model.Lead) error {
	data, err := json.Marshal(FeatureCollection(leads))
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
