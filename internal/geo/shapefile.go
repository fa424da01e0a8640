package geo

import (
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// TractShape is one census tract polygon with the TIGER attributes the
// crosswalk needs.
type TractShape struct {
	GEOID    string
	CountyFP string
	Geometry orb.MultiPolygon
}

// LoadTracts reads a TIGER tract shapefile and returns the tracts belonging
// to countyFP (all tracts when countyFP is empty). Non-polygon records are
// counted as skipped.
func LoadTracts(path, countyFP string) ([]TractShape, int, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	geoidIdx, countyIdx := -1, -1
	for i, f := range r.Fields() {
		switch name := strings.ToUpper(strings.TrimRight(f.String(), "\x00")); {
		case strings.HasPrefix(name, "GEOID"):
			if geoidIdx < 0 {
				geoidIdx = i
			}
		case strings.HasPrefix(name, "COUNTYFP"):
			if countyIdx < 0 {
				countyIdx = i
			}
		}
	}
	if geoidIdx < 0 {
		return nil, 0, fmt.Errorf("shapefile %s has no GEOID field", path)
	}

	var tracts []TractShape
	skipped := 0
	for r.Next() {
		n, s := r.Shape()

		county := ""
		if countyIdx >= 0 {
			county = strings.TrimSpace(r.ReadAttribute(n, countyIdx))
		}
		if countyFP != "" && county != countyFP {
			continue
		}

		poly, ok := s.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMulti(poly)
		if len(mp) == 0 {
			skipped++
			continue
		}

		tracts = append(tracts, TractShape{
			GEOID:    strings.TrimSpace(r.ReadAttribute(n, geoidIdx)),
			CountyFP: county,
			Geometry: mp,
		})
	}
	if err := r.Err(); err != nil {
		return nil, 0, fmt.Errorf("read shapefile: %w", err)
	}

	return tracts, skipped, nil
}

// polygonToMulti converts a shapefile polygon record to an orb.MultiPolygon.
// Shapefile outer rings wind clockwise and holes counter-clockwise; each
// clockwise ring starts a new polygon and subsequent counter-clockwise rings
// attach to it as holes.
func polygonToMulti(p *shp.Polygon) orb.MultiPolygon {
	var mp orb.MultiPolygon

	numParts := len(p.Parts)
	for i := 0; i < numParts; i++ {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < numParts {
			end = int(p.Parts[i+1])
		}
		if end-start < 4 { // a closed ring needs at least 4 vertices
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}

		if signedRingArea(ring) < 0 { // clockwise: outer ring
			mp = append(mp, orb.Polygon{ring})
		} else if len(mp) > 0 { // counter-clockwise: hole in the last outer
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
		}
	}
	return mp
}

// signedRingArea is the shoelace sum: negative for clockwise rings.
func signedRingArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
