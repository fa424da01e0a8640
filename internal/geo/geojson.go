// Package geo wraps the geometry stack: GeoJSON and shapefile loading into
// orb types, planar reprojection, and the polygon overlay used by the
// crosswalk. All area math happens in a projected meter-based CRS; callers
// must project geographic (degree) geometries first.
package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one polygonal feature with its identifying attributes.
type Feature struct {
	ID       string
	Geometry orb.MultiPolygon
	Props    map[string]interface{}
}

// Point is one point feature with its attributes.
type Point struct {
	Location orb.Point
	Props    map[string]interface{}
}

// LoadPolygons reads a GeoJSON FeatureCollection and returns its polygonal
// features. The feature ID is taken from the first of idKeys found in the
// properties; features with none of them, or with non-areal geometry, are
// returned in the skipped count rather than failing the load.
func LoadPolygons(path string, idKeys ...string) ([]Feature, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parse geojson %s: %w", path, err)
	}

	var features []Feature
	skipped := 0
	for _, f := range fc.Features {
		mp, ok := toMultiPolygon(f.Geometry)
		if !ok {
			skipped++
			continue
		}
		id := PropString(f.Properties, idKeys...)
		if id == "" {
			skipped++
			continue
		}
		features = append(features, Feature{ID: id, Geometry: mp, Props: f.Properties})
	}
	return features, skipped, nil
}

// LoadPoints reads a GeoJSON FeatureCollection of point features.
func LoadPoints(path string) ([]Point, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parse geojson %s: %w", path, err)
	}

	var points []Point
	skipped := 0
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		points = append(points, Point{Location: pt, Props: f.Properties})
	}
	return points, skipped, nil
}

// WriteFeatureCollection marshals fc to path, creating parent directories.
func WriteFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}, true
	case orb.MultiPolygon:
		return geom, true
	default:
		return nil, false
	}
}

// PropString returns the first of keys present in props, stringified. ArcGIS
// layers sometimes carry numeric IDs; those are formatted without an exponent.
func PropString(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case int:
			return strconv.Itoa(val)
		}
	}
	return ""
}
