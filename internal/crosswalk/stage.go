package crosswalk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb/geojson"

	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Output file names.
const (
	CrosswalkFile        = "tract_to_response_area_crosswalk.csv"
	AreaDemographicsFile = "response_area_demographics.csv"
	AreaGeoJSONFile      = "response_areas_with_demographics.geojson"
)

// responseAreaIDKeys are the property names tried, in order, for the
// response-area identifier. OBJECTID is the ArcGIS fallback every layer
// carries.
var responseAreaIDKeys = []string{
	"RESPONSE_AREA_ID", "RESPONSE_AREA", "RESPONSE_AR", "RESPONSE_A",
	"AREA_ID", "OBJECTID",
}

// Stage builds the tract-to-response-area crosswalk and allocates census
// demographics through it.
type Stage struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStage wires the crosswalk stage.
func NewStage(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Stage {
	return &Stage{cfg: cfg, logger: logger, metrics: metrics}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "crosswalk" }

// Run loads both boundary layers and the census tables, computes the
// area-weighted overlay in a projected CRS, and writes the crosswalk, the
// per-area demographics, and a GeoJSON carrying both.
func (s *Stage) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tracts, areas, err := s.loadLayers()
	if err != nil {
		return err
	}

	census, err := LoadCensus(
		filepath.Join(s.cfg.RawDir, download.CensusPopulationFile),
		filepath.Join(s.cfg.RawDir, download.CensusHousingFile),
		filepath.Join(s.cfg.RawDir, download.CensusYearBuiltFile),
	)
	if err != nil {
		return err
	}
	s.logger.Info("loaded census tables", "tracts", len(census))

	// All area math happens in projected coordinates; the GeoJSON output
	// keeps the original geographic geometry.
	proj := geo.UTMProjection(s.cfg.UTMZone)
	projTracts := make([]geo.TractShape, len(tracts))
	for i, t := range tracts {
		projTracts[i] = geo.TractShape{
			GEOID:    t.GEOID,
			CountyFP: t.CountyFP,
			Geometry: geo.ProjectMultiPolygon(t.Geometry, proj),
		}
	}
	projAreas := make([]geo.Feature, len(areas))
	for i, a := range areas {
		projAreas[i] = geo.Feature{ID: a.ID, Geometry: geo.ProjectMultiPolygon(a.Geometry, proj)}
	}

	weights, stats := BuildWeights(projTracts, projAreas)
	s.metrics.GeometrySkips.WithLabelValues("tract", "zero_area").Add(float64(stats.ZeroAreaTracts))
	s.metrics.GeometrySkips.WithLabelValues("overlay", "invalid").Add(float64(stats.FailedPairs))
	s.logger.Info("built crosswalk",
		"pairs", len(weights),
		"zero_area_tracts", stats.ZeroAreaTracts,
		"failed_pairs", stats.FailedPairs,
	)

	for geoid, sum := range WeightSums(weights) {
		if sum > 1+1e-6 {
			s.logger.Warn("tract weight sum exceeds 1, response areas overlap",
				"geoid", geoid, "sum", sum)
		}
	}

	demo, missing := Allocate(weights, census)
	if missing > 0 {
		s.logger.Warn("crosswalk tracts missing from census tables", "count", missing)
		s.metrics.RowsSkipped.WithLabelValues("crosswalk", "missing_demographics").Add(float64(missing))
	}

	relErr := CheckConservation(weights, census, demo)
	s.metrics.ConservationError.Set(relErr)
	if relErr > s.cfg.ConservationTolerance {
		s.logger.Error("allocated population does not conserve input population",
			"relative_error", relErr, "tolerance", s.cfg.ConservationTolerance)
	} else {
		s.logger.Info("population conservation validated", "relative_error", relErr)
	}

	final := Finalize(projAreas, demo, s.cfg.UrbanCoreDensity, s.cfg.InnerSuburbanDensity)

	if err := writeCSV(filepath.Join(s.cfg.ProcessedDir, CrosswalkFile), &weights); err != nil {
		return fmt.Errorf("write crosswalk: %w", err)
	}
	if err := writeCSV(filepath.Join(s.cfg.ProcessedDir, AreaDemographicsFile), &final); err != nil {
		return fmt.Errorf("write area demographics: %w", err)
	}
	if err := s.writeGeoJSON(areas, final); err != nil {
		return err
	}
	s.metrics.RowsWritten.WithLabelValues("crosswalk").Add(float64(len(weights)))

	return nil
}

// loadLayers reads the tract shapefile (filtered to the configured county)
// and the response-area GeoJSON.
func (s *Stage) loadLayers() ([]geo.TractShape, []geo.Feature, error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.RawDir, download.TractShapeDir, "*.shp"))
	if err != nil || len(matches) == 0 {
		return nil, nil, fmt.Errorf("no tract shapefile under %s", filepath.Join(s.cfg.RawDir, download.TractShapeDir))
	}

	tracts, skippedTracts, err := geo.LoadTracts(matches[0], s.cfg.CountyFIPS)
	if err != nil {
		return nil, nil, fmt.Errorf("load tracts: %w", err)
	}
	s.metrics.GeometrySkips.WithLabelValues("tract", "invalid").Add(float64(skippedTracts))
	s.logger.Info("loaded census tracts", "count", len(tracts), "skipped", skippedTracts, "county", s.cfg.CountyFIPS)

	areas, skippedAreas, err := geo.LoadPolygons(
		filepath.Join(s.cfg.RawDir, download.ResponseAreasFile), responseAreaIDKeys...)
	if err != nil {
		return nil, nil, fmt.Errorf("load response areas: %w", err)
	}
	s.metrics.GeometrySkips.WithLabelValues("response_area", "invalid").Add(float64(skippedAreas))
	s.logger.Info("loaded response areas", "count", len(areas), "skipped", skippedAreas)

	if len(tracts) == 0 || len(areas) == 0 {
		return nil, nil, fmt.Errorf("empty boundary layer: %d tracts, %d response areas", len(tracts), len(areas))
	}
	return tracts, areas, nil
}

// writeGeoJSON emits the response areas in geographic coordinates with the
// allocated demographics attached as properties.
func (s *Stage) writeGeoJSON(areas []geo.Feature, final []*domain.AreaDemographics) error {
	byID := make(map[string]*domain.AreaDemographics, len(final))
	for _, a := range final {
		byID[a.ResponseAreaID] = a
	}

	fc := geojson.NewFeatureCollection()
	for _, area := range areas {
		f := geojson.NewFeature(area.Geometry)
		if a, ok := byID[area.ID]; ok {
			f.Properties = areaProperties(a)
		} else {
			f.Properties = geojson.Properties{"response_area_id": area.ID}
		}
		fc.Append(f)
	}

	path := filepath.Join(s.cfg.ProcessedDir, AreaGeoJSONFile)
	if err := geo.WriteFeatureCollection(path, fc); err != nil {
		return fmt.Errorf("write area geojson: %w", err)
	}
	return nil
}

func areaProperties(a *domain.AreaDemographics) geojson.Properties {
	return geojson.Properties{
		"response_area_id":    a.ResponseAreaID,
		"population":          a.Population,
		"total_units":         a.TotalUnits,
		"single_family":       a.SingleFamily,
		"multifamily":         a.Multifamily,
		"pct_single_family":   a.PctSingleFamily,
		"pct_multifamily":     a.PctMultifamily,
		"pct_built_2010_plus": a.PctBuilt2010Plus,
		"pct_built_pre_1970":  a.PctBuiltPre1970,
		"area_sq_miles":       a.AreaSqMiles,
		"pop_density":         a.PopDensity,
		"urban_class":         a.UrbanClass,
	}
}

func writeCSV(path string, records interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(records, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
