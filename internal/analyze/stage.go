package analyze

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb/geojson"

	"github.com/atxcivic/fire-analysis-etl/internal/clean"
	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/crosswalk"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Output file names.
const (
	IncidentsJoinedFile   = "incidents_with_demographics.csv"
	FinalGeoJSONFile      = "response_areas_final.geojson"
	UrbanClassFile        = "summary_by_urban_class.csv"
	HousingTypeFile       = "summary_by_housing_type.csv"
	IncidentTypeFile      = "summary_by_incident_type.csv"
	BuildingAgeFile       = "summary_by_building_age.csv"
	BuildingAgeMatrixFile = "building_age_matrix.csv"
	TimeSeriesFile        = "time_series_analysis.csv"
	StationCoverageFile   = "station_coverage.csv"
	StatisticalTestsFile  = "statistical_tests.txt"

	HousingTrendFile      = "structure_fires_by_housing_trend.csv"
	UrbanTrendFile        = "structure_fires_by_urban_trend.csv"
	HousingTrendPivotFile = "structure_fires_housing_pivot.csv"
	UrbanTrendPivotFile   = "structure_fires_urban_pivot.csv"
)

// JoinedIncident is one cleaned incident annotated with the demographics of
// its response area.
type JoinedIncident struct {
	domain.Incident

	UrbanClass       string  `csv:"urban_class"`
	PctSingleFamily  float64 `csv:"pct_single_family"`
	PctBuilt2010Plus float64 `csv:"pct_built_2010_plus"`
	AreaPopulation   float64 `csv:"area_population"`
}

// Stage joins incidents to response areas and produces every analytical
// summary plus the statistical report.
type Stage struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStage wires the analyze stage.
func NewStage(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Stage {
	return &Stage{cfg: cfg, logger: logger, metrics: metrics}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "analyze" }

// Run executes the analysis against the clean and crosswalk outputs.
func (s *Stage) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	incidents, err := loadIncidents(filepath.Join(s.cfg.ProcessedDir, clean.IncidentsCleanFile))
	if err != nil {
		return fmt.Errorf("load cleaned incidents: %w", err)
	}

	var demo []*domain.AreaDemographics
	if err := loadCSV(filepath.Join(s.cfg.ProcessedDir, crosswalk.AreaDemographicsFile), &demo); err != nil {
		return fmt.Errorf("load area demographics: %w", err)
	}

	areas, skipped, err := geo.LoadPolygons(
		filepath.Join(s.cfg.ProcessedDir, crosswalk.AreaGeoJSONFile), "response_area_id")
	if err != nil {
		return fmt.Errorf("load area geometries: %w", err)
	}
	s.metrics.GeometrySkips.WithLabelValues("response_area", "invalid").Add(float64(skipped))

	joinStats := AssignAreas(incidents, areas)
	s.logger.Info("joined incidents to response areas",
		"by_code", joinStats.ByCode,
		"by_spatial", joinStats.BySpatial,
		"unassigned", joinStats.Unassigned,
	)
	s.metrics.RowsSkipped.WithLabelValues("analyze", "unassigned").Add(float64(joinStats.Unassigned))

	years := YearSpan(incidents)
	counts := CountByArea(incidents)
	merged := Merge(demo, counts, years)
	s.logger.Info("aggregated incidents", "response_areas", len(merged), "years_of_data", years)

	var totalPop float64
	for _, m := range merged {
		if m.Population > 0 {
			totalPop += m.Population
		}
	}

	stationClasses, err := s.locateStations(merged, areas)
	if err != nil {
		s.logger.Warn("station coverage unavailable", "error", err)
	}

	if err := s.writeOutputs(incidents, merged, areas, stationClasses, totalPop, years); err != nil {
		return err
	}
	s.metrics.RowsWritten.WithLabelValues("analyze").Add(float64(len(merged)))
	return nil
}

// locateStations places each fire station in a response area and returns the
// urban class per station. Stations from other departments are ignored when
// the layer carries a department attribute.
func (s *Stage) locateStations(merged []*MergedArea, areas []geo.Feature) ([]string, error) {
	points, _, err := geo.LoadPoints(filepath.Join(s.cfg.RawDir, download.FireStationsFile))
	if err != nil {
		return nil, err
	}

	classByID := make(map[string]string, len(merged))
	for _, m := range merged {
		classByID[m.ResponseAreaID] = m.UrbanClass
	}

	var classes []string
	for _, pt := range points {
		if dept := geo.PropString(pt.Props, "DEPARTMENT", "department"); dept != "" {
			switch strings.ToUpper(dept) {
			case "AFD", "AUSTIN", "AUSTIN FIRE":
			default:
				continue
			}
		}
		for _, a := range areas {
			if geo.ContainsPoint(a.Geometry, pt.Location) {
				classes = append(classes, classByID[a.ID])
				break
			}
		}
	}
	return classes, nil
}

func (s *Stage) writeOutputs(incidents []*domain.Incident, merged []*MergedArea, areas []geo.Feature, stationClasses []string, totalPop float64, years int) error {
	byID := make(map[string]*MergedArea, len(merged))
	for _, m := range merged {
		byID[m.ResponseAreaID] = m
	}

	joined := make([]*JoinedIncident, 0, len(incidents))
	for _, inc := range incidents {
		j := &JoinedIncident{Incident: *inc}
		if m, ok := byID[inc.ResponseArea]; ok {
			j.UrbanClass = m.UrbanClass
			j.PctSingleFamily = m.PctSingleFamily
			j.PctBuilt2010Plus = m.PctBuilt2010Plus
			j.AreaPopulation = m.Population
		}
		joined = append(joined, j)
	}

	if err := writeCSV(filepath.Join(s.cfg.ProcessedDir, IncidentsJoinedFile), &joined); err != nil {
		return err
	}

	urban := SummarizeByUrbanClass(merged, years)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, UrbanClassFile), &urban); err != nil {
		return err
	}

	housing := SummarizeByHousingType(merged)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, HousingTypeFile), &housing); err != nil {
		return err
	}

	byType := SummarizeByIncidentType(merged, years)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, IncidentTypeFile), &byType); err != nil {
		return err
	}

	ageSummary, ageMatrix := SummarizeByBuildingAge(merged)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, BuildingAgeFile), &ageSummary); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, BuildingAgeMatrixFile), &ageMatrix); err != nil {
		return err
	}

	series := SummarizeByYear(incidents, totalPop)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, TimeSeriesFile), &series); err != nil {
		return err
	}

	housingTrend, urbanTrend := StructureFireTrends(incidents, merged)
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, HousingTrendFile), &housingTrend); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(s.cfg.OutputsDir, UrbanTrendFile), &urbanTrend); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(s.cfg.OutputsDir, HousingTrendPivotFile), PivotHousingRates(housingTrend)); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(s.cfg.OutputsDir, UrbanTrendPivotFile), PivotUrbanRates(urbanTrend)); err != nil {
		return err
	}

	if stationClasses != nil {
		coverage := SummarizeStationCoverage(merged, stationClasses)
		if err := writeCSV(filepath.Join(s.cfg.OutputsDir, StationCoverageFile), &coverage); err != nil {
			return err
		}
	}

	report := TestReport(merged)
	reportPath := filepath.Join(s.cfg.OutputsDir, StatisticalTestsFile)
	if err := os.MkdirAll(s.cfg.OutputsDir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", reportPath, err)
	}

	return s.writeFinalGeoJSON(merged, areas)
}

// writeFinalGeoJSON emits the response areas with demographics, counts, and
// rates attached, ready for the visualization stage.
func (s *Stage) writeFinalGeoJSON(merged []*MergedArea, areas []geo.Feature) error {
	byID := make(map[string]*MergedArea, len(merged))
	for _, m := range merged {
		byID[m.ResponseAreaID] = m
	}

	fc := geojson.NewFeatureCollection()
	for _, area := range areas {
		f := geojson.NewFeature(area.Geometry)
		props := geojson.Properties{"response_area_id": area.ID}
		if m, ok := byID[area.ID]; ok {
			props["population"] = m.Population
			props["total_units"] = m.TotalUnits
			props["pct_single_family"] = m.PctSingleFamily
			props["pct_built_2010_plus"] = m.PctBuilt2010Plus
			props["pop_density"] = m.PopDensity
			props["urban_class"] = m.UrbanClass
			props["total_incidents"] = m.TotalIncidents
			props["structure_fires"] = m.StructureFires
			props["incidents_per_1000_pop"] = m.IncidentsPer1000Pop
			props["annual_incidents_per_1000_pop"] = m.AnnualIncidentsPer1000Pop
			props["incidents_per_1000_units"] = m.IncidentsPer1000Units
		}
		f.Properties = props
		fc.Append(f)
	}

	path := filepath.Join(s.cfg.ProcessedDir, FinalGeoJSONFile)
	if err := geo.WriteFeatureCollection(path, fc); err != nil {
		return fmt.Errorf("write final geojson: %w", err)
	}
	return nil
}

func loadIncidents(path string) ([]*domain.Incident, error) {
	var incidents []*domain.Incident
	if err := loadCSV(path, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func loadCSV(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
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
