package visualize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Output file names.
const (
	ChartUrbanFile             = "chart_urban_comparison.png"
	ChartHousingFile           = "chart_housing_correlation.png"
	ChartIncidentFile          = "chart_incident_types.png"
	ChartBuildingAgeFile       = "chart_building_age.png"
	ChartTimeSeriesFile        = "chart_time_series.png"
	ChartUrbanYearlyFile       = "chart_urban_comparison_yearly.png"
	ChartIncidentYearlyFile    = "chart_incident_types_yearly.png"
	ChartBuildingAgeYearlyFile = "chart_building_age_yearly.png"
	MapPerCapitaFile           = "map_incidents_per_capita.html"
	MapClassFile               = "map_urban_classification.html"
	MapHousingFile             = "map_housing_typology.html"
	MapBuildingAgeFile         = "map_building_age.html"
	MapStationsFile            = "map_fire_stations.html"
)

// Stage renders charts and maps from the analysis outputs.
type Stage struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStage wires the visualize stage.
func NewStage(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Stage {
	return &Stage{cfg: cfg, logger: logger, metrics: metrics}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "visualize" }

// Run reads the analysis outputs and writes every chart and map.
func (s *Stage) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	geoPath := filepath.Join(s.cfg.ProcessedDir, analyze.FinalGeoJSONFile)
	geoJSON, err := os.ReadFile(geoPath)
	if err != nil {
		return fmt.Errorf("read final geojson: %w", err)
	}
	areas, err := loadMergedAreas(geoPath)
	if err != nil {
		return err
	}

	var urban []*analyze.UrbanClassSummary
	if err := loadCSV(filepath.Join(s.cfg.OutputsDir, analyze.UrbanClassFile), &urban); err != nil {
		return fmt.Errorf("load urban class summary: %w", err)
	}
	var byType []*analyze.IncidentTypeSummary
	if err := loadCSV(filepath.Join(s.cfg.OutputsDir, analyze.IncidentTypeFile), &byType); err != nil {
		return fmt.Errorf("load incident type summary: %w", err)
	}
	var byAge []*analyze.BuildingAgeSummary
	if err := loadCSV(filepath.Join(s.cfg.OutputsDir, analyze.BuildingAgeFile), &byAge); err != nil {
		return fmt.Errorf("load building age summary: %w", err)
	}
	var series []*analyze.YearSummary
	if err := loadCSV(filepath.Join(s.cfg.OutputsDir, analyze.TimeSeriesFile), &series); err != nil {
		return fmt.Errorf("load time series: %w", err)
	}
	var incidents []*analyze.JoinedIncident
	if err := loadCSV(filepath.Join(s.cfg.ProcessedDir, analyze.IncidentsJoinedFile), &incidents); err != nil {
		return fmt.Errorf("load joined incidents: %w", err)
	}

	out := func(name string) string { return filepath.Join(s.cfg.OutputsDir, name) }

	charts := []struct {
		name   string
		render func() error
	}{
		{ChartUrbanFile, func() error { return ChartUrbanComparison(urban, out(ChartUrbanFile)) }},
		{ChartHousingFile, func() error { return ChartHousingCorrelation(areas, out(ChartHousingFile)) }},
		{ChartIncidentFile, func() error { return ChartIncidentTypes(byType, out(ChartIncidentFile)) }},
		{ChartBuildingAgeFile, func() error { return ChartBuildingAge(byAge, out(ChartBuildingAgeFile)) }},
		{ChartTimeSeriesFile, func() error { return ChartTimeSeries(series, out(ChartTimeSeriesFile)) }},
		{ChartUrbanYearlyFile, func() error { return ChartUrbanComparisonYearly(incidents, areas, out(ChartUrbanYearlyFile)) }},
		{ChartIncidentYearlyFile, func() error { return ChartIncidentTypesYearly(incidents, areas, out(ChartIncidentYearlyFile)) }},
		{ChartBuildingAgeYearlyFile, func() error { return ChartBuildingAgeYearly(incidents, areas, out(ChartBuildingAgeYearlyFile)) }},
	}
	for _, c := range charts {
		if err := c.render(); err != nil {
			return fmt.Errorf("render %s: %w", c.name, err)
		}
		s.logger.Info("rendered chart", "file", c.name)
	}

	if err := WriteChoroplethMap(geoJSON, areas, out(MapPerCapitaFile)); err != nil {
		return err
	}
	s.logger.Info("rendered map", "file", MapPerCapitaFile)

	maps := []struct {
		name   string
		render func() error
	}{
		{MapClassFile, func() error { return WriteClassificationMap(geoJSON, out(MapClassFile)) }},
		{MapHousingFile, func() error { return WriteHousingTypologyMap(geoJSON, out(MapHousingFile)) }},
		{MapBuildingAgeFile, func() error { return WriteBuildingAgeMap(geoJSON, out(MapBuildingAgeFile)) }},
		{MapStationsFile, func() error { return s.renderStationMap(geoJSON, areas, out(MapStationsFile)) }},
	}
	for _, m := range maps {
		if err := m.render(); err != nil {
			return fmt.Errorf("render %s: %w", m.name, err)
		}
		s.logger.Info("rendered map", "file", m.name)
	}

	s.metrics.RowsWritten.WithLabelValues("visualize").Add(float64(len(charts) + len(maps) + 1))
	return nil
}

// renderStationMap overlays station markers when the raw station layer is
// still around; the density choropleth renders either way.
func (s *Stage) renderStationMap(geoJSON []byte, areas []*analyze.MergedArea, dest string) error {
	var stations []geo.Point
	path := filepath.Join(s.cfg.RawDir, download.FireStationsFile)
	if pts, _, err := geo.LoadPoints(path); err == nil {
		stations = pts
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("skipping station markers", "path", path, "error", err)
	}
	return WriteStationMap(geoJSON, areas, stations, dest)
}

// loadMergedAreas reconstructs the per-area observations the scatter and the
// choropleth breaks need from the final GeoJSON properties.
func loadMergedAreas(path string) ([]*analyze.MergedArea, error) {
	features, _, err := geo.LoadPolygons(path, "response_area_id")
	if err != nil {
		return nil, fmt.Errorf("load final geojson: %w", err)
	}

	areas := make([]*analyze.MergedArea, 0, len(features))
	for _, f := range features {
		m := &analyze.MergedArea{
			AreaDemographics: domain.AreaDemographics{
				ResponseAreaID:   f.ID,
				UrbanClass:       geo.PropString(f.Props, "urban_class"),
				PctSingleFamily:  propFloat(f.Props, "pct_single_family"),
				PctBuilt2010Plus: propFloat(f.Props, "pct_built_2010_plus"),
				PopDensity:       propFloat(f.Props, "pop_density"),
				TractDemographics: domain.TractDemographics{
					Population: propFloat(f.Props, "population"),
					TotalUnits: propFloat(f.Props, "total_units"),
				},
			},
			IncidentsPer1000Pop:       propFloat(f.Props, "incidents_per_1000_pop"),
			AnnualIncidentsPer1000Pop: propFloat(f.Props, "annual_incidents_per_1000_pop"),
		}
		if m.UrbanClass == "" {
			m.UrbanClass = domain.UnknownClass
		}
		areas = append(areas, m)
	}
	return areas, nil
}

func propFloat(props map[string]interface{}, key string) float64 {
	if v, ok := props[key].(float64); ok {
		return v
	}
	return 0
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
