package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Raw file names written into the raw data directory. Downstream stages read
// these fixed paths.
const (
	IncidentsRecentFile     = "incidents_2022_2024.csv"
	IncidentsHistoricalFile = "incidents_2018_2021.csv"
	ResponseAreasFile       = "response_areas.geojson"
	FireStationsFile        = "fire_stations.geojson"
	CensusPopulationFile    = "census_population.csv"
	CensusHousingFile       = "census_housing.csv"
	CensusYearBuiltFile     = "census_year_built.csv"
	TractZipFile            = "tracts.zip"
	TractShapeDir           = "tracts"
)

// Census ACS variable lists. NAME rides along for spot-checking; the suffix
// geography columns (state, county, tract) come back automatically.
var (
	populationVars = []string{"B01003_001E", "NAME"}
	housingVars    = censusTableVars("B25024", 11)
	yearBuiltVars  = censusTableVars("B25034", 11)
)

func censusTableVars(table string, count int) []string {
	vars := make([]string, 0, count+1)
	for i := 1; i <= count; i++ {
		vars = append(vars, fmt.Sprintf("%s_%03dE", table, i))
	}
	return append(vars, "NAME")
}

// Stage downloads all raw inputs for the pipeline.
type Stage struct {
	cfg     *config.Config
	client  *Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStage wires the download stage.
func NewStage(cfg *config.Config, client *Client, logger *slog.Logger, metrics *observability.Metrics) *Stage {
	return &Stage{cfg: cfg, client: client, logger: logger, metrics: metrics}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "download" }

// Run fetches every upstream source into the raw directory. The historical
// incident vintage is optional upstream; its absence is logged and tolerated,
// matching the clean stage's single-vintage fallback. Everything else is
// required and aborts the stage on failure.
func (s *Stage) Run(ctx context.Context) error {
	raw := func(name string) string { return filepath.Join(s.cfg.RawDir, name) }

	n, err := s.client.FetchIncidents(ctx, s.cfg.IncidentsRecentURL, s.cfg.SocrataPage, raw(IncidentsRecentFile))
	if err != nil {
		return fmt.Errorf("fetch recent incidents: %w", err)
	}
	s.metrics.RecordsFetched.WithLabelValues("incidents").Add(float64(n))

	n, err = s.client.FetchIncidents(ctx, s.cfg.IncidentsHistoricalURL, s.cfg.SocrataPage, raw(IncidentsHistoricalFile))
	if err != nil {
		s.logger.Warn("historical incidents unavailable, proceeding with recent vintage only", "error", err)
	} else {
		s.metrics.RecordsFetched.WithLabelValues("incidents").Add(float64(n))
	}

	if err := s.client.FetchFile(ctx, s.cfg.ResponseAreasURL, raw(ResponseAreasFile)); err != nil {
		return fmt.Errorf("fetch response areas: %w", err)
	}
	s.metrics.RecordsFetched.WithLabelValues("boundaries").Inc()

	if err := s.client.FetchFile(ctx, s.cfg.FireStationsURL, raw(FireStationsFile)); err != nil {
		return fmt.Errorf("fetch fire stations: %w", err)
	}
	s.metrics.RecordsFetched.WithLabelValues("boundaries").Inc()

	censusTables := []struct {
		vars []string
		file string
	}{
		{populationVars, CensusPopulationFile},
		{housingVars, CensusHousingFile},
		{yearBuiltVars, CensusYearBuiltFile},
	}
	for _, tbl := range censusTables {
		n, err := s.client.FetchCensusTable(ctx, s.cfg.CensusAPIBase, s.cfg.CensusYear,
			tbl.vars, s.cfg.StateFIPS, s.cfg.CountyFIPS, raw(tbl.file))
		if err != nil {
			return fmt.Errorf("fetch census table %s: %w", tbl.file, err)
		}
		s.metrics.RecordsFetched.WithLabelValues("census").Add(float64(n))
	}

	if err := s.client.FetchFile(ctx, s.cfg.TractShapefileURL, raw(TractZipFile)); err != nil {
		return fmt.Errorf("fetch tract boundaries: %w", err)
	}
	if err := Unzip(raw(TractZipFile), raw(TractShapeDir)); err != nil {
		return fmt.Errorf("extract tract boundaries: %w", err)
	}
	s.metrics.RecordsFetched.WithLabelValues("tracts").Inc()

	return nil
}
