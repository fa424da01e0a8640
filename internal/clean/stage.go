package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Output file names.
const (
	IncidentsCleanFile = "incidents_clean.csv"
	TypeSummaryFile    = "incident_type_summary.csv"
)

// Stage normalizes raw incident CSVs into the cleaned dataset.
type Stage struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStage wires the clean stage.
func NewStage(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Stage {
	return &Stage{cfg: cfg, logger: logger, metrics: metrics}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "clean" }

// Run loads both incident vintages (the historical one is optional),
// normalizes them, and writes the cleaned incidents plus the category
// summary.
func (s *Stage) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := loadRawIncidents(filepath.Join(s.cfg.RawDir, download.IncidentsRecentFile))
	if err != nil {
		return fmt.Errorf("load recent incidents: %w", err)
	}

	historical, err := loadRawIncidents(filepath.Join(s.cfg.RawDir, download.IncidentsHistoricalFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("historical incidents file missing, cleaning recent vintage only")
	case err != nil:
		return fmt.Errorf("load historical incidents: %w", err)
	default:
		raw = append(raw, historical...)
	}

	incidents, stats := Normalize(raw, s.cfg.Jurisdiction)
	s.logger.Info("normalized incidents",
		"input", stats.Input,
		"kept", stats.Kept,
		"duplicates", stats.Duplicates,
		"bad_coordinates", stats.BadCoordinates,
		"filtered_jurisdiction", stats.FilteredJurisdiction,
	)
	s.metrics.RowsWritten.WithLabelValues("clean").Add(float64(stats.Kept))
	s.metrics.RowsSkipped.WithLabelValues("clean", "duplicate").Add(float64(stats.Duplicates))
	s.metrics.RowsSkipped.WithLabelValues("clean", "bad_coordinates").Add(float64(stats.BadCoordinates))
	s.metrics.RowsSkipped.WithLabelValues("clean", "jurisdiction").Add(float64(stats.FilteredJurisdiction))
	s.metrics.RowsSkipped.WithLabelValues("clean", "bad_year").Add(float64(stats.BadYear))

	cleanPath := filepath.Join(s.cfg.ProcessedDir, IncidentsCleanFile)
	if err := writeCSV(cleanPath, &incidents); err != nil {
		return fmt.Errorf("write cleaned incidents: %w", err)
	}

	summary := Summarize(incidents)
	summaryPath := filepath.Join(s.cfg.OutputsDir, TypeSummaryFile)
	if err := writeCSV(summaryPath, &summary); err != nil {
		return fmt.Errorf("write type summary: %w", err)
	}

	return nil
}

func loadRawIncidents(path string) ([]*domain.RawIncident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []*domain.RawIncident
	if err := gocsv.UnmarshalFile(f, &raw); err != nil {
		// A header-only file from an empty upstream resource is fine.
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return raw, nil
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
