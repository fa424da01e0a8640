// Package pipeline sequences the analysis stages and tracks their
// progress for observability.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

// Stage is one step of the analysis pipeline. Stages communicate through
// files on disk; each stage reads its predecessors' outputs.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Pipeline runs stages in order, failing fast on the first error.
type Pipeline struct {
	stages  []Stage
	logger  *slog.Logger
	metrics *observability.Metrics
	done    atomic.Bool
}

// New creates a Pipeline over the given stages.
func New(logger *slog.Logger, metrics *observability.Metrics, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger, metrics: metrics}
}

// CheckReadiness returns nil once every stage has completed, or an error
// describing why the run is not finished.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.done.Load() {
		return errors.New("pipeline run has not completed")
	}
	return nil
}

// Run executes the stages sequentially. A stage error aborts the run; later
// stages depend on earlier outputs, so there is nothing useful to continue
// with.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "stages", len(p.stages))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}

		start := domain.Clock().Now()
		p.logger.Info("stage starting", "stage", stage.Name())

		if err := stage.Run(ctx); err != nil {
			p.metrics.StageFailures.WithLabelValues(stage.Name()).Inc()
			p.logger.Error("stage failed", "stage", stage.Name(), "error", err)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		elapsed := domain.Clock().Since(start)
		p.metrics.StageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())
		p.logger.Info("stage complete", "stage", stage.Name(), "duration", elapsed)
	}

	p.done.Store(true)
	p.logger.Info("pipeline complete")
	return nil
}
