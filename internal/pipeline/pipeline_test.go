package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
)

type fakeStage struct {
	name    string
	err     error
	runs    int
	advance time.Duration
	clock   *clockwork.FakeClock
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(ctx context.Context) error {
	f.runs++
	if f.advance > 0 {
		f.clock.Advance(f.advance)
	}
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineRun(t *testing.T) {
	t.Run("runs stages in order", func(t *testing.T) {
		a := &fakeStage{name: "a"}
		b := &fakeStage{name: "b"}
		p := New(testLogger(), observability.NewMetricsForTesting(), a, b)

		require.NoError(t, p.Run(context.Background()))
		assert.Equal(t, 1, a.runs)
		assert.Equal(t, 1, b.runs)
		assert.NoError(t, p.CheckReadiness(context.Background()))
	})

	t.Run("fails fast on stage error", func(t *testing.T) {
		a := &fakeStage{name: "a", err: errors.New("boom")}
		b := &fakeStage{name: "b"}
		p := New(testLogger(), observability.NewMetricsForTesting(), a, b)

		err := p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stage a")
		assert.Zero(t, b.runs, "later stages must not run after a failure")
		assert.Error(t, p.CheckReadiness(context.Background()))
	})

	t.Run("records stage duration from the injected clock", func(t *testing.T) {
		fake := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
		domain.SetClock(fake)
		t.Cleanup(func() {
			domain.SetClock(nil)
		})

		m := observability.NewMetricsForTesting()
		a := &fakeStage{name: "a", advance: 42 * time.Second, clock: fake}
		p := New(testLogger(), m, a)

		require.NoError(t, p.Run(context.Background()))

		var pb dto.Metric
		require.NoError(t, m.StageDuration.WithLabelValues("a").(prometheus.Metric).Write(&pb))
		assert.Equal(t, uint64(1), pb.GetHistogram().GetSampleCount())
		assert.InDelta(t, 42.0, pb.GetHistogram().GetSampleSum(), 1e-9)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := &fakeStage{name: "a"}
		p := New(testLogger(), observability.NewMetricsForTesting(), a)

		require.Error(t, p.Run(ctx))
		assert.Zero(t, a.runs)
	})
}

func TestCheckReadiness_BeforeRun(t *testing.T) {
	p := New(testLogger(), observability.NewMetricsForTesting())
	assert.Error(t, p.CheckReadiness(context.Background()))
}
