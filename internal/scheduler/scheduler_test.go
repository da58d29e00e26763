package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/dataset"
	"github.com/i474232898/warming-map/internal/observability"
)

type fakeRenderer struct {
	mu       sync.Mutex
	rendered map[climate.Selector]int
	missing  map[climate.Selector]bool
}

func (f *fakeRenderer) Years(sel climate.Selector) ([]int, error) {
	if f.missing[sel] {
		return nil, dataset.ErrMissingFiles
	}
	return []int{2022, 2023, 2024}, nil
}

func (f *fakeRenderer) Render(_ context.Context, sel climate.Selector, year int, palette string, alpha uint8) (climate.Render, error) {
	if palette != climate.DefaultPalette || alpha != 190 {
		return climate.Render{}, errors.New("unexpected render options")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered[sel] = year
	return climate.Render{}, nil
}

type fakeSweeper struct {
	sweeps atomic.Int32
}

func (f *fakeSweeper) Sweep() int { f.sweeps.Add(1); return 2 }
func (f *fakeSweeper) Len() int   { return 3 }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWarm_RendersLatestYearPerSelector(t *testing.T) {
	r := &fakeRenderer{
		rendered: map[climate.Selector]int{},
		missing:  map[climate.Selector]bool{climate.Month(2): true},
	}
	s := New(r, nil, time.Hour, 190, nil, discard())

	n := s.Warm(context.Background())
	assert.Equal(t, 12, n)
	assert.Len(t, r.rendered, 12)
	assert.Equal(t, 2024, r.rendered[climate.Annual])
	assert.NotContains(t, r.rendered, climate.Month(2))
}

func TestRun_SweepsAndRecordsMetrics(t *testing.T) {
	r := &fakeRenderer{rendered: map[climate.Selector]int{}}
	sw := &fakeSweeper{}
	m := observability.NewMetricsForTesting()
	s := New(r, sw, time.Hour, 190, m, discard())

	s.Run(context.Background())
	assert.Equal(t, int32(1), sw.sweeps.Load())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupRuns))
}

func TestStart_RunsImmediately(t *testing.T) {
	r := &fakeRenderer{rendered: map[climate.Selector]int{}}
	sw := &fakeSweeper{}
	s := New(r, sw, time.Hour, 190, nil, discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.sweeps.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
