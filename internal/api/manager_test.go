package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/store"
)

func startTestRun(t *testing.T, m *Manager) *model.Job {
	t.Helper()
	j, err := m.Start(context.Background(),
		"plumber torrington",
		model.Coordinate{Latitude: 41.671, Longitude: -73.12},
		3, 500,
		model.TargetBusiness{PlaceID: "ChIJ123"},
		job.SubmitOptions{LanguageCode: "en", Device: "desktop", Depth: 50, Zoom: "15z"},
	)
	require.NoError(t, err)
	return j
}

func TestManagerStartSupersedesPreviousRun(t *testing.T) {
	provider := newFakeProvider()
	m := NewManager(
		job.NewSubmitter(provider),
		job.NewPoller(provider, 4),
		idleClock{},
		job.CoordinatorConfig{}, // unbounded polling
		nil,
	)
	defer m.Shutdown()

	first := startTestRun(t, m)
	second := startTestRun(t, m)
	require.NotEqual(t, first.ID, second.ID)

	// The first run is evicted: it can no longer be stopped or read.
	assert.False(t, m.Stop(first.ID))
	_, err := m.Snapshot(context.Background(), first.ID)
	assert.Error(t, err)

	snap, err := m.Snapshot(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, snap.Status)

	// The first run's poll loop was cancelled, not just forgotten: once
	// the second run is stopped too, task fetches cease entirely. Both
	// loops poll unbounded here, so a surviving loop would keep the
	// counter climbing.
	require.True(t, m.Stop(second.ID))
	require.Eventually(t, func() bool {
		before := provider.fetchCount()
		time.Sleep(20 * time.Millisecond)
		return provider.fetchCount() == before
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManagerEvictsFinishedRunWithStore(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	provider := newFakeProvider()
	m := NewManager(
		job.NewSubmitter(provider),
		job.NewPoller(provider, 4),
		idleClock{},
		job.CoordinatorConfig{MaxPollAttempts: 2},
		st,
	)
	defer m.Shutdown()

	j := startTestRun(t, m)

	// Tasks never resolve, so the attempt bound ends the loop; the run
	// must then leave the in-memory table.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		_, live := m.runs[j.ID]
		m.mu.Unlock()
		return !live
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, m.Stop(j.ID))

	// Reads fall through to the store.
	snap, err := m.Snapshot(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, snap.Status)
	assert.Len(t, snap.Tasks, 9)
}
