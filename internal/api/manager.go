package api

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/store"
)

// Manager owns the active grid runs started through the API. Each run
// gets its own coordinator and poll goroutine. At most one run is live
// at a time: starting a new run cancels and evicts the previous one,
// matching the one-grid-per-page behavior of the map view. Finished
// runs remain readable through the store; without a store the last
// run's snapshot stays in memory until the next start.
type Manager struct {
	submitter *job.Submitter
	poller    *job.Poller
	clock     job.Clock
	cfg       job.CoordinatorConfig
	st        store.Store // optional

	mu   sync.Mutex
	runs map[string]*activeRun
}

type activeRun struct {
	coord  *job.Coordinator
	job    *model.Job
	cancel context.CancelFunc
}

// NewManager wires a run manager. The store may be nil, in which case
// runs live only in memory.
func NewManager(submitter *job.Submitter, poller *job.Poller, clock job.Clock, cfg job.CoordinatorConfig, st store.Store) *Manager {
	return &Manager{
		submitter: submitter,
		poller:    poller,
		clock:     clock,
		cfg:       cfg,
		st:        st,
		runs:      make(map[string]*activeRun),
	}
}

// Start submits a new grid run and begins polling it in the background.
func (m *Manager) Start(ctx context.Context, keyword string, center model.Coordinate, gridSize int, spacingMeters float64, target model.TargetBusiness, opts job.SubmitOptions) (*model.Job, error) {
	cfg := m.cfg
	coord := job.NewCoordinator(m.submitter, m.poller, m.clock, cfg)

	j, err := coord.Start(ctx, keyword, center, gridSize, spacingMeters, target, opts)
	if err != nil {
		return nil, err
	}

	if m.st != nil {
		if err := m.st.CreateRun(ctx, j); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &activeRun{coord: coord, job: j, cancel: cancel}

	m.mu.Lock()
	for id, prev := range m.runs {
		prev.cancel()
		delete(m.runs, id)
	}
	m.runs[j.ID] = run
	m.mu.Unlock()

	go m.poll(runCtx, run)

	snap := coord.Snapshot(j)
	return &snap, nil
}

func (m *Manager) poll(ctx context.Context, run *activeRun) {
	log := zap.L().With(zap.String("component", "api.manager"), zap.String("run_id", run.job.ID))

	err := run.coord.Run(ctx, run.job)
	if err != nil {
		log.Warn("poll loop ended with error", zap.Error(err))
	}
	m.persist(run)

	// Once persisted, the store serves reads; drop the finished run so
	// a long-lived server does not accumulate them. Without a store the
	// snapshot stays until the next start evicts it.
	if m.st != nil {
		m.mu.Lock()
		if cur, ok := m.runs[run.job.ID]; ok && cur == run {
			delete(m.runs, run.job.ID)
		}
		m.mu.Unlock()
	}
}

func (m *Manager) persist(run *activeRun) {
	if m.st == nil {
		return
	}
	snap := run.coord.Snapshot(run.job)
	if err := store.SaveProgress(context.Background(), m.st, &snap); err != nil {
		zap.L().Warn("persist run failed", zap.String("run_id", snap.ID), zap.Error(err))
	}
}

// Snapshot returns a copy of the named run, from memory when active or
// from the store otherwise.
func (m *Manager) Snapshot(ctx context.Context, runID string) (*model.Job, error) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	m.mu.Unlock()

	if ok {
		snap := run.coord.Snapshot(run.job)
		return &snap, nil
	}
	if m.st != nil {
		return m.st.GetRun(ctx, runID)
	}
	return nil, errRunNotFound
}

// CorrectRank applies a corrected rank for one task against its owning
// run, both in memory and in the store.
func (m *Manager) CorrectRank(ctx context.Context, taskID string, records []model.ResultRecord) {
	m.mu.Lock()
	var hit *activeRun
	for _, run := range m.runs {
		if t := run.job.Task(taskID); t != nil {
			hit = run
			break
		}
	}
	m.mu.Unlock()

	if hit != nil {
		changed, err := hit.coord.CorrectRank(hit.job, taskID, records)
		if err == nil && changed {
			m.persist(hit)
		}
		return
	}

	if m.st == nil {
		return
	}
	j, err := m.st.GetRunByTask(ctx, taskID)
	if err != nil {
		return // task does not belong to a stored run
	}
	coord := job.NewCoordinator(m.submitter, m.poller, m.clock, m.cfg)
	changed, err := coord.CorrectRank(j, taskID, records)
	if err != nil || !changed {
		return
	}
	if err := m.st.UpdateTask(ctx, *j.Task(taskID)); err != nil {
		zap.L().Warn("persist corrected rank failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

// Stop cancels one active run's poll loop.
func (m *Manager) Stop(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return false
	}
	run.cancel()
	delete(m.runs, runID)
	return true
}

// Shutdown cancels every active poll loop.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, run := range m.runs {
		run.cancel()
		delete(m.runs, id)
	}
}
