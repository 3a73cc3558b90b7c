package job

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/grid"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/rank"
)

// CoordinatorConfig tunes the poll loop.
type CoordinatorConfig struct {
	// Interval between poll cycles. Default 2.2s.
	Interval time.Duration
	// ErrorInterval is the backoff after a cycle-level transport failure.
	// Default 2.5s.
	ErrorInterval time.Duration
	// MaxPollAttempts bounds the number of poll cycles. Zero polls
	// indefinitely until all tasks resolve.
	MaxPollAttempts int
	// OnProgress, when set, is called after each merged cycle with the
	// terminal task count and the total.
	OnProgress func(done, total int)
}

// Coordinator drives one job from submission through polling to
// resolution. Exactly one poll loop may run per coordinator at a time;
// the owned Job is mutated only through the merge step.
type Coordinator struct {
	submitter *Submitter
	poller    *Poller
	clock     Clock
	cfg       CoordinatorConfig

	mu      sync.Mutex // guards the job during merges and snapshots
	polling atomic.Bool
}

// NewCoordinator wires a coordinator. A nil clock selects the system clock.
func NewCoordinator(submitter *Submitter, poller *Poller, clock Clock, cfg CoordinatorConfig) *Coordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2200 * time.Millisecond
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = 2500 * time.Millisecond
	}
	return &Coordinator{
		submitter: submitter,
		poller:    poller,
		clock:     clock,
		cfg:       cfg,
	}
}

// Start builds the grid and submits one task per cell, returning the new
// running job aggregate. The target must carry at least one identifying
// signal; without one every cell would resolve to "not found".
func (c *Coordinator) Start(ctx context.Context, keyword string, center model.Coordinate, gridSize int, spacingMeters float64, target model.TargetBusiness, opts SubmitOptions) (*model.Job, error) {
	if !target.HasSignal() {
		return nil, eris.New("job: target business has no identifying signal")
	}

	cells, err := grid.Build(center, gridSize, spacingMeters)
	if err != nil {
		return nil, err
	}

	opts.GridSize = gridSize
	opts.SpacingMeters = spacingMeters
	tasks, err := c.submitter.Submit(ctx, keyword, cells, opts)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	return &model.Job{
		ID:            uuid.New().String(),
		Keyword:       keyword,
		Target:        target,
		Center:        center,
		GridSize:      gridSize,
		SpacingMeters: spacingMeters,
		Cells:         cells,
		Tasks:         tasks,
		Status:        model.RunStatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Run polls the job's pending tasks until every task reaches a terminal
// state, the context is cancelled, or the attempt bound is exceeded.
// Single-flight: a second Run on the same coordinator fails immediately
// rather than interleaving poll cycles.
func (c *Coordinator) Run(ctx context.Context, job *model.Job) error {
	if !c.polling.CompareAndSwap(false, true) {
		return eris.New("job: poll loop already running")
	}
	defer c.polling.Store(false)

	log := zap.L().With(
		zap.String("component", "job.coordinator"),
		zap.String("job_id", job.ID),
	)

	attempts := 0
	for {
		if job.Done() {
			c.mu.Lock()
			job.Status = model.RunStatusComplete
			job.UpdatedAt = c.clock.Now()
			c.mu.Unlock()
			log.Info("job complete", zap.Int("tasks", len(job.Tasks)))
			return nil
		}

		if c.cfg.MaxPollAttempts > 0 && attempts >= c.cfg.MaxPollAttempts {
			c.mu.Lock()
			job.Status = model.RunStatusFailed
			job.UpdatedAt = c.clock.Now()
			c.mu.Unlock()
			return eris.Errorf("job: %d tasks unresolved after %d poll attempts",
				len(job.Tasks)-job.DoneCount(), attempts)
		}

		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "job: polling stopped")
		}

		results, err := c.poller.PollOnce(ctx, job.PendingIDs(), job.Target)
		attempts++
		if err != nil {
			// Whole-cycle transport failure: retry the same poll after a
			// short backoff, never marking tasks failed.
			log.Warn("poll cycle failed, backing off", zap.Error(err))
			if serr := c.clock.Sleep(ctx, c.cfg.ErrorInterval); serr != nil {
				return eris.Wrap(serr, "job: polling stopped")
			}
			continue
		}

		c.merge(job, results)
		done := job.DoneCount()
		log.Debug("poll cycle merged",
			zap.Int("attempt", attempts),
			zap.Int("done", done),
			zap.Int("total", len(job.Tasks)),
		)
		if c.cfg.OnProgress != nil {
			c.cfg.OnProgress(done, len(job.Tasks))
		}

		if job.Done() {
			continue // next iteration finalizes without sleeping
		}
		if err := c.clock.Sleep(ctx, c.cfg.Interval); err != nil {
			return eris.Wrap(err, "job: polling stopped")
		}
	}
}

// merge folds one poll cycle into the job. Terminal tasks never revert;
// pending results are no-ops.
func (c *Coordinator) merge(job *model.Job, results map[string]model.PollResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, res := range results {
		task := job.Task(id)
		if task == nil || task.Status.Terminal() || res.Status == model.TaskStatusPending {
			continue
		}
		task.Status = res.Status
		task.Rank = res.Rank
		task.Error = res.Error
	}
	job.UpdatedAt = c.clock.Now()
}

// CorrectRank re-resolves one task's rank against a fuller record list,
// as fetched for the competitor detail view. Idempotent; reports whether
// the stored rank changed.
func (c *Coordinator) CorrectRank(job *model.Job, taskID string, records []model.ResultRecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := job.Task(taskID)
	if task == nil {
		return false, eris.Errorf("job: unknown task %s", taskID)
	}

	corrected, changed := rank.Correct(task.Rank, records, job.Target)
	if changed {
		task.Rank = corrected
		job.UpdatedAt = c.clock.Now()
	}
	return changed, nil
}

// Snapshot returns a copy of the job safe for the presentation layer to
// read while the poll loop runs.
func (c *Coordinator) Snapshot(job *model.Job) model.Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := *job
	snap.Cells = append([]model.GridCell(nil), job.Cells...)
	snap.Tasks = append([]model.TaskState(nil), job.Tasks...)
	return snap
}
