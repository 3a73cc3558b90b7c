package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/rank"
	"github.com/sells-group/rankgrid/internal/resilience"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
)

// defaultPollConcurrency bounds parallel per-task fetches in one cycle.
const defaultPollConcurrency = 8

// Poller fetches and classifies task results.
type Poller struct {
	api         dataforseo.Client
	concurrency int
	retry       resilience.RetryConfig
}

// NewPoller creates a Poller. concurrency <= 0 selects the default.
func NewPoller(api dataforseo.Client, concurrency int) *Poller {
	if concurrency <= 0 {
		concurrency = defaultPollConcurrency
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.OnRetry = resilience.RetryLogger("dataforseo", "task_get")
	return &Poller{api: api, concurrency: concurrency, retry: retry}
}

// PollOnce fetches each task id independently and classifies the outcome.
// Per-task fetches run concurrently; one task's failure never aborts the
// others, and results merge by id, not position.
//
// Provider-reported task errors are terminal. Transport-level fetch
// failures leave the task pending for the next cycle; if every fetch in
// the cycle fails that way, PollOnce reports a cycle-level error so the
// coordinator can back off and retry the whole poll.
func (p *Poller) PollOnce(ctx context.Context, ids []string, target model.TargetBusiness) (map[string]model.PollResult, error) {
	if len(ids) == 0 {
		return map[string]model.PollResult{}, nil
	}

	var mu sync.Mutex
	results := make(map[string]model.PollResult, len(ids))
	transportFailures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			res, err := resilience.DoVal(gctx, p.retry, func(ctx context.Context) (*dataforseo.TaskResult, error) {
				return p.api.GetTask(ctx, id)
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if pr, terminal := classifyFetchError(err); terminal {
					results[id] = pr
				} else {
					results[id] = model.PollResult{Status: model.TaskStatusPending}
					transportFailures++
				}
				return nil
			}

			results[id] = classify(res, target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "job: poll cycle")
	}

	if transportFailures == len(ids) {
		return nil, resilience.NewTransientError(
			eris.Errorf("job: all %d task fetches failed in transport", len(ids)), 0)
	}
	if transportFailures > 0 {
		zap.L().Warn("partial poll cycle",
			zap.Int("fetched", len(ids)-transportFailures),
			zap.Int("failed", transportFailures),
		)
	}
	return results, nil
}

// Task-level provider status codes. 20000 is success; the 40401/40601/
// 40602 family means the task has not finished yet.
const (
	taskCodeOk       = 20000
	taskCodeNotFound = 40401
	taskCodeHanded   = 40601
	taskCodeInQueue  = 40602
)

// classify maps a fetched task result onto the task state machine. The
// task-level status code decides; the message heuristic only covers
// responses carrying no code, and unknown codes with a "not ready"
// message stay pending rather than failing the task.
func classify(res *dataforseo.TaskResult, target model.TargetBusiness) model.PollResult {
	switch res.StatusCode {
	case taskCodeOk:
		// Rank is nil when the result list is empty or never mentions
		// the target: checked, business absent.
		return model.PollResult{
			Status: model.TaskStatusOk,
			Rank:   rank.Extract(Records(res.Items), target),
		}
	case taskCodeNotFound, taskCodeHanded, taskCodeInQueue:
		return model.PollResult{Status: model.TaskStatusPending}
	case 0:
		if len(res.Items) > 0 {
			return model.PollResult{
				Status: model.TaskStatusOk,
				Rank:   rank.Extract(Records(res.Items), target),
			}
		}
		if isPendingMessage(res.StatusMessage) {
			return model.PollResult{Status: model.TaskStatusPending}
		}
		return model.PollResult{Status: model.TaskStatusOk}
	}
	if isPendingMessage(res.StatusMessage) {
		return model.PollResult{Status: model.TaskStatusPending}
	}
	return model.PollResult{
		Status: model.TaskStatusError,
		Error:  fmt.Sprintf("dataforseo: %d %s", res.StatusCode, res.StatusMessage),
	}
}

// classifyFetchError splits fetch failures into terminal provider errors
// and retryable transport conditions.
func classifyFetchError(err error) (model.PollResult, bool) {
	var pe *dataforseo.ProviderError
	if errors.As(err, &pe) {
		if isPendingMessage(pe.Message) {
			return model.PollResult{Status: model.TaskStatusPending}, true
		}
		if resilience.IsTransientHTTPStatus(pe.HTTPStatus) {
			return model.PollResult{}, false
		}
		return model.PollResult{Status: model.TaskStatusError, Error: pe.Error()}, true
	}
	if resilience.IsTransient(err) {
		return model.PollResult{}, false
	}
	return model.PollResult{Status: model.TaskStatusError, Error: err.Error()}, true
}

// isPendingMessage recognizes the provider's "not ready yet" conditions.
func isPendingMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, p := range []string{"in queue", "handed", "processing", "not found", "not ready"} {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}
