package job

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
)

// SubmitOptions carries the per-task search parameters.
type SubmitOptions struct {
	LanguageCode  string
	Device        string
	Depth         int
	Zoom          string
	GridSize      int
	SpacingMeters float64
}

// minDepth guards against shallow result depth, which silently produces
// false "not found" ranks.
const minDepth = 20

// defaultLanguageCode fills an unset language so the search param never
// renders an empty hl=.
const defaultLanguageCode = "en"

// Submitter turns grid cells into provider tasks.
type Submitter struct {
	api dataforseo.Client
}

// NewSubmitter creates a Submitter backed by the given provider client.
func NewSubmitter(api dataforseo.Client) *Submitter {
	return &Submitter{api: api}
}

// Submit creates one search task per cell, batched under the provider's
// per-call ceiling, and returns pending task states zipped to cells by
// position. A rejected batch fails the whole submission; batches the
// provider already accepted are not rolled back, since the provider is
// the source of truth for partial acceptance.
func (s *Submitter) Submit(ctx context.Context, keyword string, cells []model.GridCell, opts SubmitOptions) ([]model.TaskState, error) {
	if keyword == "" {
		return nil, eris.New("job: keyword is required")
	}
	if len(cells) == 0 {
		return nil, eris.New("job: no cells to submit")
	}
	if opts.Depth < minDepth {
		opts.Depth = minDepth
	}
	if opts.LanguageCode == "" {
		opts.LanguageCode = defaultLanguageCode
	}

	tasks := make([]dataforseo.Task, len(cells))
	for i, cell := range cells {
		tasks[i] = dataforseo.Task{
			Keyword:            keyword,
			LocationCoordinate: dataforseo.FormatLocation(cell.Coordinate.Latitude, cell.Coordinate.Longitude, opts.Zoom),
			Device:             opts.Device,
			LanguageCode:       opts.LanguageCode,
			Depth:              opts.Depth,
			SearchParam:        fmt.Sprintf("hl=%s&gl=us&num=%d", opts.LanguageCode, opts.Depth),
			Tag:                fmt.Sprintf("grid_%d_%d_%d", opts.GridSize, int(opts.SpacingMeters), i),
		}
	}

	log := zap.L().With(zap.String("component", "job.submitter"))

	ids := make([]string, 0, len(tasks))
	for start := 0; start < len(tasks); start += dataforseo.MaxTasksPerPost {
		end := min(start+dataforseo.MaxTasksPerPost, len(tasks))

		batchIDs, err := s.api.PostTasks(ctx, tasks[start:end])
		if err != nil {
			return nil, eris.Wrapf(err, "job: submit batch %d-%d", start, end-1)
		}
		ids = append(ids, batchIDs...)
	}

	log.Info("tasks submitted",
		zap.String("keyword", keyword),
		zap.Int("cells", len(cells)),
		zap.Int("depth", opts.Depth),
	)

	states := make([]model.TaskState, len(cells))
	for i, cell := range cells {
		states[i] = model.TaskState{
			Cell:   cell,
			TaskID: ids[i],
			Status: model.TaskStatusPending,
		}
	}
	return states, nil
}
