package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/resilience"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
)

func completedResult(id string, items ...dataforseo.Item) *dataforseo.TaskResult {
	return &dataforseo.TaskResult{ID: id, StatusCode: 20000, Items: items}
}

func TestPollOnceClassifiesMixedOutcomes(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	api := newFakeAPI()

	api.taskResults["done"] = completedResult("done",
		dataforseo.Item{RankGroup: 1, Title: "Other"},
		dataforseo.Item{RankGroup: 4, PlaceID: "ChIJ123", Title: "Target"},
	)
	api.taskResults["empty"] = completedResult("empty")
	// "queued" falls through to the fake's default in-queue response.
	api.taskErrs["broken"] = &dataforseo.ProviderError{
		HTTPStatus: 404, StatusCode: 40400, Message: "Invalid task id.",
	}

	results, err := NewPoller(api, 4).PollOnce(context.Background(),
		[]string{"done", "empty", "queued", "broken"}, target)
	require.NoError(t, err)
	require.Len(t, results, 4)

	done := results["done"]
	assert.Equal(t, model.TaskStatusOk, done.Status)
	require.NotNil(t, done.Rank)
	assert.Equal(t, 4, *done.Rank)

	empty := results["empty"]
	assert.Equal(t, model.TaskStatusOk, empty.Status)
	assert.Nil(t, empty.Rank, "checked, business absent")

	assert.Equal(t, model.TaskStatusPending, results["queued"].Status)

	broken := results["broken"]
	assert.Equal(t, model.TaskStatusError, broken.Status)
	assert.Contains(t, broken.Error, "Invalid task id.")
}

func TestPollOnceIsolatesPerTaskFailures(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	api := newFakeAPI()
	api.taskResults["good"] = completedResult("good", dataforseo.Item{RankGroup: 2, PlaceID: "ChIJ123"})
	api.taskErrs["bad"] = &dataforseo.ProviderError{HTTPStatus: 400, StatusCode: 40000, Message: "malformed"}

	results, err := NewPoller(api, 2).PollOnce(context.Background(), []string{"good", "bad"}, target)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusOk, results["good"].Status)
	assert.Equal(t, model.TaskStatusError, results["bad"].Status)
}

func TestPollOnceTransportFailureStaysPending(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	api := newFakeAPI()
	api.taskResults["good"] = completedResult("good", dataforseo.Item{RankGroup: 1, PlaceID: "ChIJ123"})
	api.taskErrs["flaky"] = resilience.NewTransientError(
		&dataforseo.ProviderError{HTTPStatus: 503, StatusCode: 50000, Message: "maintenance"}, 503)

	results, err := NewPoller(api, 2).PollOnce(context.Background(), []string{"good", "flaky"}, target)
	require.NoError(t, err)

	// Transient failures are never converted into terminal task errors.
	assert.Equal(t, model.TaskStatusPending, results["flaky"].Status)
	assert.Equal(t, model.TaskStatusOk, results["good"].Status)
}

func TestPollOnceWholeCycleTransportFailure(t *testing.T) {
	api := newFakeAPI()
	api.taskErrs["a"] = resilience.NewTransientError(assertErr("dial tcp: connection refused"), 0)
	api.taskErrs["b"] = resilience.NewTransientError(assertErr("dial tcp: connection refused"), 0)

	_, err := NewPoller(api, 2).PollOnce(context.Background(), []string{"a", "b"},
		model.TargetBusiness{PlaceID: "x"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestPollOnceEmptyIDs(t *testing.T) {
	results, err := NewPoller(newFakeAPI(), 2).PollOnce(context.Background(), nil, model.TargetBusiness{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClassifyByStatusCode(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "x"}

	// The provider's in-progress family must stay pending regardless of
	// message wording.
	pending := []*dataforseo.TaskResult{
		{StatusCode: 40601, StatusMessage: "Task Handed."},
		{StatusCode: 40602, StatusMessage: "Task In Queue."},
		{StatusCode: 40401, StatusMessage: "Task Not Found."},
	}
	for _, res := range pending {
		assert.Equal(t, model.TaskStatusPending, classify(res, target).Status, "code %d", res.StatusCode)
	}

	ok := classify(&dataforseo.TaskResult{StatusCode: 20000}, target)
	assert.Equal(t, model.TaskStatusOk, ok.Status)
	assert.Nil(t, ok.Rank)

	failed := classify(&dataforseo.TaskResult{StatusCode: 40501, StatusMessage: "Invalid Field."}, target)
	assert.Equal(t, model.TaskStatusError, failed.Status)
	assert.Contains(t, failed.Error, "Invalid Field.")
	assert.Contains(t, failed.Error, "40501")
}

func TestClassifyPendingMessages(t *testing.T) {
	// Responses without a task-level code fall back to the message text.
	for _, msg := range []string{"Task In Queue.", "Task Handed.", "Task Not Found.", "result not ready"} {
		res := &dataforseo.TaskResult{StatusMessage: msg}
		assert.Equal(t, model.TaskStatusPending, classify(res, model.TargetBusiness{PlaceID: "x"}).Status, "message %q", msg)
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
