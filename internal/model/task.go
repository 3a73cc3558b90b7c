package model

// TaskStatus is the lifecycle state of one cell's search task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusOk      TaskStatus = "ok"
	TaskStatusError   TaskStatus = "error"
)

// Terminal reports whether the status is a final state. Terminal tasks
// never revert to pending.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusOk || s == TaskStatusError
}

// TaskState tracks one submitted provider task and its resolved rank.
// A nil Rank with status ok means the target business was checked and
// found absent from the sampled results. That is a valid outcome, not
// an error.
type TaskState struct {
	Cell   GridCell   `json:"cell"`
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
	Rank   *int       `json:"rank,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// PollResult is the classified outcome of fetching one task.
type PollResult struct {
	Status TaskStatus
	Rank   *int
	Error  string
}
