package main

import (
	"fmt"
	"strings"

	"github.com/sells-group/rankgrid/internal/model"
)

// rankLabel renders one cell for the text grid: the rank number, an
// ellipsis while pending, a dash when the business is absent, and an x
// for a failed task.
func rankLabel(task model.TaskState) string {
	switch task.Status {
	case model.TaskStatusPending:
		return "…"
	case model.TaskStatusError:
		return "x"
	}
	if task.Rank == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *task.Rank)
}

// formatRankGrid renders the job's tasks as a size×size text grid in
// row-major order.
func formatRankGrid(job *model.Job) string {
	var b strings.Builder
	for i, task := range job.Tasks {
		if i > 0 && i%job.GridSize == 0 {
			b.WriteString("\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%3s", rankLabel(task))
	}
	b.WriteString("\n")
	return b.String()
}

// formatCellGrid renders grid cell coordinates, one line per cell.
func formatCellGrid(cells []model.GridCell) string {
	var b strings.Builder
	for _, cell := range cells {
		fmt.Fprintf(&b, "[%d,%d] %s\n", cell.Row, cell.Col, cell.Coordinate.String())
	}
	return b.String()
}
