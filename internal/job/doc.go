// Package job orchestrates one grid run: turning cells into provider
// tasks, polling tasks to terminal states, and resolving per-cell ranks.
package job
