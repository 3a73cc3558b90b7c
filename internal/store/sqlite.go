package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rankgrid/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	keyword    TEXT NOT NULL,
	target     TEXT NOT NULL,
	center_lat REAL NOT NULL,
	center_lng REAL NOT NULL,
	grid_size  INTEGER NOT NULL,
	spacing_m  REAL NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_tasks (
	task_id  TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	idx      INTEGER NOT NULL,
	grid_row INTEGER NOT NULL,
	grid_col INTEGER NOT NULL,
	lat      REAL NOT NULL,
	lng      REAL NOT NULL,
	status   TEXT NOT NULL DEFAULT 'pending',
	rank     INTEGER,
	error    TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_keyword ON runs(keyword);
CREATE INDEX IF NOT EXISTS idx_run_tasks_run_id ON run_tasks(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, job *model.Job) error {
	targetJSON, err := json.Marshal(job.Target)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Keyword, string(targetJSON),
		job.Center.Latitude, job.Center.Longitude,
		job.GridSize, job.SpacingMeters,
		string(job.Status), job.CreatedAt.UTC(), job.UpdatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for i, task := range job.Tasks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_tasks (task_id, run_id, idx, grid_row, grid_col, lat, lng, status, rank, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.TaskID, job.ID, i,
			task.Cell.Row, task.Cell.Col,
			task.Cell.Coordinate.Latitude, task.Cell.Coordinate.Longitude,
			string(task.Status), nullableRank(task.Rank), nullableText(task.Error),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert task %s", task.TaskID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.TaskState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_tasks SET status = ?, rank = ?, error = ? WHERE task_id = ?`,
		string(task.Status), nullableRank(task.Rank), nullableText(task.Error), task.TaskID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update task %s", task.TaskID)
	}
	return checkRowsAffected(res, "task", task.TaskID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)

	var job model.Job
	var targetJSON, status string
	err := row.Scan(&job.ID, &job.Keyword, &targetJSON,
		&job.Center.Latitude, &job.Center.Longitude,
		&job.GridSize, &job.SpacingMeters,
		&status, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	job.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(targetJSON), &job.Target); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, grid_row, grid_col, lat, lng, status, rank, error
		 FROM run_tasks WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run tasks %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var task model.TaskState
		var tstatus string
		var rank sql.NullInt64
		var terr sql.NullString
		err := rows.Scan(&task.TaskID, &task.Cell.Row, &task.Cell.Col,
			&task.Cell.Coordinate.Latitude, &task.Cell.Coordinate.Longitude,
			&tstatus, &rank, &terr)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		task.Status = model.TaskStatus(tstatus)
		if rank.Valid {
			r := int(rank.Int64)
			task.Rank = &r
		}
		task.Error = terr.String
		job.Tasks = append(job.Tasks, task)
		job.Cells = append(job.Cells, task.Cell)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate tasks")
	}
	return &job, nil
}

func (s *SQLiteStore) GetRunByTask(ctx context.Context, taskID string) (*model.Job, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM run_tasks WHERE task_id = ?`, taskID,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run by task %s", taskID)
	}
	return s.GetRun(ctx, runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT r.id, r.keyword, r.status, r.grid_size, r.created_at,
		COUNT(t.task_id),
		COALESCE(SUM(CASE WHEN t.status != 'pending' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN run_tasks t ON t.run_id = r.id
	WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Keyword != "" {
		query += ` AND instr(r.keyword, ?) > 0`
		args = append(args, filter.Keyword)
	}
	query += ` GROUP BY r.id ORDER BY r.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var sum RunSummary
		var status string
		if err := rows.Scan(&sum.ID, &sum.Keyword, &status, &sum.GridSize, &sum.CreatedAt, &sum.Total, &sum.Done); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run summary")
		}
		sum.Status = model.RunStatus(status)
		runs = append(runs, sum)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_tasks WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: delete run tasks %s", runID)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullableRank(r *int) any {
	if r == nil {
		return nil
	}
	return *r
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
