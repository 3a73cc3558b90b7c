package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rankgrid/internal/db"
	"github.com/sells-group/rankgrid/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
// The poll loop hits update_task once per cell per cycle.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_task":       `UPDATE run_tasks SET status = $1, rank = $2, error = $3 WHERE task_id = $4`,
	"get_run":           `SELECT id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at FROM runs WHERE id = $1`,
	"get_run_by_task":   `SELECT run_id FROM run_tasks WHERE task_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	keyword    TEXT NOT NULL,
	target     JSONB NOT NULL,
	center_lat DOUBLE PRECISION NOT NULL,
	center_lng DOUBLE PRECISION NOT NULL,
	grid_size  INTEGER NOT NULL,
	spacing_m  DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_tasks (
	task_id  TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	idx      INTEGER NOT NULL,
	grid_row INTEGER NOT NULL,
	grid_col INTEGER NOT NULL,
	lat      DOUBLE PRECISION NOT NULL,
	lng      DOUBLE PRECISION NOT NULL,
	status   TEXT NOT NULL DEFAULT 'pending',
	rank     INTEGER,
	error    TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_keyword ON runs(keyword);
CREATE INDEX IF NOT EXISTS idx_run_tasks_run_id ON run_tasks(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, job *model.Job) error {
	targetJSON, err := json.Marshal(job.Target)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Keyword, targetJSON,
		job.Center.Latitude, job.Center.Longitude,
		job.GridSize, job.SpacingMeters,
		string(job.Status), job.CreatedAt.UTC(), job.UpdatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	rows := make([][]any, len(job.Tasks))
	for i, task := range job.Tasks {
		rows[i] = []any{
			task.TaskID, job.ID, i,
			task.Cell.Row, task.Cell.Col,
			task.Cell.Coordinate.Latitude, task.Cell.Coordinate.Longitude,
			string(task.Status), nullableRank(task.Rank), nullableText(task.Error),
		}
	}
	_, err = db.CopyFrom(ctx, s.pool, "run_tasks",
		[]string{"task_id", "run_id", "idx", "grid_row", "grid_col", "lat", "lng", "status", "rank", "error"},
		rows,
	)
	return eris.Wrap(err, "postgres: insert tasks")
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task model.TaskState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_tasks SET status = $1, rank = $2, error = $3 WHERE task_id = $4`,
		string(task.Status), nullableRank(task.Rank), nullableText(task.Error), task.TaskID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update task %s", task.TaskID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("task not found: %s", task.TaskID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Job, error) {
	var job model.Job
	var targetJSON []byte
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, keyword, target, center_lat, center_lng, grid_size, spacing_m, status, created_at, updated_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&job.ID, &job.Keyword, &targetJSON,
		&job.Center.Latitude, &job.Center.Longitude,
		&job.GridSize, &job.SpacingMeters,
		&status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	job.Status = model.RunStatus(status)

	if err := json.Unmarshal(targetJSON, &job.Target); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT task_id, grid_row, grid_col, lat, lng, status, rank, error
		 FROM run_tasks WHERE run_id = $1 ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run tasks %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var task model.TaskState
		var tstatus string
		var rank *int
		var terr *string
		err := rows.Scan(&task.TaskID, &task.Cell.Row, &task.Cell.Col,
			&task.Cell.Coordinate.Latitude, &task.Cell.Coordinate.Longitude,
			&tstatus, &rank, &terr)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		task.Status = model.TaskStatus(tstatus)
		task.Rank = rank
		if terr != nil {
			task.Error = *terr
		}
		job.Tasks = append(job.Tasks, task)
		job.Cells = append(job.Cells, task.Cell)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate tasks")
	}
	return &job, nil
}

func (s *PostgresStore) GetRunByTask(ctx context.Context, taskID string) (*model.Job, error) {
	var runID string
	err := s.pool.QueryRow(ctx,
		`SELECT run_id FROM run_tasks WHERE task_id = $1`, taskID,
	).Scan(&runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run by task %s", taskID)
	}
	return s.GetRun(ctx, runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT r.id, r.keyword, r.status, r.grid_size, r.created_at,
		COUNT(t.task_id),
		COALESCE(SUM(CASE WHEN t.status != 'pending' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN run_tasks t ON t.run_id = r.id
	WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND r.status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Keyword != "" {
		query += fmt.Sprintf(` AND position($%d in r.keyword) > 0`, argIdx)
		args = append(args, filter.Keyword)
		argIdx++
	}
	query += ` GROUP BY r.id ORDER BY r.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var sum RunSummary
		var status string
		if err := rows.Scan(&sum.ID, &sum.Keyword, &status, &sum.GridSize, &sum.CreatedAt, &sum.Total, &sum.Done); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run summary")
		}
		sum.Status = model.RunStatus(status)
		runs = append(runs, sum)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM run_tasks WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: delete run tasks %s", runID)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}
