//go:generate mockgen -source=./store.go -destination=./store_mock.go -package=jobs Store

package jobs

import (
	"context"
	"database/sql"
	"time"
)

type Store interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
	List(ctx context.Context, app, job string, limit int) ([]Run, error)
}

type sqlStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Start(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO job_runs (id, app, job, status, started_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.App, run.Job, run.Status, run.StartedAt,
	)

	return err
}

func (s *sqlStore) Finish(ctx context.Context, run Run) error {
	finishedAt := time.Now()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE job_runs SET status = ?, output = ?, error = ?, finished_at = ? WHERE id = ?",
		run.Status, run.Output, run.Error, finishedAt, run.ID,
	)

	return err
}

func (s *sqlStore) List(ctx context.Context, app, job string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, app, job, status, output, error, started_at, finished_at FROM job_runs WHERE app = ? AND job = ? ORDER BY started_at DESC LIMIT ?",
		app, job, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var output, errMsg sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.App, &run.Job, &run.Status, &output, &errMsg, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Output = output.String
		run.Error = errMsg.String
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
