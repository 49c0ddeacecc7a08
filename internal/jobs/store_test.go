package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Start(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	startedAt := time.Now()

	mock.ExpectExec("INSERT INTO job_runs").
		WithArgs("run-1", "shop", "cleanup", StatusRunning, startedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Start(context.Background(), Run{ID: "run-1", App: "shop", Job: "cleanup", Status: StatusRunning, StartedAt: startedAt})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Finish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	finishedAt := time.Now()

	mock.ExpectExec("UPDATE job_runs SET status").
		WithArgs(StatusFailed, "boom\n", "exit status 1", finishedAt, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Finish(context.Background(), Run{
		ID:         "run-1",
		Status:     StatusFailed,
		Output:     "boom\n",
		Error:      "exit status 1",
		FinishedAt: &finishedAt,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	t.Run("scans runs", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewStore(db)
		startedAt := time.Date(2023, 9, 1, 10, 0, 0, 0, time.UTC)
		finishedAt := startedAt.Add(time.Second)

		mock.ExpectQuery("SELECT id, app, job, status, output, error, started_at, finished_at FROM job_runs").
			WithArgs("shop", "cleanup", 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "app", "job", "status", "output", "error", "started_at", "finished_at"}).
				AddRow("run-2", "shop", "cleanup", "running", nil, nil, startedAt, nil).
				AddRow("run-1", "shop", "cleanup", "succeeded", "ok", "", startedAt, finishedAt))

		runs, err := store.List(context.Background(), "shop", "cleanup", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		assert.Equal(t, StatusRunning, runs[0].Status)
		assert.Nil(t, runs[0].FinishedAt)
		assert.Empty(t, runs[0].Output)

		assert.Equal(t, StatusSucceeded, runs[1].Status)
		assert.Equal(t, "ok", runs[1].Output)
		require.NotNil(t, runs[1].FinishedAt)
		assert.Equal(t, finishedAt, *runs[1].FinishedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewStore(db)
		mock.ExpectQuery("SELECT id").WillReturnError(errors.New("database is locked"))

		_, err = store.List(context.Background(), "shop", "cleanup", 10)
		assert.EqualError(t, err, "database is locked")
	})
}
