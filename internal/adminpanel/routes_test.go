package adminpanel

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/javi11/apphost/internal/adminpanel/handlers"
	"github.com/javi11/apphost/internal/config"
	"github.com/javi11/apphost/internal/host"
	"github.com/javi11/apphost/internal/jobs"
	"github.com/javi11/apphost/internal/serverinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T, store jobs.Store) *host.Host {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "hello.sh"), []byte(`echo "hello $1"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "fail.sh"), []byte("echo nope; exit 2"), 0o644))

	cfg, err := config.Parse([]byte(`
apps:
  - name: shop
    root: ` + root + `
    load_paths: [lib]
    watch_restart: false
    jobs:
      - name: hello
        script: hello.sh
        every: 1h
`))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := host.New(cfg, store, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Stop() })

	return h
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestAdminPanel_Apps(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newTestHost(t, jobs.NewMockStore(ctrl))
	api := New(h, serverinfo.NewServerInfo(h, "test"), slog.New(slog.NewTextHandler(io.Discard, nil)), false).Handler()

	t.Run("list apps", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/v1/apps", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var apps []host.AppInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
		require.Len(t, apps, 1)
		assert.Equal(t, "shop", apps[0].Name)
		assert.False(t, apps[0].Pool.Started)
		require.Len(t, apps[0].Jobs, 1)
		assert.Equal(t, time.Hour, apps[0].Jobs[0].Every)
	})

	t.Run("unknown app", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/v1/apps/blog", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("exec a script", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/exec", handlers.ExecRequest{Script: "hello.sh", Args: []string{"admin"}})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ExecResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "hello admin", strings.TrimSpace(resp.Output))

		rec = doRequest(t, api, http.MethodGet, "/api/v1/apps/shop", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var info host.AppInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.True(t, info.Pool.Started)
		assert.Equal(t, 0, info.Pool.Current.Borrows)
	})

	t.Run("exec failures", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/exec", handlers.ExecRequest{Script: "missing.sh"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/exec", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/exec", handlers.ExecRequest{Script: "fail.sh"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp handlers.ExecResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "nope", strings.TrimSpace(resp.Output))
		assert.Contains(t, resp.Error, "exit status 2")
	})

	t.Run("restart", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/restart", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)

		a, err := h.App("shop")
		require.NoError(t, err)
		a.Pool.Wait()
		assert.Equal(t, int64(1), a.Info().Restarts)
	})

	t.Run("server info", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/v1/server-info", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Summary       serverinfo.Summary     `json:"summary"`
			AppsDiskUsage []serverinfo.DiskUsage `json:"apps_disk_usage"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "test", resp.Summary.Version)
		assert.Equal(t, 1, resp.Summary.Apps)
		assert.Equal(t, 1, resp.Summary.StartedPools)
		assert.Equal(t, int64(1), resp.Summary.Restarts)
		require.Len(t, resp.AppsDiskUsage, 1)
		assert.Equal(t, "shop", resp.AppsDiskUsage[0].App)
		assert.NotZero(t, resp.AppsDiskUsage[0].Total)
	})

	t.Run("restart a stopped app", func(t *testing.T) {
		require.NoError(t, h.Stop())

		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/restart", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAdminPanel_Jobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := jobs.NewMockStore(ctrl)
	h := newTestHost(t, store)
	api := New(h, serverinfo.NewServerInfo(h, "test"), slog.New(slog.NewTextHandler(io.Discard, nil)), false).Handler()

	t.Run("list jobs", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/v1/apps/shop/jobs", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []jobs.Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "hello", list[0].Name)
		assert.Equal(t, "default", list[0].Group)
	})

	t.Run("run a job", func(t *testing.T) {
		store.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil)
		store.EXPECT().Finish(gomock.Any(), gomock.Any()).Return(nil)

		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/jobs/hello/run", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var run jobs.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, jobs.StatusSucceeded, run.Status)
		assert.Equal(t, "hello", strings.TrimSpace(run.Output))
		assert.NotEmpty(t, run.ID)
	})

	t.Run("run an unknown job", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodPost, "/api/v1/apps/shop/jobs/nope/run", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("job history", func(t *testing.T) {
		startedAt := time.Date(2023, 9, 1, 10, 0, 0, 0, time.UTC)
		store.EXPECT().List(gomock.Any(), "shop", "hello", 5).Return([]jobs.Run{
			{ID: "run-1", App: "shop", Job: "hello", Status: jobs.StatusSucceeded, StartedAt: startedAt},
		}, nil)

		rec := doRequest(t, api, http.MethodGet, "/api/v1/apps/shop/jobs/hello/runs?limit=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []jobs.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "run-1", runs[0].ID)
	})

	t.Run("invalid history limit", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/v1/apps/shop/jobs/hello/runs?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
