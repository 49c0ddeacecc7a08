package adminpanel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/javi11/apphost/internal/adminpanel/handlers"
	"github.com/javi11/apphost/internal/serverinfo"
	sloggin "github.com/samber/slog-gin"
)

type adminPanel struct {
	router *gin.Engine
	log    *slog.Logger
}

// New returns the admin API over the hosted apps.
// The API exposes the following endpoints:
// - GET /api/v1/apps: lists every app with its pool stats.
// - GET /api/v1/apps/:name: returns one app.
// - POST /api/v1/apps/:name/restart: hot restarts the app runtime.
// - POST /api/v1/apps/:name/exec: runs a script on the app runtime.
// - GET /api/v1/apps/:name/jobs: lists the app jobs.
// - POST /api/v1/apps/:name/jobs/:job/run: runs a job now.
// - GET /api/v1/apps/:name/jobs/:job/runs: returns the latest runs of a job.
// - GET /api/v1/server-info: returns host summary and disk usage of every app root.
func New(apps handlers.Apps, si serverinfo.ServerInfo, log *slog.Logger, debug bool) *adminPanel {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(sloggin.New(log), gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/apps", handlers.BuildListAppsHandler(apps))
		v1.GET("/apps/:name", handlers.BuildGetAppHandler(apps))
		v1.POST("/apps/:name/restart", handlers.BuildRestartAppHandler(apps))
		v1.POST("/apps/:name/exec", handlers.BuildExecHandler(apps))
		v1.GET("/apps/:name/jobs", handlers.BuildListJobsHandler(apps))
		v1.POST("/apps/:name/jobs/:job/run", handlers.BuildRunJobHandler(apps))
		v1.GET("/apps/:name/jobs/:job/runs", handlers.BuildGetJobRunsHandler(apps))
		v1.GET("/server-info", handlers.BuildGetServerInfoHandler(si))
	}

	return &adminPanel{
		router: r,
		log:    log,
	}
}

func (a *adminPanel) Handler() http.Handler {
	return a.router
}

// Start serves the API until ctx is done.
func (a *adminPanel) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: a.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.InfoContext(ctx, fmt.Sprintf("Admin panel started at http://localhost:%v", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.ErrorContext(ctx, "Failed to start admin panel", "err", err)
		return err
	}

	return nil
}
