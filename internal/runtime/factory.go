package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/javi11/apphost/internal/app"
	"github.com/javi11/apphost/pkg/osfs"
	"github.com/javi11/apphost/pkg/sharedpool"
)

var _ sharedpool.Factory[*Runtime] = (*Factory)(nil)

// Factory creates the runtimes of one application.
type Factory struct {
	app             *app.Metadata
	command         []string
	loadPaths       []string
	preload         []string
	initializers    []Initializer
	sourceCacheSize int
	fs              osfs.FileSystem
	log             *slog.Logger
}

func NewFactory(options ...Option) (*Factory, error) {
	config := defaultConfig()
	for _, option := range options {
		option(config)
	}

	if config.app == nil {
		return nil, errors.New("runtime factory: application metadata is required")
	}
	if err := config.app.Validate(); err != nil {
		return nil, fmt.Errorf("runtime factory: %w", err)
	}

	return &Factory{
		app:             config.app,
		command:         config.command,
		loadPaths:       config.loadPaths,
		preload:         config.preload,
		initializers:    config.initializers,
		sourceCacheSize: config.sourceCacheSize,
		fs:              config.fs,
		log:             config.log,
	}, nil
}

// Create builds and initializes a runtime for the pool named name.
func (f *Factory) Create(ctx context.Context, name string) (*Runtime, error) {
	start := time.Now()
	root := localPath(f.app.RootPath())

	info, err := f.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("application root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("application root %s is not a directory", root)
	}

	loader, err := NewLoadService(f.app.RootPath(), f.loadPaths, f.fs, f.sourceCacheSize)
	if err != nil {
		return nil, err
	}

	rt := newRuntime(f.app, f.command, loader)
	for k, v := range f.app.Env {
		rt.Setenv(k, v)
	}

	for _, initializer := range f.initializers {
		if err := ctx.Err(); err != nil {
			_ = rt.Close()
			return nil, err
		}
		if err := initializer.Initialize(ctx, rt); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("initialize runtime for %s: %w", f.app.Name, err)
		}
	}

	for _, script := range f.preload {
		if _, err := rt.Require(script); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("preload %s: %w", script, err)
		}
	}

	f.log.InfoContext(ctx, "Runtime created", "pool", name, "app", f.app.Name, "elapsed", time.Since(start))

	return rt, nil
}

func (f *Factory) Destroy(rt *Runtime) error {
	f.log.Debug("Destroying runtime", "app", f.app.Name, "created_at", rt.CreatedAt())
	return rt.Close()
}
