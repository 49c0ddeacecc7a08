// Package runtime provides the interpreter runtime lent out by the shared pool: an
// application environment (working directory, environment variables, load path) in which
// scripts are executed by the configured interpreter command.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/javi11/apphost/internal/app"
	"golang.org/x/exp/maps"
)

// waitDelay bounds how long Exec waits for the output of a killed process.
const waitDelay = 5 * time.Second

type Runtime struct {
	app       *app.Metadata
	command   []string
	loader    *LoadService
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mx  sync.RWMutex
	dir string
	env map[string]string
}

func newRuntime(md *app.Metadata, command []string, loader *LoadService) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())

	return &Runtime{
		app:       md,
		command:   command,
		loader:    loader,
		createdAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		dir:       localPath(md.RootPath()),
		env:       make(map[string]string),
	}
}

func (r *Runtime) App() *app.Metadata {
	return r.app
}

func (r *Runtime) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Runtime) Setenv(key, value string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.env[key] = value
}

func (r *Runtime) Getenv(key string) string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.env[key]
}

// Environ returns the runtime environment as sorted KEY=VALUE pairs.
func (r *Runtime) Environ() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()

	keys := maps.Keys(r.env)
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+r.env[k])
	}

	return environ
}

func (r *Runtime) Chdir(dir string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.dir = dir
}

func (r *Runtime) Dir() string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.dir
}

// Require loads a script from the runtime load path.
func (r *Runtime) Require(name string) (*Source, error) {
	if r.closed.Load() {
		return nil, ErrRuntimeClosed
	}

	return r.loader.Load(name)
}

// Exec runs script with the interpreter command and returns its combined output. The
// process is killed when ctx is done or the runtime is closed.
func (r *Runtime) Exec(ctx context.Context, script string, args ...string) ([]byte, error) {
	src, err := r.Require(script)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	argv := make([]string, 0, len(r.command)+len(args))
	argv = append(argv, r.command[1:]...)
	argv = append(argv, src.Path)
	argv = append(argv, args...)

	cmd := exec.CommandContext(execCtx, r.command[0], argv...)
	cmd.Dir = r.Dir()
	cmd.Env = append(os.Environ(), r.Environ()...)
	cmd.WaitDelay = waitDelay

	out, err := cmd.CombinedOutput()
	if err != nil {
		if r.closed.Load() {
			return out, fmt.Errorf("exec %s: %w", script, ErrRuntimeClosed)
		}
		return out, fmt.Errorf("exec %s: %w", script, err)
	}

	return out, nil
}

func (r *Runtime) Closed() bool {
	return r.closed.Load()
}

// Close cancels every running Exec and drops cached sources. Closing twice is a no-op.
func (r *Runtime) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.cancel()
	r.loader.Purge()

	return nil
}
