package runtime

import (
	"log/slog"

	"github.com/javi11/apphost/internal/app"
	"github.com/javi11/apphost/pkg/osfs"
)

type Config struct {
	app             *app.Metadata
	command         []string
	loadPaths       []string
	preload         []string
	initializers    []Initializer
	sourceCacheSize int
	fs              osfs.FileSystem
	log             *slog.Logger
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		command:         []string{"sh"},
		sourceCacheSize: 128,
		fs:              osfs.New(),
		log:             slog.Default(),
	}
}

func WithApp(md *app.Metadata) Option {
	return func(c *Config) {
		c.app = md
	}
}

// WithCommand sets the interpreter command. Scripts are passed as the first argument after
// the command's own arguments.
func WithCommand(command []string) Option {
	return func(c *Config) {
		if len(command) > 0 {
			c.command = command
		}
	}
}

func WithLoadPaths(loadPaths []string) Option {
	return func(c *Config) {
		c.loadPaths = loadPaths
	}
}

// WithPreload lists scripts loaded into every new runtime before it is handed out.
func WithPreload(preload []string) Option {
	return func(c *Config) {
		c.preload = preload
	}
}

func WithInitializers(initializers ...Initializer) Option {
	return func(c *Config) {
		c.initializers = append(c.initializers, initializers...)
	}
}

func WithSourceCacheSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.sourceCacheSize = size
		}
	}
}

func WithFileSystem(fs osfs.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		c.log = log
	}
}
