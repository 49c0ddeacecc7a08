package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/javi11/apphost/internal/app"
	"github.com/javi11/apphost/internal/jobs"
	"github.com/javi11/apphost/internal/runtime"
	"gopkg.in/yaml.v2"
)

type Config struct {
	LogPath string `yaml:"log_path" default:"/config/apphost.log"`
	DBPath  string `yaml:"db_path" default:"/config/apphost.db"`
	ApiPort string `yaml:"api_port" default:"8081"`
	Debug   bool   `yaml:"debug" default:"false"`
	Apps    []App  `yaml:"apps"`
}

type App struct {
	Name            string                    `yaml:"name"`
	Root            string                    `yaml:"root"`
	Environment     string                    `yaml:"environment"`
	Env             map[string]string         `yaml:"env"`
	Interpreter     []string                  `yaml:"interpreter"`
	LoadPaths       []string                  `yaml:"load_paths"`
	Preload         []string                  `yaml:"preload"`
	EagerStart      bool                      `yaml:"eager_start" default:"false"`
	BorrowTimeout   time.Duration             `yaml:"borrow_timeout" default:"30s"`
	WatchRestart    *bool                     `yaml:"watch_restart" default:"true"`
	RestartMarker   string                    `yaml:"restart_marker" default:"tmp/restart.txt"`
	SourceCacheSize int                       `yaml:"source_cache_size" default:"128"`
	Initializers    []runtime.InitializerSpec `yaml:"initializers"`
	Jobs            []Job                     `yaml:"jobs"`
}

type Job struct {
	Name        string        `yaml:"name"`
	Group       string        `yaml:"group" default:"default"`
	Description string        `yaml:"description"`
	Script      string        `yaml:"script"`
	Args        []string      `yaml:"args"`
	Every       time.Duration `yaml:"every"`
	Singleton   bool          `yaml:"singleton" default:"false"`
	Timeout     time.Duration `yaml:"timeout"`
}

func FromFile(path string) (*Config, error) {
	configData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(configData)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	err = defaults.Set(&config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return errors.New("at least one app must be configured")
	}

	names := make(map[string]bool, len(c.Apps))
	for i, a := range c.Apps {
		if a.Name == "" {
			return fmt.Errorf("apps[%d]: name is required", i)
		}
		if a.Root == "" {
			return fmt.Errorf("app %s: root is required", a.Name)
		}
		name := app.SanitizeName(a.Name)
		if names[name] {
			return fmt.Errorf("app %s: duplicated app name", name)
		}
		names[name] = true

		seen := make(map[string]bool, len(a.Jobs))
		for _, job := range a.Jobs {
			if err := job.ToJob().Validate(); err != nil {
				return fmt.Errorf("app %s: %w", a.Name, err)
			}
			if seen[job.Name] {
				return fmt.Errorf("app %s: duplicated job %s", a.Name, job.Name)
			}
			seen[job.Name] = true
		}
	}

	return nil
}

// Metadata builds the application metadata, resolving the environment from env when it is
// not set explicitly.
func (a App) Metadata() *app.Metadata {
	md := app.NewMetadata(a.Name)
	md.SetRoot(a.Root)
	md.Environment = a.Environment
	for k, v := range a.Env {
		md.Env[k] = v
	}
	md.ExtractEnvironment()
	md.ApplyDefaults()

	return md
}

func (a App) ShouldWatchRestart() bool {
	return a.WatchRestart == nil || *a.WatchRestart
}

// MarkerPath returns the restart marker, relative markers being resolved against the root.
func (a App) MarkerPath() string {
	if filepath.IsAbs(a.RestartMarker) {
		return a.RestartMarker
	}

	return filepath.Join(a.Root, a.RestartMarker)
}

func (a App) ToJobs() []jobs.Job {
	result := make([]jobs.Job, 0, len(a.Jobs))
	for _, job := range a.Jobs {
		result = append(result, job.ToJob())
	}

	return result
}

func (j Job) ToJob() jobs.Job {
	return jobs.Job{
		Name:        j.Name,
		Group:       j.Group,
		Description: j.Description,
		Script:      j.Script,
		Args:        j.Args,
		Every:       j.Every,
		Singleton:   j.Singleton,
		Timeout:     j.Timeout,
	}
}
