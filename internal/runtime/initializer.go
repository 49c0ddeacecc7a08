package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/javi11/apphost/internal/app"
	"github.com/mitchellh/mapstructure"
)

// Initializer prepares a freshly created runtime for an application.
type Initializer interface {
	Initialize(ctx context.Context, rt *Runtime) error
}

type InitializerFunc func(ctx context.Context, rt *Runtime) error

func (f InitializerFunc) Initialize(ctx context.Context, rt *Runtime) error {
	return f(ctx, rt)
}

// InitializerSpec selects an initializer by type. Options are decoded into the options
// struct of that type.
type InitializerSpec struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

type WebOptions struct {
	ContextPath string            `mapstructure:"context_path"`
	Env         map[string]string `mapstructure:"env"`
}

type EnvOptions struct {
	Vars map[string]string `mapstructure:"vars"`
}

func NewInitializer(spec InitializerSpec, md *app.Metadata) (Initializer, error) {
	switch spec.Type {
	case "web":
		var opts WebOptions
		if err := decodeOptions(spec.Options, &opts); err != nil {
			return nil, fmt.Errorf("web initializer: %w", err)
		}
		return &WebInitializer{app: md, contextPath: opts.ContextPath, env: opts.Env}, nil
	case "env":
		var opts EnvOptions
		if err := decodeOptions(spec.Options, &opts); err != nil {
			return nil, fmt.Errorf("env initializer: %w", err)
		}
		return envInitializer(opts.Vars), nil
	default:
		return nil, fmt.Errorf("%q: %w", spec.Type, ErrUnknownInitializer)
	}
}

func decodeOptions(input map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func envInitializer(vars map[string]string) Initializer {
	return InitializerFunc(func(_ context.Context, rt *Runtime) error {
		for k, v := range vars {
			rt.Setenv(k, v)
		}
		return nil
	})
}

// WebInitializer exposes the application layout to scripts served under a web context.
type WebInitializer struct {
	app         *app.Metadata
	contextPath string
	env         map[string]string
}

func (w *WebInitializer) Initialize(_ context.Context, rt *Runtime) error {
	root := w.app.RootPath()

	rt.Setenv("APP_ROOT", root)
	rt.Setenv("APP_ENV", w.app.Environment)
	rt.Setenv("APP_NAME", w.app.Name)
	rt.Setenv("APP_CONTEXT_PATH", w.contextPath)

	// Only set for a non-root context.
	if len(w.contextPath) > 1 {
		contextPath := w.contextPath
		if !strings.HasPrefix(contextPath, "/") {
			contextPath = "/" + contextPath
		}
		rt.Setenv("RELATIVE_URL_ROOT", contextPath)
		rt.Setenv("BASE_URI", contextPath)
	}

	for k, v := range w.env {
		rt.Setenv(k, v)
	}

	rt.Chdir(localPath(root))

	return nil
}
