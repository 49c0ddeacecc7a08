package app

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

const DefaultEnvironment = "development"

// Environment variables consulted, in order, when no environment name is configured.
var environmentKeys = []string{"APP_ENV", "RACK_ENV", "RAILS_ENV"}

// Metadata describes one hosted application.
type Metadata struct {
	Name        string
	Root        string
	Environment string
	Env         map[string]string
}

func NewMetadata(name string) *Metadata {
	return &Metadata{
		Name: SanitizeName(name),
		Env:  make(map[string]string),
	}
}

// SanitizeName turns a deployment name such as "/deploy/my.app-knob.yml" into "my-app".
func SanitizeName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "-knob"); i >= 0 {
		name = name[:i]
	}

	return strings.ReplaceAll(name, ".", "-")
}

// SanitizeRoot converts Windows separators to forward slashes. Escaped separators ("\\\\")
// collapse to a single slash and stray backslashes are dropped.
func SanitizeRoot(path string) string {
	if strings.Contains(path, `\\`) {
		path = strings.ReplaceAll(path, `\\`, "/")
		return strings.ReplaceAll(path, `\`, "")
	}

	return strings.ReplaceAll(path, `\`, "/")
}

func (m *Metadata) SetRoot(path string) {
	if path == "" {
		return
	}
	m.Root = SanitizeRoot(path)
}

// RootPath returns the root as an absolute path without a trailing slash. "vfs:" roots are
// kept as they are.
func (m *Metadata) RootPath() string {
	root := strings.TrimSuffix(m.Root, "/")
	if !strings.HasPrefix(root, "vfs:") && !strings.HasPrefix(root, "/") {
		root = "/" + root
	}

	return root
}

// ExtractEnvironment fills Environment from the application environment variables when it
// was not set explicitly.
func (m *Metadata) ExtractEnvironment() {
	if m.Environment == "" {
		m.Environment = m.environmentFromEnv()
	}
}

func (m *Metadata) ApplyDefaults() {
	if m.Environment == "" {
		m.Environment = DefaultEnvironment
	}
	if m.Env == nil {
		m.Env = make(map[string]string)
	}
}

func (m *Metadata) IsDevelopmentMode() bool {
	env := m.Environment
	if env == "" {
		env = m.environmentFromEnv()
	}

	return env == "" || strings.EqualFold(strings.TrimSpace(env), DefaultEnvironment)
}

// Environ returns the application environment variables as sorted KEY=VALUE pairs.
func (m *Metadata) Environ() []string {
	keys := maps.Keys(m.Env)
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+m.Env[k])
	}

	return environ
}

func (m *Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if m.Root == "" {
		return fmt.Errorf("application %s: root is required", m.Name)
	}

	return nil
}

func (m *Metadata) String() string {
	return fmt.Sprintf("[app %s root=%s environment=%s]", m.Name, m.Root, m.Environment)
}

func (m *Metadata) environmentFromEnv() string {
	for _, k := range environmentKeys {
		if v, ok := m.Env[k]; ok && v != "" {
			return v
		}
	}

	return ""
}
