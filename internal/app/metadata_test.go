package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"myapp":                    "myapp",
		"/deployments/myapp.yml":   "myapp",
		"myapp-knob.yml":           "myapp",
		"my.cool.app-knob.yml":     "my-cool-app",
		"/opt/apps/billing-knob":   "billing",
		"relative/dir/shop.tar.gz": "shop-tar",
	}

	for in, expected := range tests {
		assert.Equal(t, expected, SanitizeName(in), in)
	}
}

func TestSanitizeRoot(t *testing.T) {
	assert.Equal(t, "C:/apps/myapp", SanitizeRoot(`C:\apps\myapp`))
	assert.Equal(t, "C:/apps/myapp", SanitizeRoot(`C:\\apps\\myapp`))
	assert.Equal(t, "/srv/myapp", SanitizeRoot("/srv/myapp"))
}

func TestMetadata_RootPath(t *testing.T) {
	md := NewMetadata("myapp")

	md.SetRoot("/srv/myapp/")
	assert.Equal(t, "/srv/myapp", md.RootPath())

	md.SetRoot("srv/myapp")
	assert.Equal(t, "/srv/myapp", md.RootPath())

	md.SetRoot("vfs:/srv/myapp/")
	assert.Equal(t, "vfs:/srv/myapp", md.RootPath())

	md.SetRoot("")
	assert.Equal(t, "vfs:/srv/myapp", md.RootPath())
}

func TestMetadata_Environment(t *testing.T) {
	t.Run("explicit environment wins", func(t *testing.T) {
		md := NewMetadata("myapp")
		md.Environment = "production"
		md.Env["APP_ENV"] = "staging"

		md.ExtractEnvironment()
		md.ApplyDefaults()

		assert.Equal(t, "production", md.Environment)
		assert.False(t, md.IsDevelopmentMode())
	})

	t.Run("environment variables in order", func(t *testing.T) {
		md := NewMetadata("myapp")
		md.Env["RAILS_ENV"] = "test"
		md.Env["RACK_ENV"] = "staging"

		md.ExtractEnvironment()

		assert.Equal(t, "staging", md.Environment)
	})

	t.Run("defaults to development", func(t *testing.T) {
		md := NewMetadata("myapp")
		assert.True(t, md.IsDevelopmentMode())

		md.ExtractEnvironment()
		md.ApplyDefaults()

		assert.Equal(t, DefaultEnvironment, md.Environment)
		assert.True(t, md.IsDevelopmentMode())
	})
}

func TestMetadata_Environ(t *testing.T) {
	md := NewMetadata("myapp")
	md.Env["B"] = "2"
	md.Env["A"] = "1"

	assert.Equal(t, []string{"A=1", "B=2"}, md.Environ())
}

func TestMetadata_Validate(t *testing.T) {
	md := NewMetadata("myapp")
	assert.Error(t, md.Validate())

	md.SetRoot("/srv/myapp")
	assert.NoError(t, md.Validate())

	assert.Error(t, (&Metadata{Root: "/srv"}).Validate())
}
