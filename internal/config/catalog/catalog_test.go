package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "readthedocs/build:latest", c.DefaultImage())
	assert.Equal(t, []string{"2.0", "4.0", "5.0", "6.0", "7.0", "latest", "stable", "testing"}, c.ValidImageNames())
	assert.Equal(t, []string{"ubuntu-20.04", "ubuntu-22.04"}, c.OperatingSystems())
	assert.Equal(t, []string{"golang", "nodejs", "python", "rust"}, c.ToolNames())
	assert.Contains(t, c.ToolVersions("python"), "3.10")
	assert.Contains(t, c.PythonVersions(), "pypy3.5")

	full, ok := c.ToolFullVersion("nodejs", "16")
	assert.True(t, ok)
	assert.Equal(t, "16.18.0", full)
	_, ok = c.ToolFullVersion("nodejs", "12")
	assert.False(t, ok)

	image, ok := c.OSImage("ubuntu-22.04")
	assert.True(t, ok)
	assert.Equal(t, "readthedocs/build:ubuntu-22.04", image)
}

func TestImageSettingsFollowsAliases(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	latest, ok := c.ImageSettings("readthedocs/build:latest")
	require.True(t, ok)
	six, ok := c.ImageSettings("readthedocs/build:6.0")
	require.True(t, ok)
	assert.Equal(t, six, latest)

	_, ok = c.ImageSettings("other/image:latest")
	assert.False(t, ok)
	_, ok = c.ImageSettings("readthedocs/build:1.0")
	assert.False(t, ok)

	assert.Equal(t, latest, c.ImageSettingsOrDefault("custom:image"))
}

func TestQualifyImage(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "readthedocs/build:5.0", c.QualifyImage("5.0"))
	assert.Equal(t, "custom:tag", c.QualifyImage("custom:tag"))
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "images: [unclosed"},
		{"missing namespace", "default_image_version: latest\nimages: {\"a:1\": {python: {supported_versions: [\"3\"], default_version: {}}}}\nos: {x: y}\ntools: {python: {\"3\": \"3.0.0\"}}"},
		{"no tools", "image_namespace: a\ndefault_image_version: \"1\"\nimages: {\"a:1\": {python: {supported_versions: [\"3\"], default_version: {}}}}\nos: {x: y}"},
		{"empty tool", "image_namespace: a\ndefault_image_version: \"1\"\nimages: {\"a:1\": {python: {supported_versions: [\"3\"], default_version: {}}}}\nos: {x: y}\ntools: {python: {}}"},
		{"unknown default", "image_namespace: a\ndefault_image_version: \"2\"\nimages: {\"a:1\": {python: {supported_versions: [\"3\"], default_version: {}}}}\nos: {x: y}\ntools: {python: {\"3\": \"3.0.0\"}}"},
		{"dangling alias", "image_namespace: a\ndefault_image_version: \"1\"\nimage_aliases: {latest: \"9\"}\nimages: {\"a:1\": {python: {supported_versions: [\"3\"], default_version: {}}}}\nos: {x: y}\ntools: {python: {\"3\": \"3.0.0\"}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
image_namespace: acme/build
default_image_version: "1.0"
images:
  "acme/build:1.0":
    python:
      supported_versions: ["3", "3.9"]
      default_version: {"3": "3.9"}
os:
  debian-12: acme/build:debian-12
tools:
  python:
    "3.9": 3.9.18
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acme/build:1.0", c.DefaultImage())
	assert.Equal(t, []string{"1.0", "latest", "stable", "testing"}, c.ValidImageNames())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestEnvironment(t *testing.T) {
	env, err := NewEnvironment(nil, ProjectDefaults{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDocType, env.DocType())
	assert.Equal(t, "readthedocs/build:latest", env.StartImage())

	env.DefaultBuildImage = "readthedocs/build:2.0"
	env.Defaults.DocType = "mkdocs"
	assert.Equal(t, "readthedocs/build:2.0", env.StartImage())
	assert.Equal(t, "mkdocs", env.DocType())

	_, err = NewEnvironment(nil, ProjectDefaults{Formats: []string{"docx"}})
	require.Error(t, err)
	_, err = NewEnvironment(nil, ProjectDefaults{DocType: "latex"})
	require.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_build_image: readthedocs/build:5.0
python_supported_versions: ["2.7", "3.6"]
defaults:
  python_version: "3.6"
  install_project: true
  formats: [pdf]
  sphinx_configuration: docs/conf.py
`), 0o600))

	env, err := LoadEnvironment(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "readthedocs/build:5.0", env.StartImage())
	assert.Equal(t, []string{"2.7", "3.6"}, env.PythonSupportedVersions)
	assert.True(t, env.Defaults.InstallProject)
	assert.Equal(t, []string{"pdf"}, env.Defaults.Formats)
	assert.Equal(t, "docs/conf.py", env.Defaults.SphinxConfiguration)
}
