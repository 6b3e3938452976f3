package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// execute parses args and runs the selected command, returning its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("buildconfig"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = ctx.Run(&Global{Logger: slog.Default(), Out: &out}, cli)
	return out.String(), err
}

func TestValidatePrintsSpecification(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".readthedocs.yaml"), "version: 2\nformats: [pdf]\nmkdocs: {}\n")

	out, err := execute(t, "validate", dir, "--format", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2", got["version"])
	assert.Equal(t, "mkdocs", got["doctype"])
	assert.Equal(t, []any{"pdf"}, got["formats"])

	out, err = execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "doctype: mkdocs\n")
}

func TestValidateExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "rtd.yml"), "version: 1\n")

	out, err := execute(t, "validate", dir, "-f", "docs/rtd.yml")
	require.NoError(t, err)
	assert.Contains(t, out, `version: "1"`)
}

func TestValidateErrorsAreClassified(t *testing.T) {
	adapter := ferrors.NewCLIErrorAdapter(false, nil)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".readthedocs.yaml"), "version: 2\nunknown: 1\n")
	_, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, 7, adapter.ExitCodeFor(err))
	assert.Equal(t,
		`Error [invalid-key]: Invalid "unknown": .readthedocs.yaml: Invalid configuration option: unknown. Make sure the key name is correct.`,
		adapter.FormatError(err))

	_, err = execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 3, adapter.ExitCodeFor(err))
}

func TestCatalogCommand(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "image_namespace: readthedocs/build")
	assert.Contains(t, out, "ubuntu-22.04")

	out, err = execute(t, "catalog", "-o", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
}

const customCatalog = `
image_namespace: registry.local/docs
default_image_version: latest
images:
  registry.local/docs:1.0:
    python:
      supported_versions: ["3", "3.12"]
      default_version: {"3": "3.12"}
image_aliases:
  latest: "1.0"
os:
  debian-12: registry.local/docs:debian-12
tools:
  python:
    "3.12": 3.12.4
`

func TestCatalogFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	writeFile(t, catalogPath, customCatalog)
	envFile := filepath.Join(dir, "buildconfig.env")
	writeFile(t, envFile, CatalogEnvVar+"="+catalogPath+"\n")

	t.Setenv(CatalogEnvVar, "")
	require.NoError(t, os.Unsetenv(CatalogEnvVar))

	out, err := execute(t, "--env-file", envFile, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "image_namespace: registry.local/docs")
}

func TestCatalogFlagAndDefaults(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	writeFile(t, catalogPath, customCatalog)
	defaultsPath := filepath.Join(dir, "defaults.yaml")
	writeFile(t, defaultsPath, "defaults:\n  doctype: sphinx_htmldir\n  python_version: \"3\"\n")
	project := filepath.Join(dir, "project")
	writeFile(t, filepath.Join(project, "readthedocs.yml"), "python:\n  version: \"3.12\"\n")

	out, err := execute(t, "--catalog", catalogPath, "--defaults", defaultsPath, "validate", project, "-o", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sphinx_htmldir", got["doctype"])
	assert.Equal(t, "3.12", got["python"].(map[string]any)["version"])
	assert.Equal(t, "registry.local/docs:latest", got["build"].(map[string]any)["image"])
}

func TestMissingCatalogFile(t *testing.T) {
	_, err := execute(t, "--catalog", filepath.Join(t.TempDir(), "missing.yaml"), "catalog")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestWatchReportsInitialState(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".readthedocs.yaml"), "version: 2\n")

	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	_, err = parser.Parse([]string{"watch", dir, "--debounce", "10ms"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	require.NoError(t, cli.Watch.run(ctx, &Global{Logger: slog.Default(), Out: &out}, cli))
	assert.Contains(t, out.String(), "OK .readthedocs.yaml (version 2, sphinx, snapshot ")
}
