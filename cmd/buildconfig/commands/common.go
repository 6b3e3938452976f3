package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/logfields"
)

// CatalogEnvVar names the catalog file when --catalog is not given.
const CatalogEnvVar = "BUILDCONFIG_CATALOG"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	EnvFile     string           `name:"env-file" help:"Load environment variables from this file if it exists" default:".env"`
	CatalogFile string           `name:"catalog" help:"Build image catalog (default: $BUILDCONFIG_CATALOG, else the embedded catalog)" type:"path"`
	Defaults    string           `help:"Project defaults file applied to every configuration" type:"path"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Validate    ValidateCmd `cmd:"" help:"Validate a project's configuration file and print the resolved settings"`
	ShowCatalog CatalogCmd  `cmd:"" name:"catalog" help:"Print the effective build image catalog"`
	Watch       WatchCmd    `cmd:"" help:"Re-validate the configuration whenever it changes"`
}

// AfterApply runs after flag parsing; setup logging and the environment once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if c.EnvFile != "" {
		if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "load environment file").
				WithContext("path", c.EnvFile).
				Build()
		}
	}
	if c.CatalogFile == "" {
		c.CatalogFile = os.Getenv(CatalogEnvVar)
	}
	return nil
}

// environment builds the validation environment from the global flags.
func (c *CLI) environment(logger *slog.Logger) (*catalog.Environment, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if c.CatalogFile != "" {
		logger.Debug("Loading catalog", logfields.Path(c.CatalogFile))
		if cat, err = catalog.LoadFile(c.CatalogFile); err != nil {
			return nil, err
		}
	} else if cat, err = catalog.Default(); err != nil {
		return nil, err
	}
	if c.Defaults != "" {
		logger.Debug("Loading project defaults", logfields.Path(c.Defaults))
		return catalog.LoadEnvironment(cat, c.Defaults)
	}
	return catalog.NewEnvironment(cat, catalog.ProjectDefaults{})
}

// writeDocument renders v as indented JSON or YAML.
func writeDocument(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return ferrors.ValidationError(fmt.Sprintf("unknown output format %q", format)).Build()
	}
}
