package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	"git.home.luguber.info/inful/buildconfig/internal/config/document"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/logfields"
	"git.home.luguber.info/inful/buildconfig/internal/metrics"
)

// Loader finds, reads and validates project configuration files. A Loader is
// safe for concurrent use.
type Loader struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	cache    *SpecCache
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger; each pass logs with its own pass id.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) LoaderOption {
	return func(ld *Loader) { ld.recorder = r }
}

// WithCache shares validated specifications between calls that read
// identical files.
func WithCache(c *SpecCache) LoaderOption {
	return func(ld *Loader) { ld.cache = c }
}

// NewLoader creates a Loader with a no-op recorder and the default logger.
func NewLoader(opts ...LoaderOption) *Loader {
	ld := &Loader{logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load validates the configuration of the project checked out at
// projectPath using a default Loader.
func Load(projectPath string, env *catalog.Environment, configPath string) (*Specification, error) {
	return NewLoader().Load(context.Background(), projectPath, env, configPath)
}

// Load validates the configuration of the project checked out at
// projectPath. configPath, relative to projectPath, selects the file
// explicitly; when empty the file is discovered.
func (ld *Loader) Load(ctx context.Context, projectPath string, env *catalog.Environment, configPath string) (*Specification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	passID := uuid.NewString()
	logger := ld.logger.With(logfields.PassID(passID), logfields.Project(projectPath))
	start := time.Now()

	spec, version, err := ld.load(logger, projectPath, env, configPath)
	elapsed := time.Since(start)
	ld.recorder.ObserveValidationDuration(version, elapsed)

	if err != nil {
		outcome := metrics.OutcomeError
		if code, ok := CodeOf(err); ok {
			outcome = metrics.OutcomeInvalid
			ld.recorder.IncValidationError(string(code))
			logger.Info("Configuration rejected",
				logfields.SchemaVersion(version),
				logfields.Code(string(code)),
				logfields.DurationMS(float64(elapsed.Microseconds())/1000),
				logfields.Error(err))
		} else {
			logger.Error("Configuration could not be loaded", logfields.Error(err))
		}
		ld.recorder.IncValidationOutcome(version, outcome)
		return nil, err
	}

	ld.recorder.IncValidationOutcome(version, metrics.OutcomeValid)
	logger.Debug("Configuration valid",
		logfields.ConfigFile(spec.SourceFile),
		logfields.SchemaVersion(version),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return spec, nil
}

func (ld *Loader) load(logger *slog.Logger, projectPath string, env *catalog.Environment, configPath string) (*Specification, int, error) {
	filename, err := resolveConfigFile(projectPath, configPath)
	if err != nil {
		return nil, 0, err
	}
	logger = logger.With(logfields.ConfigFile(filename))

	data, err := readInRoot(projectPath, filename)
	if err != nil {
		return nil, 0, err
	}

	if ld.cache != nil {
		spec, hit := ld.cache.Get(filename, env, data)
		ld.recorder.IncCacheLookup(hit)
		if hit {
			logger.Debug("Configuration served from cache", logfields.CacheHit(true))
			return spec, spec.Version, nil
		}
	}

	raw, err := document.Parse(data)
	if err != nil {
		return nil, 0, &ConfigError{
			Code:    CodeSyntaxInvalid,
			Message: fmt.Sprintf("Parse error in %s: %s", relPath(projectPath, filename), err.Error()),
			cause:   err,
		}
	}

	schema, err := NewSchema(raw, env,
		WithSourceFile(filename),
		WithSchemaLogger(logger),
		WithSchemaRecorder(ld.recorder))
	if err != nil {
		return nil, 0, err
	}
	logger.Debug("Validating configuration", logfields.SchemaVersion(schema.Version()))

	spec, err := schema.Validate()
	if err != nil {
		return nil, schema.Version(), err
	}
	if ld.cache != nil {
		ld.cache.Put(filename, env, data, spec)
	}
	return spec, schema.Version(), nil
}

// resolveConfigFile returns the configuration file to read.
func resolveConfigFile(projectPath, configPath string) (string, error) {
	if configPath != "" {
		filename := filepath.Join(projectPath, configPath)
		if _, err := os.Stat(filename); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fileNotFound(relPath(projectPath, filename))
			}
			return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat configuration file").
				WithContext("path", filename).
				Build()
		}
		return filename, nil
	}
	filename, err := FindConfigFile(projectPath)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "list project directory").
			WithContext("path", projectPath).
			Build()
	}
	if filename == "" {
		return "", defaultFileNotFound(projectPath)
	}
	return filename, nil
}

// readInRoot reads filename, following symlinks only while they stay inside
// root.
func readInRoot(root, filename string) ([]byte, error) {
	rel, err := filepath.Rel(root, filename)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &ConfigError{Code: CodeFileRequired, Message: "Configuration file is outside of the project: " + filename}
	}
	safe, err := securejoin.SecureJoin(root, rel)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve configuration file").
			WithContext("path", filename).
			Build()
	}
	// SecureJoin clamps escaping links to the root, so a link that leaves
	// the project resolves to a different file than the plain path.
	resolved, realErr := filepath.EvalSymlinks(filename)
	clamped, clampedErr := filepath.EvalSymlinks(safe)
	if realErr != nil || clampedErr != nil || resolved != clamped {
		return nil, &ConfigError{
			Code:    CodeFileRequired,
			Message: "Configuration file resolves outside of the project: " + relPath(root, filename),
			cause:   errors.Join(realErr, clampedErr),
		}
	}
	data, err := os.ReadFile(safe)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read configuration file").
			WithContext("path", filename).
			Build()
	}
	return data, nil
}

func relPath(base, target string) string {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel
	}
	return target
}
