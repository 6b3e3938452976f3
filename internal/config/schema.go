package config

import (
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	"git.home.luguber.info/inful/buildconfig/internal/config/document"
	"git.home.luguber.info/inful/buildconfig/internal/config/validation"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/metrics"
)

// Schema validates one parsed document against one configuration version.
// A Schema is single use: Validate may only be called once.
type Schema interface {
	Version() int
	Stages() []string
	Validate() (*Specification, error)
}

// SchemaOption configures a Schema.
type SchemaOption func(*schemaBase)

// WithSourceFile records the file the document was read from. Paths in the
// document are resolved against its directory.
func WithSourceFile(path string) SchemaOption {
	return func(b *schemaBase) {
		b.sourceFile = path
		b.basePath = filepath.Dir(path)
	}
}

// WithBasePath sets the directory paths are resolved against when the
// document does not come from a file.
func WithBasePath(dir string) SchemaOption {
	return func(b *schemaBase) { b.basePath = dir }
}

// WithSchemaLogger sets the logger used for stage tracing.
func WithSchemaLogger(l *slog.Logger) SchemaOption {
	return func(b *schemaBase) { b.logger = l }
}

// WithSchemaRecorder sets the metrics recorder for stage timings.
func WithSchemaRecorder(r metrics.Recorder) SchemaOption {
	return func(b *schemaBase) { b.recorder = r }
}

// NewSchema reads the version key (default 1) and returns the matching
// schema.
func NewSchema(raw *document.Map, env *catalog.Environment, opts ...SchemaOption) (Schema, error) {
	if env == nil || env.Catalog == nil {
		return nil, ferrors.InternalError("validation environment has no catalog").Build()
	}
	var value any = 1
	if raw != nil {
		if v, ok := raw.Get("version"); ok {
			value = v
		}
	}
	version, ok := coerceVersion(value)
	base := &schemaBase{
		doc:      document.New(raw),
		env:      env,
		basePath: ".",
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(base)
	}
	switch {
	case ok && version == 1:
		return newSchemaV1(base), nil
	case ok && version == 2:
		return newSchemaV2(base), nil
	default:
		return nil, &InvalidConfig{
			Key:        "version",
			Code:       CodeVersionInvalid,
			Reason:     "Invalid version of the configuration file",
			SourceFile: base.sourceFile,
		}
	}
}

// coerceVersion accepts integers, floats (truncated) and numeric strings.
// Booleans count as 1 and 0, so "version: true" selects version 1 and
// "version: false" is rejected as version 0.
func coerceVersion(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// schemaBase holds the state shared by every schema version.
type schemaBase struct {
	doc        *document.Document
	env        *catalog.Environment
	sourceFile string
	basePath   string
	logger     *slog.Logger
	recorder   metrics.Recorder
	validated  bool
}

func (b *schemaBase) catalog() *catalog.Catalog { return b.env.Catalog }

// begin guards against validating the same document twice.
func (b *schemaBase) begin(version int) error {
	if b.validated {
		return ferrors.InternalError("configuration already validated").
			WithContext("schema_version", version).
			Build()
	}
	b.validated = true
	return nil
}

// get returns an unconsumed value without consuming it.
func (b *schemaBase) get(key string) (any, bool) {
	return b.doc.Lookup(document.ParsePath(key))
}

func (b *schemaBase) has(key string) bool {
	return b.doc.Has(document.ParsePath(key))
}

// pop consumes the value at the dotted key. Absent keys yield def, or a
// value-not-found error when required.
func (b *schemaBase) pop(key string, def any, required bool) (any, error) {
	path := document.ParsePath(key)
	v, ok, err := b.doc.Take(path)
	if err != nil {
		var shape *document.ShapeError
		if errors.As(err, &shape) {
			return nil, &validation.Error{Value: shape.Value, Code: validation.CodeInvalidDict}
		}
		return nil, err
	}
	if ok {
		return v, nil
	}
	if required {
		return nil, validation.ValueNotFound(b.missingSegment(path))
	}
	return def, nil
}

func (b *schemaBase) missingSegment(path document.Path) string {
	for i := range path {
		if !b.doc.Has(path[:i+1]) {
			return path[i]
		}
	}
	return path[len(path)-1]
}

// catch labels primitive validation failures raised by fn with key.
func (b *schemaBase) catch(key string, fn func() error) error {
	err := fn()
	var verr *validation.Error
	if errors.As(err, &verr) {
		return &InvalidConfig{
			Key:        key,
			Code:       Code(verr.Code),
			Reason:     verr.Error(),
			SourceFile: b.sourceFile,
		}
	}
	return err
}

// fail reports an error on key, prefixed with the configuration file name.
func (b *schemaBase) fail(key, message string, code Code) *InvalidConfig {
	if b.sourceFile != "" {
		if rel, err := filepath.Rel(b.basePath, b.sourceFile); err == nil {
			message = rel + ": " + message
		}
	}
	return &InvalidConfig{Key: key, Code: code, Reason: message, SourceFile: b.sourceFile}
}

func (b *schemaBase) newSpecification(version int) *Specification {
	return &Specification{
		Version:    version,
		SourceFile: b.sourceFile,
		BasePath:   b.basePath,
		catalog:    b.env.Catalog,
	}
}

// truthy follows the usual YAML notion of an empty value.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case *document.Map:
		return t.Len() > 0
	default:
		return true
	}
}

// scalarString renders a scalar the way it would be spelled in the file, so
// that version numbers read as floats or ints can be compared as strings.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	default:
		return validation.Display(v)
	}
}
