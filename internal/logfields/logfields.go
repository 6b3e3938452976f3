package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPassID        = "pass_id"
	KeyProject       = "project"
	KeyConfigFile    = "config_file"
	KeySchemaVersion = "schema_version"
	KeyStage         = "stage"
	KeyKey           = "key"
	KeyCode          = "code"
	KeyOutcome       = "outcome"
	KeyPath          = "path"
	KeyDurationMS    = "duration_ms"
	KeyCacheHit      = "cache_hit"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PassID(id string) slog.Attr      { return slog.String(KeyPassID, id) }
func Project(p string) slog.Attr      { return slog.String(KeyProject, p) }
func ConfigFile(f string) slog.Attr   { return slog.String(KeyConfigFile, f) }
func SchemaVersion(v int) slog.Attr   { return slog.Int(KeySchemaVersion, v) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Code(c string) slog.Attr         { return slog.String(KeyCode, c) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func CacheHit(hit bool) slog.Attr     { return slog.Bool(KeyCacheHit, hit) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
