// Package validation contains the shape and value checks used by the
// configuration schemas. Every check fails with an *Error carrying a generic
// code; callers attach the key path the value came from.
package validation

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/buildconfig/internal/config/document"
)

// Code identifies the kind of primitive failure.
type Code string

const (
	CodeInvalidBool        Code = "invalid-bool"
	CodeInvalidChoice      Code = "invalid-choice"
	CodeInvalidList        Code = "invalid-list"
	CodeInvalidDict        Code = "invalid-dictionary"
	CodeInvalidPath        Code = "invalid-path"
	CodeInvalidPathPattern Code = "invalid-path-pattern"
	CodeInvalidString      Code = "invalid-string"
	CodeValueNotFound      Code = "value-not-found"
)

// Error is a primitive validation failure.
type Error struct {
	Value   any
	Code    Code
	choices []string
}

func (e *Error) Error() string {
	value := Display(e.Value)
	switch e.Code {
	case CodeInvalidBool:
		return fmt.Sprintf("expected one of (0, 1, true, false), got %s", value)
	case CodeInvalidChoice:
		return fmt.Sprintf("expected one of (%s), got %s", strings.Join(e.choices, ", "), value)
	case CodeInvalidDict:
		return fmt.Sprintf("%s is not a dictionary", value)
	case CodeInvalidPath:
		return fmt.Sprintf("path %s does not exist", value)
	case CodeInvalidPathPattern:
		return fmt.Sprintf("%s is not a valid path pattern", value)
	case CodeInvalidString:
		return "expected string"
	case CodeInvalidList:
		return "expected list"
	case CodeValueNotFound:
		return fmt.Sprintf("%s not found", value)
	default:
		return fmt.Sprintf("unrecognised value %s", value)
	}
}

// ValueNotFound reports a required key that is missing.
func ValueNotFound(key string) *Error {
	return &Error{Value: key, Code: CodeValueNotFound}
}

// Bool accepts booleans and the integers 0 and 1.
func Bool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, &Error{Value: value, Code: CodeInvalidBool}
}

// Dict requires a mapping.
func Dict(value any) (*document.Map, error) {
	if m, ok := value.(*document.Map); ok {
		return m, nil
	}
	return nil, &Error{Value: value, Code: CodeInvalidDict}
}

// List requires a sequence.
func List(value any) ([]any, error) {
	if l, ok := value.([]any); ok {
		return l, nil
	}
	return nil, &Error{Value: value, Code: CodeInvalidList}
}

// String requires a string.
func String(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", &Error{Value: value, Code: CodeInvalidString}
}

// Strings requires a sequence of strings.
func Strings(value any) ([]string, error) {
	items, err := List(value)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := String(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Choice requires value to be one of choices. The comparison is
// case-sensitive and type-strict: the integer 3 is not the string "3".
func Choice[T comparable](value any, choices []T) (T, error) {
	if v, ok := value.(T); ok {
		for _, c := range choices {
			if c == v {
				return v, nil
			}
		}
	}
	var zero T
	display := make([]string, len(choices))
	for i, c := range choices {
		display[i] = fmt.Sprint(c)
	}
	return zero, &Error{Value: value, Code: CodeInvalidChoice, choices: display}
}

// Path resolves value relative to base. The result is relative to base and
// may not point outside of it. The file does not need to exist.
func Path(value any, base string) (string, error) {
	s, err := String(value)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &Error{Value: value, Code: CodeInvalidPath}
	}
	full := filepath.Join(base, s)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &Error{Value: value, Code: CodeInvalidPath}
	}
	return rel, nil
}

// PathPattern normalizes a glob pattern relative to the site root and checks
// its syntax (*, ?, [seq]). No filesystem access happens.
func PathPattern(value any) (string, error) {
	s, err := String(value)
	if err != nil {
		return "", err
	}
	cleaned := path.Clean("/" + strings.TrimLeft(s, "/"))
	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "" {
		return "", &Error{Value: value, Code: CodeInvalidPathPattern}
	}
	if _, err := glob.Compile(cleaned, '/'); err != nil {
		return "", &Error{Value: value, Code: CodeInvalidPathPattern}
	}
	return cleaned, nil
}

// Display renders a raw value the way users wrote it in the file.
func Display(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		return FormatFloat(v)
	case *document.Map:
		return "{" + strings.Join(v.Keys(), ", ") + "}"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Display(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// FormatFloat renders floats with at least one decimal ("5.0", "3.1"), which
// is how version numbers read from the document are turned into strings.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
