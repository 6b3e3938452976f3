package config

import (
	"errors"
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/buildconfig/internal/config/validation"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
)

// Code is a stable, machine readable configuration error code.
type Code string

const (
	CodeNotSupported           Code = "config-not-supported"
	CodeVersionInvalid         Code = "version-invalid"
	CodeSyntaxInvalid          Code = "config-syntax-invalid"
	CodeRequired               Code = "config-required"
	CodeFileRequired           Code = "config-file-required"
	CodePythonInvalid          Code = "python-invalid"
	CodeSubmodulesInvalid      Code = "submodules-invalid"
	CodeInvalidKeysCombination Code = "invalid-keys-combination"
	CodeInvalidKey             Code = "invalid-key"
	CodeInvalidName            Code = "invalid-name"
)

// ConfigError is any error caused by the configuration file or its absence.
type ConfigError struct {
	Code    Code
	Message string
	cause   error
}

func (e *ConfigError) Error() string { return e.Message }
func (e *ConfigError) Unwrap() error { return e.cause }

// InvalidConfig is a ConfigError tied to a specific key of the document.
type InvalidConfig struct {
	Key        string
	Code       Code
	Reason     string
	SourceFile string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("Invalid %q: %s", DisplayKey(e.Key), e.Reason)
}

var indexedKey = regexp.MustCompile(`^([a-zA-Z_.-]+)\.(\d+)([a-zA-Z_.-]*)$`)

// DisplayKey renders list indexes with brackets:
// python.install.0.requirements becomes python.install[0].requirements.
func DisplayKey(key string) string {
	m := indexedKey.FindStringSubmatch(key)
	if m == nil {
		return key
	}
	return fmt.Sprintf("%s[%s]%s", m[1], m[2], m[3])
}

// ConfigOptionNotSupportedError is returned for options the schema version
// does not provide.
type ConfigOptionNotSupportedError struct {
	Option string
}

func (e *ConfigOptionNotSupportedError) Error() string {
	return fmt.Sprintf("The %q configuration option is not supported in this version", e.Option)
}

func fileNotFound(rel string) *ConfigError {
	return &ConfigError{Code: CodeFileRequired, Message: "Configuration file not found in: " + rel}
}

func defaultFileNotFound(dir string) *ConfigError {
	return &ConfigError{Code: CodeFileRequired, Message: "No default configuration file in: " + dir}
}

// CodeOf extracts the configuration error code of err, including the
// primitive validation codes carried by *validation.Error.
func CodeOf(err error) (Code, bool) {
	var invalid *InvalidConfig
	if errors.As(err, &invalid) {
		return invalid.Code, true
	}
	var notSupported *ConfigOptionNotSupportedError
	if errors.As(err, &notSupported) {
		return CodeNotSupported, true
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Code, true
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return Code(verr.Code), true
	}
	return "", false
}

// Classify converts configuration errors into classified errors for the CLI.
// Errors that are already classified, or not configuration errors, are
// returned unchanged.
func Classify(err error) error {
	if err == nil || ferrors.IsClassified(err) {
		return err
	}
	code, ok := CodeOf(err)
	if !ok {
		return err
	}
	category := ferrors.CategoryConfig
	if code == CodeFileRequired {
		category = ferrors.CategoryNotFound
	}
	b := ferrors.WrapError(err, category, err.Error()).
		Fatal().
		UserAction().
		WithContext("code", string(code))
	var invalid *InvalidConfig
	if errors.As(err, &invalid) {
		b = b.WithContext("key", invalid.Key)
		if invalid.SourceFile != "" {
			b = b.WithContext("source_file", invalid.SourceFile)
		}
	}
	return b.Build()
}
