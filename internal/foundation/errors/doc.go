// Package errors provides the classified error primitives shared by the
// configuration engine and the CLI.
//
// A ClassifiedError carries a category (config, validation, filesystem, ...),
// a severity, a retry strategy and free-form context. Configuration errors
// produced while validating a project's build configuration are converted to
// ClassifiedError values at the CLI boundary so exit codes and log levels are
// decided in one place (see CLIErrorAdapter).
//
// Example usage:
//
//	err := errors.ConfigError("invalid build.os").
//		WithContext("code", "invalid-choice").
//		WithContext("key", "build.os").
//		Build()
package errors
