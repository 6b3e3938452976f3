package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildconfig/internal/config/validation"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
)

func TestDisplayKey(t *testing.T) {
	tests := map[string]string{
		"python.install.0.requirements":         "python.install[0].requirements",
		"python.install.12":                     "python.install[12]",
		"build.apt_packages.3":                  "build.apt_packages[3]",
		"python.version":                        "python.version",
		".":                                     ".",
		"python.install.0.extra_requirements.1": "python.install.0.extra_requirements.1",
	}
	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, want, DisplayKey(key))
		})
	}
}

func TestInvalidConfigMessage(t *testing.T) {
	err := &InvalidConfig{Key: "python.install.1.path", Code: Code(validation.CodeInvalidPath), Reason: "path ../x does not exist"}
	assert.Equal(t, `Invalid "python.install[1].path": path ../x does not exist`, err.Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		ok   bool
	}{
		{"invalid config", &InvalidConfig{Key: "foo", Code: CodeInvalidKey}, CodeInvalidKey, true},
		{"wrapped", fmt.Errorf("load: %w", &InvalidConfig{Code: CodePythonInvalid}), CodePythonInvalid, true},
		{"config error", defaultFileNotFound("/srv"), CodeFileRequired, true},
		{"not supported", &ConfigOptionNotSupportedError{Option: "search"}, CodeNotSupported, true},
		{"primitive", validation.ValueNotFound("os"), Code(validation.CodeValueNotFound), true},
		{"other", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := CodeOf(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("disk on fire")
	assert.Same(t, plain, Classify(plain))

	already := ferrors.RuntimeError("boom").Build()
	assert.Same(t, already, Classify(already))

	invalid := &InvalidConfig{Key: "build.os", Code: Code(validation.CodeInvalidChoice), Reason: "nope", SourceFile: "/srv/.readthedocs.yml"}
	classified, ok := ferrors.AsClassified(Classify(invalid))
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryConfig, classified.Category())
	assert.True(t, classified.IsFatal())
	assert.ErrorIs(t, classified, invalid)
	assert.Equal(t, invalid.Error(), classified.Message())

	ctx := classified.Context()
	code, _ := ctx.GetString("code")
	key, _ := ctx.GetString("key")
	source, _ := ctx.GetString("source_file")
	assert.Equal(t, "invalid-choice", code)
	assert.Equal(t, "build.os", key)
	assert.Equal(t, "/srv/.readthedocs.yml", source)

	classified, ok = ferrors.AsClassified(Classify(fileNotFound("docs/rtd.yml")))
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryNotFound, classified.Category())
}

func TestClassifiedExitCodes(t *testing.T) {
	adapter := ferrors.NewCLIErrorAdapter(false, nil)
	assert.NotEqual(t,
		adapter.ExitCodeFor(Classify(defaultFileNotFound("/srv"))),
		adapter.ExitCodeFor(Classify(&InvalidConfig{Key: "foo", Code: CodeInvalidKey})))
}
