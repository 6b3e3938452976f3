package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	"git.home.luguber.info/inful/buildconfig/internal/config/document"
	"git.home.luguber.info/inful/buildconfig/internal/foundation"
)

const testBasePath = "/srv/project"

func testEnv(t *testing.T, defaults catalog.ProjectDefaults) *catalog.Environment {
	t.Helper()
	env, err := catalog.NewEnvironment(nil, defaults)
	require.NoError(t, err)
	return env
}

func mustParseMap(t *testing.T, src string) *document.Map {
	t.Helper()
	raw, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return raw
}

func someString(s string) foundation.Option[string] {
	return foundation.Some(s)
}

// validateYAML parses src and validates it without touching the filesystem.
func validateYAML(t *testing.T, env *catalog.Environment, src string) (*Specification, error) {
	t.Helper()
	schema, err := NewSchema(mustParseMap(t, src), env, WithBasePath(testBasePath))
	if err != nil {
		return nil, err
	}
	return schema.Validate()
}

func mustValidate(t *testing.T, env *catalog.Environment, src string) *Specification {
	t.Helper()
	spec, err := validateYAML(t, env, src)
	require.NoError(t, err)
	return spec
}

// requireInvalid asserts err is an *InvalidConfig for key with code.
func requireInvalid(t *testing.T, err error, code Code, key string) *InvalidConfig {
	t.Helper()
	require.Error(t, err)
	var invalid *InvalidConfig
	require.True(t, errors.As(err, &invalid), "expected *InvalidConfig, got %T: %v", err, err)
	require.Equal(t, code, invalid.Code, invalid.Error())
	require.Equal(t, key, invalid.Key, invalid.Error())
	return invalid
}
