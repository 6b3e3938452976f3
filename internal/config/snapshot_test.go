package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
)

func TestSnapshot(t *testing.T) {
	env := testEnv(t, catalog.ProjectDefaults{})
	base := mustValidate(t, env, modernBuild+"formats: [pdf, epub]\n")

	require.Len(t, base.Snapshot(), 64)
	assert.Equal(t, base.Snapshot(), mustValidate(t, env, modernBuild+"formats: [pdf, epub]\n").Snapshot())

	t.Run("format order is ignored", func(t *testing.T) {
		other := mustValidate(t, env, modernBuild+"formats: [epub, pdf]\n")
		assert.Equal(t, base.Snapshot(), other.Snapshot())
	})

	t.Run("base path is ignored", func(t *testing.T) {
		schema, err := NewSchema(mustParseMap(t, modernBuild+"formats: [pdf, epub]\n"), env,
			WithBasePath("/elsewhere"), WithSourceFile("/elsewhere/.readthedocs.yaml"))
		require.NoError(t, err)
		moved, err := schema.Validate()
		require.NoError(t, err)
		assert.Equal(t, base.Snapshot(), moved.Snapshot())
	})

	t.Run("build options change the snapshot", func(t *testing.T) {
		other := mustValidate(t, env, modernBuild+"formats: [pdf]\n")
		assert.NotEqual(t, base.Snapshot(), other.Snapshot())
	})

	t.Run("nil specification", func(t *testing.T) {
		var spec *Specification
		assert.Empty(t, spec.Snapshot())
	})
}
