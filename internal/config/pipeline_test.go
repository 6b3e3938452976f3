package config

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() error { return nil }

func TestNewPipelineRejectsBadOrder(t *testing.T) {
	assert.PanicsWithValue(t, `config: stage "python" needs "build", which does not run before it`, func() {
		newPipeline(
			stage{name: "python", needs: []string{"build"}, run: noop},
			stage{name: "build", run: noop},
		)
	})
	assert.PanicsWithValue(t, `config: duplicate stage "build"`, func() {
		newPipeline(stage{name: "build", run: noop}, stage{name: "build", run: noop})
	})
	assert.NotPanics(t, func() {
		newPipeline(stage{name: "build", run: noop}, stage{name: "python", needs: []string{"build"}, run: noop})
	})
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	step := func(name string, err error) stage {
		return stage{name: name, run: func() error {
			ran = append(ran, name)
			return err
		}}
	}
	rec := &fakeRecorder{}
	p := newPipeline(step("a", nil), step("b", boom), step("c", nil))

	assert.Equal(t, []string{"a", "b", "c"}, p.names())
	err := p.run(slog.Default(), rec)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, []string{"a", "b"}, rec.stages)
}

func TestMemo(t *testing.T) {
	m := memo[string]{name: "build.image"}
	assert.PanicsWithValue(t, "config: build.image read before it was resolved", func() { m.get() })

	m.assign("readthedocs/build:latest")
	assert.Equal(t, "readthedocs/build:latest", m.get())
	assert.PanicsWithValue(t, "config: build.image assigned twice", func() { m.assign("other") })
}
