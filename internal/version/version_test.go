package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	assert.Equal(t, "buildconfig unknown (commit unknown, built unknown)", String())

	Version, GitCommit, BuildTime = "v0.3.0", "abc123", "2026-10-01"
	assert.Equal(t, "buildconfig v0.3.0 (commit abc123, built 2026-10-01)", String())
}
