package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBuildInfo(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version, Commit = "", ""
	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	assert.Equal(t, "v1.2.3", Version)
	assert.Equal(t, "0123456-dirty", Commit)
	assert.Equal(t, "v1.2.3 (commit: 0123456-dirty)", Full())
}

func TestServerStringFitsVersionField(t *testing.T) {
	oldV := Version
	t.Cleanup(func() { Version = oldV })

	Version = "v0.4.0"
	assert.Equal(t, "sccpd-0.4.0", ServerString())

	Version = "v0.4.0-rc.1+build.20260101"
	assert.Len(t, ServerString(), 15)
}
