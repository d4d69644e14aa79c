package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	b := Current()
	assert.Equal(t, "dev", b.Version)
	assert.Equal(t, runtime.Version(), b.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, b.Platform)
	assert.NotEmpty(t, b.Commit)
	assert.NotEmpty(t, b.Date)
	assert.Equal(t, "dev", Short())
}

func TestFromSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2024-01-06T09:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	var b Build
	b.fromSettings(settings)
	assert.Equal(t, "0123456789abcdef0123", b.Commit)
	assert.Equal(t, "2024-01-06T09:00:00Z", b.Date)
	assert.True(t, b.Modified)

	// ldflags values win over the VCS stamp.
	b = Build{Commit: "release", Date: "2024-02-01"}
	b.fromSettings(settings)
	assert.Equal(t, "release", b.Commit)
	assert.Equal(t, "2024-02-01", b.Date)
}

func TestBuildString(t *testing.T) {
	b := Build{
		Version:   "0.3.0",
		Commit:    "0123456789abcdef0123",
		Date:      "2024-01-06",
		GoVersion: "go1.25.7",
		Platform:  "linux/amd64",
		Modified:  true,
	}
	assert.Equal(t, "RentBuddy 0.3.0 (commit 0123456789ab+dirty, built 2024-01-06, go1.25.7 linux/amd64)", b.String())
}
