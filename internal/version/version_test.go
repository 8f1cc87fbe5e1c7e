package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo_PopulatedAndCached(t *testing.T) {
	first := GetInfo()

	assert.NotEmpty(t, first.Version)
	assert.NotEmpty(t, first.GitCommit)
	assert.NotEmpty(t, first.BuildDate)
	assert.NotEmpty(t, first.InstanceID)
	assert.NotEmpty(t, first.Hostname)

	second := GetInfo()
	assert.Equal(t, first.InstanceID, second.InstanceID, "instance id must be stable within a process")
}

func TestInfo_String(t *testing.T) {
	i := Info{Version: "v1.4.0", GitCommit: "abc123", BuildDate: "2026-01-02T03:04:05Z"}
	assert.Equal(t, "marketplace v1.4.0 (commit: abc123, built: 2026-01-02T03:04:05Z)", i.String())
}

func TestInfo_UserAgent(t *testing.T) {
	i := Info{Version: "v2.0.1"}
	assert.Equal(t, "marketplace/v2.0.1", i.UserAgent())
	assert.True(t, strings.HasPrefix(Info{}.UserAgent(), "marketplace/"))
}
