// Package version carries build metadata for the marketplace service.
// The package variables are stamped with -ldflags at build time.
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	// Version is the release tag or short commit.
	// Set via: -ldflags "-X marketplace/internal/version.Version=..."
	Version = "dev"

	// BuildDate is the UTC build timestamp (RFC 3339).
	// Set via: -ldflags "-X marketplace/internal/version.BuildDate=..."
	BuildDate = "unknown"

	// GitCommit is the full commit SHA.
	// Set via: -ldflags "-X marketplace/internal/version.GitCommit=..."
	GitCommit = "unknown"
)

// Info bundles build metadata with per-process identity.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the build metadata. InstanceID and Hostname are resolved
// once per process.
func GetInfo() Info {
	once.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.NewString(),
			Hostname:   hostname,
		}
	})
	return info
}

// String formats version info for CLI display.
func (i Info) String() string {
	return fmt.Sprintf("marketplace %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}

// UserAgent is sent on outbound calls to the identity backend.
func (i Info) UserAgent() string {
	return "marketplace/" + i.Version
}
