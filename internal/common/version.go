package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Set at build time via -ldflags; LoadVersionFromFile can override
// Version for deployments that ship a .version file next to the binary.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the commit the binary was built from
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns the version with build metadata appended
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile overrides Version from a .version file found next
// to the executable, falling back to one in the working directory. A
// missing or empty file leaves the compiled-in version alone.
func LoadVersionFromFile() string {
	candidates := []string{}
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), ".version"))
	}
	candidates = append(candidates, ".version")

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			Version = v
			break
		}
	}
	return Version
}
