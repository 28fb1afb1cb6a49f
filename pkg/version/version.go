package version

import "fmt"

// Set at build time with -ldflags "-X github.com/deepaksuthar40128/RemoteDx/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build identity of the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// GetInfo returns the build identity.
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}

// String renders the identity on one line, e.g. "v1.2.0 (abc1234, built 2024-05-01)".
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, built %s)", i.Version, shortCommit(i.GitCommit), i.BuildDate)
}

// GetShortCommit returns the short git commit hash (first 7 characters)
func GetShortCommit() string {
	return shortCommit(GitCommit)
}

func shortCommit(c string) string {
	if len(c) >= 7 {
		return c[:7]
	}
	return c
}
