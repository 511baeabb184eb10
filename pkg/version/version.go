package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build metadata, overridden with -ldflags "-X" at release time
var (
	Version   = "0.1.0"
	GitCommit = ""
	BuildDate = ""
)

const (
	AppName     = "page-server"
	Description = "A small HTTP server that redirects, serves named pages and streams static files"
)

// Info describes the running binary
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the info the way --version prints it
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s", AppName, i.Version)
	if i.GitCommit != "" {
		fmt.Fprintf(&b, "\nGit commit: %s", i.GitCommit)
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&b, "\nBuild date: %s", i.BuildDate)
	}
	fmt.Fprintf(&b, "\nGo version: %s\nPlatform: %s", i.GoVersion, i.Platform)
	return b.String()
}

// GetVersionInfo returns the formatted version string
func GetVersionInfo() string {
	return Get().String()
}
