// Package version reports the build identity of the walletdir binary.
// The variables are set at link time:
//
//	go build -ldflags "-X github.com/aira-payment/walletdir/internal/version.Version=v1.2.3"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build identity, overridden with -ldflags -X.
//
//nolint:gochecknoglobals // Set by the linker
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Release   bool   `json:"release"`
}

// Get returns the build info of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Release:   IsRelease(Version),
	}
}

// String renders info as "v1.2.3 (commit: abc1234, built: 2026-01-01)".
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", i.Version, i.Commit, i.BuildDate)
}

// IsRelease reports whether version names a tagged release rather than
// a development or commit-hash build.
func IsRelease(version string) bool {
	v := NormalizeVersion(version)
	if v == "" || v == "dev" || isCommitHash(v) {
		return false
	}
	for _, part := range strings.Split(v, ".") {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return false
		}
	}
	return true
}

// NormalizeVersion removes the 'v' prefix, surrounding whitespace, and any
// pre-release or build metadata suffix (-rc1, -dirty, +build).
func NormalizeVersion(version string) string {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	for {
		trimmed := strings.TrimSpace(version)
		trimmed = strings.TrimLeft(trimmed, "v")
		if trimmed == version {
			break
		}
		version = trimmed
	}

	return version
}

// isCommitHash reports whether s looks like a 7 to 40 character git hash.
// At least one hex letter is required so "2024010100" is not a hash.
func isCommitHash(s string) bool {
	s = strings.TrimSuffix(s, "-dirty")
	if len(s) < 7 || len(s) > 40 {
		return false
	}

	hasLetter := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
			hasLetter = true
		default:
			return false
		}
	}
	return hasLetter
}
