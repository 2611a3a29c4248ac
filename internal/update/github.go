package update

import (
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// Public repo: https://github.com/georgeharker/sharedserver
	latestReleaseURL = "https://api.github.com/repos/georgeharker/sharedserver/releases/latest"
)

// IsNewerVersion reports whether latest is a newer semantic version than
// current. A non-semver current version (a "dev" build) always reports an
// update available, whatever latest is; with a valid current version, a
// non-semver latest tag never does.
func IsNewerVersion(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}

	if !semver.IsValid(current) {
		return true
	}
	if !semver.IsValid(latest) {
		return false
	}

	return semver.Compare(latest, current) > 0
}
