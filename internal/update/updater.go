package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const httpTimeout = 30 * time.Second

// httpDoer is the seam tests substitute to stub the GitHub API without a
// real network round trip.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Updater checks the current binary's version against the project's
// GitHub releases feed. Unlike the teacher's updater, it does not download,
// verify, or install a replacement binary: SPEC_FULL's self-update surface
// is check-and-notify only (§4.12), so the apply pipeline has no caller and
// was dropped rather than carried as unreachable weight.
type Updater struct {
	CurrentVersion string
	BinaryPath     string
	http           httpDoer
}

// NewUpdater creates an updater for the current binary.
func NewUpdater(currentVersion string) (*Updater, error) {
	return NewUpdaterWith(currentVersion, &http.Client{Timeout: httpTimeout})
}

// NewUpdaterWith builds an updater against an explicit httpDoer, letting
// tests stub the GitHub API.
func NewUpdaterWith(currentVersion string, doer httpDoer) (*Updater, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}

	return &Updater{
		CurrentVersion: currentVersion,
		BinaryPath:     realPath,
		http:           doer,
	}, nil
}

// Check compares the current version with the latest tagged release.
func (u *Updater) Check() (*CheckResult, error) {
	release, err := u.fetchLatestRelease()
	if err != nil {
		return nil, err
	}

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	currentVersion := strings.TrimPrefix(u.CurrentVersion, "v")

	return &CheckResult{
		CurrentVersion:  currentVersion,
		LatestVersion:   latestVersion,
		UpdateAvailable: IsNewerVersion(u.CurrentVersion, release.TagName),
		Release:         release,
	}, nil
}

func (u *Updater) fetchLatestRelease() (*Release, error) {
	req, err := http.NewRequest("GET", latestReleaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "sharedserver")

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no releases found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API error: %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release: %w", err)
	}

	return &release, nil
}
