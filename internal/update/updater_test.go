package update

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNewUpdater(t *testing.T) {
	currentVersion := "1.2.3"
	u, err := NewUpdater(currentVersion)
	if err != nil {
		t.Fatalf("NewUpdater() error = %v", err)
	}

	if u.CurrentVersion != currentVersion {
		t.Errorf("CurrentVersion = %q, want %q", u.CurrentVersion, currentVersion)
	}

	if u.BinaryPath == "" {
		t.Error("BinaryPath is empty")
	}

	if !filepath.IsAbs(u.BinaryPath) {
		t.Errorf("BinaryPath = %q is not absolute", u.BinaryPath)
	}
}

func TestNewUpdaterWith_NilHTTPDoer(t *testing.T) {
	u, err := NewUpdaterWith("v1.0.0", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.http != nil {
		t.Error("expected doer to be stored verbatim, got non-nil default")
	}
	if u.CurrentVersion != "v1.0.0" {
		t.Errorf("expected CurrentVersion='v1.0.0', got %q", u.CurrentVersion)
	}
}

func TestNewUpdaterWith_CustomHTTPDoer(t *testing.T) {
	mock := &mockHTTPDoer{doFunc: func(req *http.Request) (*http.Response, error) { return nil, nil }}
	u, err := NewUpdaterWith("v2.0.0", mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.http != mock {
		t.Error("expected custom HTTP doer to be used")
	}
}

func TestNewUpdaterWith_ResolvesSymlinks(t *testing.T) {
	// The running test binary stands in for the installed executable:
	// BinaryPath must be its symlink-resolved path.
	u, err := NewUpdaterWith("v1.0.0", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.BinaryPath == "" {
		t.Error("expected BinaryPath to be set")
	}
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	want, err := filepath.EvalSymlinks(exe)
	if err != nil {
		want = exe
	}
	if u.BinaryPath != want {
		t.Errorf("BinaryPath = %q, want symlink-resolved %q", u.BinaryPath, want)
	}
}

func TestCheck_FetchError(t *testing.T) {
	mock := &mockHTTPDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("network error")
		},
	}
	u := &Updater{CurrentVersion: "v1.0.0", http: mock}
	_, err := u.Check()
	if err == nil || !strings.Contains(err.Error(), "network error") {
		t.Errorf("expected network error, got: %v", err)
	}
}

func TestCheck_VersionTrimming(t *testing.T) {
	releaseJSON, _ := json.Marshal(Release{
		TagName: "v2.0.0",
		Assets: []Asset{
			{Name: fmt.Sprintf("sharedserver_%s_%s.tar.gz", runtime.GOOS, runtime.GOARCH)},
		},
	})
	mock := &mockHTTPDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(bytes.NewReader(releaseJSON)),
			}, nil
		},
	}
	u := &Updater{CurrentVersion: "v1.0.0", http: mock}
	result, err := u.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CurrentVersion != "1.0.0" {
		t.Errorf("expected CurrentVersion='1.0.0', got %q", result.CurrentVersion)
	}
	if result.LatestVersion != "2.0.0" {
		t.Errorf("expected LatestVersion='2.0.0', got %q", result.LatestVersion)
	}
	if !result.UpdateAvailable {
		t.Error("expected UpdateAvailable=true")
	}
}

func TestCheck_SameVersion(t *testing.T) {
	releaseJSON, _ := json.Marshal(Release{
		TagName: "v1.0.0",
		Assets: []Asset{
			{Name: fmt.Sprintf("sharedserver_%s_%s.tar.gz", runtime.GOOS, runtime.GOARCH)},
		},
	})
	mock := &mockHTTPDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(bytes.NewReader(releaseJSON)),
			}, nil
		},
	}
	u := &Updater{CurrentVersion: "v1.0.0", http: mock}
	result, err := u.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdateAvailable {
		t.Error("expected UpdateAvailable=false for same version")
	}
}

func TestCheck_NotFound(t *testing.T) {
	mock := &mockHTTPDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		},
	}
	u := &Updater{CurrentVersion: "v1.0.0", http: mock}
	_, err := u.Check()
	if err == nil || !strings.Contains(err.Error(), "no releases found") {
		t.Errorf("expected 'no releases found' error, got: %v", err)
	}
}

func TestCheck_ServerError(t *testing.T) {
	mock := &mockHTTPDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		},
	}
	u := &Updater{CurrentVersion: "v1.0.0", http: mock}
	_, err := u.Check()
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected GitHub API error, got: %v", err)
	}
}
