package version

import (
	"testing"
	"time"
)

func TestGetVersionInfoDefaults(t *testing.T) {
	info := GetVersionInfo()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if Version == "dev" && info.IsRelease {
		t.Error("dev builds must not report as releases")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion must be resolved from build info")
	}
	if info.BuildDate.IsZero() {
		t.Error("BuildDate must never be zero")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime must never be empty")
	}
}

func TestGetVersionInfoLdflags(t *testing.T) {
	origVersion, origBuildTime := Version, BuildTime
	defer func() { Version, BuildTime = origVersion, origBuildTime }()

	Version = "1.4.0"
	BuildTime = "2026-08-01T12:00:00Z"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("tagged version must report as a release")
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("BuildDate = %v, want %v", info.BuildDate, want)
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("short revisions must pass through, got %q", got)
	}
}
