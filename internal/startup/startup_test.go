package startup

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIA_DIR", filepath.Join(dir, "media"))
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", config.Port)
	}
	if config.JobRetention != 7*24*time.Hour {
		t.Errorf("Expected default retention 168h, got %v", config.JobRetention)
	}
	if config.SweepInterval != time.Minute {
		t.Errorf("Expected default sweep interval 1m, got %v", config.SweepInterval)
	}
	if config.PosterOffset != 10*time.Second {
		t.Errorf("Expected default poster offset 10s, got %v", config.PosterOffset)
	}
	if config.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected default ffmpeg path, got %s", config.FFmpegPath)
	}
	if filepath.Base(config.DatabasePath) != "renditions.db" {
		t.Errorf("Unexpected database path: %s", config.DatabasePath)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIA_DIR", filepath.Join(dir, "media"))
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))
	t.Setenv("JOB_RETENTION", "48h")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.JobRetention != 48*time.Hour {
		t.Errorf("Expected retention 48h, got %v", config.JobRetention)
	}
	if config.SweepInterval != 30*time.Second {
		t.Errorf("Expected sweep interval 30s, got %v", config.SweepInterval)
	}
	if config.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Expected overridden ffmpeg path, got %s", config.FFmpegPath)
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIA_DIR", filepath.Join(dir, "media"))
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))
	t.Setenv("JOB_RETENTION", "not-a-duration")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.JobRetention != 7*24*time.Hour {
		t.Errorf("Expected fallback retention on bad input, got %v", config.JobRetention)
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version == "" {
		t.Error("Expected non-empty version")
	}
	if info.GoVersion == "" {
		t.Error("Expected non-empty Go version")
	}
}
