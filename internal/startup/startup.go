package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"media-renditions/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	MediaDir    string
	DatabaseDir string
	Port        string
	MetricsPort string

	// Worker scheduling
	SweepInterval time.Duration
	JobRetention  time.Duration

	// Transcoder configuration
	FFmpegPath   string
	FFprobePath  string
	FLVToolPath  string
	PosterOffset time.Duration

	// Image pipeline
	VipsEnabled       bool
	DefaultPosterPath string

	MetricsEnabled bool

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	sweepInterval := getEnvDuration("SWEEP_INTERVAL", time.Minute)
	jobRetention := getEnvDuration("JOB_RETENTION", 7*24*time.Hour)
	posterOffset := getEnvDuration("POSTER_OFFSET", 10*time.Second)
	ffmpegPath := getEnv("FFMPEG", "ffmpeg")
	ffprobePath := getEnv("FFPROBE", "ffprobe")
	flvToolPath := getEnv("FLVTOOL", "")
	vipsEnabled := getEnvBool("VIPS_ENABLED", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	defaultPoster := getEnv("DEFAULT_POSTER", "")

	logging.Info("  MEDIA_DIR:       %s", mediaDir)
	logging.Info("  DATABASE_DIR:    %s", databaseDir)
	logging.Info("  PORT:            %s", port)
	logging.Info("  METRICS_PORT:    %s", metricsPort)
	logging.Info("  METRICS_ENABLED: %v", metricsEnabled)
	logging.Info("  SWEEP_INTERVAL:  %s", sweepInterval)
	logging.Info("  JOB_RETENTION:   %s", jobRetention)
	logging.Info("  POSTER_OFFSET:   %s", posterOffset)
	logging.Info("  FFMPEG:          %s", ffmpegPath)
	logging.Info("  FFPROBE:         %s", ffprobePath)
	logging.Info("  VIPS_ENABLED:    %v", vipsEnabled)
	logging.Info("  LOG_LEVEL:       %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config := &Config{
		MediaDir:          mediaDir,
		DatabaseDir:       databaseDir,
		Port:              port,
		MetricsPort:       metricsPort,
		SweepInterval:     sweepInterval,
		JobRetention:      jobRetention,
		PosterOffset:      posterOffset,
		FFmpegPath:        ffmpegPath,
		FFprobePath:       ffprobePath,
		FLVToolPath:       flvToolPath,
		VipsEnabled:       vipsEnabled,
		MetricsEnabled:    metricsEnabled,
		DefaultPosterPath: defaultPoster,
		DatabasePath:      filepath.Join(databaseDir, "renditions.db"),
	}

	return config, nil
}

// LogTranscoderInit checks ffmpeg availability and logs the result.
func LogTranscoderInit(ffmpegPath string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if _, err := exec.LookPath(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg not found (%s): %v", ffmpegPath, err)
		logging.Warn("  Video conversion jobs will fail until ffmpeg is available")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogWorkerInit logs conversion worker startup
func LogWorkerInit(interval, retention time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CONVERSION WORKER")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Sweep interval: %v", interval)
	logging.Info("  Job retention:  %v", retention)
}

// LogServerStarted logs the final startup message
func LogServerStarted(port string, elapsed time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("READY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Listening on :%s (started in %v)", port, elapsed)
}

// LogFatal logs a fatal startup error and exits
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

func logSystemInfo() {
	info := GetBuildInfo()
	logging.Info("media-renditions %s (%s, built %s, %s %s/%s)",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
}

func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Info("  Creating %s directory: %s", name, path)
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return fmt.Errorf("cannot stat %s directory: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path exists but is not a directory: %s", name, path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("  failed to remove test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		logging.Warn("  Invalid boolean for %s: %q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("  Invalid duration for %s: %q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
