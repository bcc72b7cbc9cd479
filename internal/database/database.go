package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistent state: assets, profiles, overrides and
// conversion jobs.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New creates a new Database instance. dbPath must be the full path to the
// database file and the parent directory must already exist and be writable;
// use startup.LoadConfig to validate directories first.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and a busy timeout keep single-writer contention from
	// surfacing as "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Original photo and video assets
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		date_taken INTEGER,
		view_count INTEGER NOT NULL DEFAULT 0,
		crop_from TEXT NOT NULL DEFAULT 'center',
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		poster_id INTEGER REFERENCES assets(id) ON DELETE SET NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_kind ON assets(kind);

	-- Image enhancement chains
	CREATE TABLE IF NOT EXISTS effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		transpose TEXT NOT NULL DEFAULT '',
		color REAL NOT NULL DEFAULT 1.0,
		brightness REAL NOT NULL DEFAULT 1.0,
		contrast REAL NOT NULL DEFAULT 1.0,
		sharpness REAL NOT NULL DEFAULT 1.0,
		filters TEXT NOT NULL DEFAULT '',
		reflection_size REAL NOT NULL DEFAULT 0,
		reflection_strength REAL NOT NULL DEFAULT 0.6,
		background_color TEXT NOT NULL DEFAULT '#FFFFFF'
	);

	-- Watermark overlays
	CREATE TABLE IF NOT EXISTS watermarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		file TEXT NOT NULL,
		style TEXT NOT NULL DEFAULT 'scale',
		opacity REAL NOT NULL DEFAULT 1.0
	);

	-- Size profiles; image and video variants share the base columns
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		upscale INTEGER NOT NULL DEFAULT 0,
		crop INTEGER NOT NULL DEFAULT 0,
		pre_cache INTEGER NOT NULL DEFAULT 0,
		increment_count INTEGER NOT NULL DEFAULT 0,
		quality INTEGER NOT NULL DEFAULT 70,
		effect_id INTEGER REFERENCES effects(id) ON DELETE SET NULL,
		watermark_id INTEGER REFERENCES watermarks(id) ON DELETE SET NULL,
		video_type TEXT NOT NULL DEFAULT 'mp4',
		twopass INTEGER NOT NULL DEFAULT 0,
		letterbox INTEGER NOT NULL DEFAULT 0,
		deinterlace INTEGER NOT NULL DEFAULT 0,
		video_bitrate INTEGER NOT NULL DEFAULT 0,
		audio_bitrate INTEGER NOT NULL DEFAULT 0,
		UNIQUE(name, kind)
	);

	-- Per-object source overrides: at most one effective override per
	-- (asset, profile) pair
	CREATE TABLE IF NOT EXISTS overrides (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		source_asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_asset_profile ON overrides(asset_id, profile_id);

	-- Durable video conversion jobs, one row per (asset, profile)
	CREATE TABLE IF NOT EXISTS conversion_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		inprogress INTEGER NOT NULL DEFAULT 0,
		converted INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		time_seconds REAL NOT NULL DEFAULT 0,
		access_date INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(asset_id, profile_id)
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_state ON conversion_jobs(converted, inprogress);
	`

	_, err := d.db.ExecContext(ctx, schema)
	if err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations applies database schema migrations
func (d *Database) runMigrations(ctx context.Context) error {
	// Migration 1: add the deinterlace column to profiles if it doesn't
	// exist (pre-dates the filter-chain support)
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('profiles')
		WHERE name='deinterlace'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for deinterlace column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding deinterlace column to profiles table")
		_, err = d.db.ExecContext(ctx, `
			ALTER TABLE profiles ADD COLUMN deinterlace INTEGER NOT NULL DEFAULT 0
		`)
		if err != nil {
			return fmt.Errorf("failed to add deinterlace column: %w", err)
		}
		logging.Info("Migration complete: deinterlace column added")
	}

	// Migration 2: add time_seconds to conversion_jobs if it doesn't exist
	var timeExists bool
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('conversion_jobs')
		WHERE name='time_seconds'
	`).Scan(&timeExists)
	if err != nil {
		return fmt.Errorf("failed to check for time_seconds column: %w", err)
	}

	if !timeExists {
		logging.Info("Migrating database: adding time_seconds column to conversion_jobs table")
		_, err = d.db.ExecContext(ctx, `
			ALTER TABLE conversion_jobs ADD COLUMN time_seconds REAL NOT NULL DEFAULT 0
		`)
		if err != nil {
			return fmt.Errorf("failed to add time_seconds column: %w", err)
		}
		logging.Info("Migration complete: time_seconds column added")
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
