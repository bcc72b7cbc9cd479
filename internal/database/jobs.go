package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const jobColumns = `j.id, j.asset_id, j.profile_id, p.name, j.inprogress, j.converted,
	j.message, j.time_seconds, j.access_date, j.created_at`

func scanJob(row interface{ Scan(...any) error }) (*ConversionJob, error) {
	var j ConversionJob
	var accessDate, createdAt int64
	err := row.Scan(&j.ID, &j.AssetID, &j.ProfileID, &j.ProfileName, &j.InProgress,
		&j.Converted, &j.Message, &j.Time, &accessDate, &createdAt)
	if err != nil {
		return nil, err
	}
	j.AccessDate = time.Unix(accessDate, 0)
	j.CreatedAt = time.Unix(createdAt, 0)
	return &j, nil
}

// CreateJobIfAbsent inserts a queued conversion job for (asset, profile)
// unless one already exists, enforcing the one-row-per-pair invariant at
// the storage layer. Returns true when a new row was created.
func (d *Database) CreateJobIfAbsent(ctx context.Context, assetID, profileID int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO conversion_jobs (asset_id, profile_id)
		VALUES (?, ?)
		ON CONFLICT(asset_id, profile_id) DO NOTHING
	`, assetID, profileID)
	if err != nil {
		return false, err
	}

	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return false, err
	}
	return rows > 0, nil
}

// GetJob retrieves a single job row, touching its access date.
func (d *Database) GetJob(ctx context.Context, id int64) (*ConversionJob, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs SET access_date = strftime('%s', 'now') WHERE id = ?
	`, id); err != nil {
		return nil, err
	}

	row := d.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM conversion_jobs j
		JOIN profiles p ON p.id = j.profile_id
		WHERE j.id = ?
	`, id)
	j, scanErr := scanJob(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return j, err
}

// GetJobForPair returns the job for an (asset, profile) pair, or nil.
func (d *Database) GetJobForPair(ctx context.Context, assetID, profileID int64) (*ConversionJob, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job_for_pair", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM conversion_jobs j
		JOIN profiles p ON p.id = j.profile_id
		WHERE j.asset_id = ? AND j.profile_id = ?
	`, assetID, profileID)
	j, scanErr := scanJob(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	err = scanErr
	return j, err
}

// ListQueuedJobs returns every job awaiting a worker, oldest first,
// touching the access date of each returned row.
func (d *Database) ListQueuedJobs(ctx context.Context) ([]*ConversionJob, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_queued_jobs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs SET access_date = strftime('%s', 'now')
		WHERE converted = 0 AND inprogress = 0
	`); err != nil {
		return nil, err
	}

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM conversion_jobs j
		JOIN profiles p ON p.id = j.profile_id
		WHERE j.converted = 0 AND j.inprogress = 0
		ORDER BY j.created_at, j.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ConversionJob
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		jobs = append(jobs, j)
	}
	err = rows.Err()
	return jobs, err
}

// ListJobs returns every job row for operational tooling, newest first.
// Monitoring reads leave access dates alone so listing converted jobs
// does not extend their retention.
func (d *Database) ListJobs(ctx context.Context) ([]*ConversionJob, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_jobs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM conversion_jobs j
		JOIN profiles p ON p.id = j.profile_id
		ORDER BY j.created_at DESC, j.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ConversionJob
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		jobs = append(jobs, j)
	}
	err = rows.Err()
	return jobs, err
}

// ClaimJob marks a queued job in-progress. The conditional update is the
// lock: it only succeeds when the row is still queued, so two workers
// racing on the same job cannot both claim it. Returns false when the job
// was already claimed, converted or deleted.
func (d *Database) ClaimJob(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("claim_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET inprogress = 1, message = '', access_date = strftime('%s', 'now')
		WHERE id = ? AND inprogress = 0 AND converted = 0
	`, id)
	if err != nil {
		return false, err
	}

	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return false, err
	}
	return rows > 0, nil
}

// CompleteJob marks a claimed job converted, recording the elapsed wall
// time of the successful run.
func (d *Database) CompleteJob(ctx context.Context, id int64, elapsed time.Duration) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("complete_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET converted = 1, inprogress = 0, time_seconds = ?,
			access_date = strftime('%s', 'now')
		WHERE id = ?
	`, elapsed.Seconds(), id)
	return err
}

// FailJob returns a claimed job to the queue with a diagnostic message.
// The job will be retried on the next worker sweep.
func (d *Database) FailJob(ctx context.Context, id int64, message string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("fail_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET inprogress = 0, converted = 0, message = ?,
			access_date = strftime('%s', 'now')
		WHERE id = ?
	`, message, id)
	return err
}

// DeleteJobForPair removes the job row for an (asset, profile) pair, used
// when the derivative itself is removed.
func (d *Database) DeleteJobForPair(ctx context.Context, assetID, profileID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		DELETE FROM conversion_jobs WHERE asset_id = ? AND profile_id = ?
	`, assetID, profileID)
	return err
}

// UnlockStaleJobs returns stray in-progress rows to the queue, e.g. after
// a crash mid-job. Returns the number of rows unlocked.
func (d *Database) UnlockStaleJobs(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("unlock_stale_jobs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET inprogress = 0, access_date = strftime('%s', 'now')
		WHERE inprogress = 1 AND converted = 0
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeConvertedJobs deletes converted rows older than the retention
// window. The derivative files themselves are untouched; a later removal
// simply queues a fresh job. Returns the number of rows purged.
func (d *Database) PurgeConvertedJobs(ctx context.Context, retention time.Duration) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("purge_converted_jobs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-retention).Unix()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		DELETE FROM conversion_jobs WHERE converted = 1 AND access_date < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountQueuedJobs returns the number of jobs awaiting a worker.
func (d *Database) CountQueuedJobs(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_queued_jobs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int64
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversion_jobs WHERE converted = 0 AND inprogress = 0
	`).Scan(&count)
	return count, err
}
