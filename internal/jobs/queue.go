package jobs

import (
	"context"
	"os"

	"media-renditions/internal/database"
	"media-renditions/internal/derivative"
	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
	"media-renditions/internal/profile"
)

// Queue enqueues video conversions. One durable job row exists per
// (asset, profile) pair; the worker drains them asynchronously.
type Queue struct {
	db *database.Database
}

// NewQueue creates a queue backed by the given database.
func NewQueue(db *database.Database) *Queue {
	return &Queue{db: db}
}

// Enqueue records a conversion job for (a, p) unless the derivative file
// already exists on disk or a job row is already present. Returns whether
// a new job was created. The exists-check and the insert are not one
// atomic step; a concurrent enqueue can slip between them, but the
// unique (asset, profile) constraint keeps the table consistent.
func (q *Queue) Enqueue(ctx context.Context, a *database.Asset, p *profile.Profile) (bool, error) {
	target, err := derivative.Path(a, p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err == nil {
		logging.Debug("Derivative %s already exists, not enqueueing", target)
		return false, nil
	}

	created, err := q.db.CreateJobIfAbsent(ctx, a.ID, p.ID)
	if err != nil {
		return false, err
	}
	if created {
		metrics.JobsEnqueued.Inc()
		logging.Debug("Enqueued conversion of asset %d with profile %q", a.ID, p.Name)
	}
	return created, nil
}
