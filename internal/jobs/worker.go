package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-renditions/internal/database"
	"media-renditions/internal/derivative"
	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
	"media-renditions/internal/profile"
	"media-renditions/internal/transcoder"
)

// Worker drains the conversion queue. One worker processes jobs
// sequentially; claims are atomic conditional updates so a second
// worker racing on the same job loses cleanly.
type Worker struct {
	db       *database.Database
	cache    *profile.Cache
	tr       *transcoder.Transcoder
	resolver *derivative.Resolver

	// Interval between sweeps, Retention the age after which converted
	// job rows are purged.
	Interval  time.Duration
	Retention time.Duration

	// PosterOffset is how far into a video the poster frame is grabbed.
	// DefaultPosterPath marks a placeholder poster still awaiting
	// extraction.
	PosterOffset      time.Duration
	DefaultPosterPath string

	// PosterOnly sweeps extract posters and requeue without transcoding.
	PosterOnly bool
}

// NewWorker wires a worker to its database, profile cache and transcoder.
func NewWorker(db *database.Database, cache *profile.Cache, tr *transcoder.Transcoder) *Worker {
	return &Worker{
		db:       db,
		cache:    cache,
		tr:       tr,
		resolver: derivative.NewResolver(db),
	}
}

// Run sweeps the queue until the context is cancelled. Jobs left
// InProgress by a previous crash are unlocked once at startup.
func (w *Worker) Run(ctx context.Context) {
	unlocked, err := w.db.UnlockStaleJobs(ctx)
	if err != nil {
		logging.Error("Failed to unlock stale jobs: %v", err)
	} else if unlocked > 0 {
		metrics.JobsUnlocked.Add(float64(unlocked))
		logging.Warn("Unlocked %d jobs left in progress by a previous run", unlocked)
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.Sweep(ctx); err != nil {
			logging.Error("Worker sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass over the queue: claim each queued job, process it
// and record the outcome. A failed job goes back to Queued with its
// message set so the next sweep retries it.
func (w *Worker) Sweep(ctx context.Context) error {
	queued, err := w.db.ListQueuedJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing queued jobs: %w", err)
	}
	if len(queued) == 0 {
		logging.Debug("No jobs to convert")
		return w.housekeeping(ctx)
	}

	for _, job := range queued {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		claimed, err := w.db.ClaimJob(ctx, job.ID)
		if err != nil {
			logging.Error("Claiming job %d failed: %v", job.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		if err := w.process(ctx, job); err != nil {
			logging.Error("Job %d (asset %d, profile %q) failed: %v",
				job.ID, job.AssetID, job.ProfileName, err)
			metrics.JobsProcessed.WithLabelValues("error").Inc()
			if failErr := w.db.FailJob(ctx, job.ID, err.Error()); failErr != nil {
				logging.Error("Recording failure for job %d failed: %v", job.ID, failErr)
			}
		}
	}

	return w.housekeeping(ctx)
}

func (w *Worker) process(ctx context.Context, job *database.ConversionJob) error {
	asset, err := w.db.GetAsset(ctx, job.AssetID)
	if err != nil {
		return fmt.Errorf("loading asset: %w", err)
	}

	p, err := w.cache.GetByID(ctx, job.ProfileID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if p == nil {
		// The cache may predate a recent profile write
		w.cache.Invalidate()
		if p, err = w.cache.GetByID(ctx, job.ProfileID); err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		if p == nil {
			return fmt.Errorf("profile %d no longer exists", job.ProfileID)
		}
	}

	src, err := w.resolver.ResolveSource(ctx, asset, p)
	if err != nil {
		return fmt.Errorf("resolving source: %w", err)
	}

	info, err := w.tr.Probe(ctx, src.File)
	if err != nil {
		return fmt.Errorf("probing source: %w", err)
	}
	if err := w.db.UpdateAssetProbe(ctx, asset.ID, info.Width, info.Height, info.Duration); err != nil {
		logging.Warn("Recording probe data for asset %d failed: %v", asset.ID, err)
	}

	if err := w.refreshPoster(ctx, asset, src, info, p); err != nil {
		return fmt.Errorf("extracting poster: %w", err)
	}

	if w.PosterOnly {
		// Requeue without a diagnostic; a later full sweep transcodes
		return w.db.FailJob(ctx, job.ID, "")
	}

	target, err := derivative.Path(asset, p)
	if err != nil {
		return err
	}
	// A previous partial or stale derivative is replaced wholesale
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale derivative: %w", err)
	}

	size := transcoder.CalculateSize(p, info)
	start := time.Now()
	if err := w.tr.Transcode(ctx, src.File, target, p, size); err != nil {
		return err
	}

	if err := w.db.CompleteJob(ctx, job.ID, time.Since(start)); err != nil {
		return fmt.Errorf("marking job converted: %w", err)
	}
	metrics.JobsProcessed.WithLabelValues("success").Inc()
	metrics.DerivativesGenerated.WithLabelValues("video", "success").Inc()
	return nil
}

// refreshPoster extracts a still frame for a video that has no poster
// yet, or whose poster is still the shared placeholder.
func (w *Worker) refreshPoster(ctx context.Context, asset, src *database.Asset, info *transcoder.Info, p *profile.Profile) error {
	if !asset.IsVideo() {
		return nil
	}

	needsPoster := asset.PosterID == 0
	if !needsPoster {
		poster, err := w.db.GetAsset(ctx, asset.PosterID)
		if err != nil {
			return fmt.Errorf("loading poster asset: %w", err)
		}
		needsPoster = poster.File == "" || poster.File == w.DefaultPosterPath
	}
	if !needsPoster {
		return nil
	}

	base := filepath.Base(asset.File)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	posterPath := filepath.Join(filepath.Dir(asset.File), stem+"_poster.png")

	deinterlace := p.Video != nil && p.Video.Deinterlace
	if err := w.tr.ExtractPoster(ctx, src.File, posterPath, info, w.PosterOffset, deinterlace); err != nil {
		return err
	}

	if asset.PosterID != 0 {
		// Placeholder poster: point the existing asset at the real frame
		if err := w.db.UpdateAssetFile(ctx, asset.PosterID, posterPath); err != nil {
			return fmt.Errorf("updating poster asset: %w", err)
		}
		return nil
	}

	poster := &database.Asset{File: posterPath, Kind: profile.KindImage}
	if err := w.db.CreateAsset(ctx, poster); err != nil {
		return fmt.Errorf("creating poster asset: %w", err)
	}
	if err := w.db.SetAssetPoster(ctx, asset.ID, poster.ID); err != nil {
		return fmt.Errorf("linking poster asset: %w", err)
	}
	logging.Debug("Created poster %s for asset %d", posterPath, asset.ID)
	return nil
}

// housekeeping purges expired converted jobs and refreshes the queue
// depth gauge. Zero retention keeps converted rows forever; a negative
// retention purges them all.
func (w *Worker) housekeeping(ctx context.Context) error {
	if w.Retention != 0 {
		purged, err := w.db.PurgeConvertedJobs(ctx, w.Retention)
		if err != nil {
			return fmt.Errorf("purging converted jobs: %w", err)
		}
		if purged > 0 {
			metrics.JobsPurged.Add(float64(purged))
			logging.Debug("Purged %d converted jobs", purged)
		}
	}

	count, err := w.db.CountQueuedJobs(ctx)
	if err != nil {
		return fmt.Errorf("counting queued jobs: %w", err)
	}
	metrics.JobsQueued.Set(float64(count))
	return nil
}
