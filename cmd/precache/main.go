// Command precache walks every stored asset and generates the cached
// derivatives for profiles marked pre-cache. Image derivatives are
// written directly; video conversions are enqueued and, with -sweep,
// processed in-process until the queue drains. -poster restricts the
// sweep to refreshing poster frames without transcoding.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"media-renditions/internal/database"
	"media-renditions/internal/jobs"
	"media-renditions/internal/lifecycle"
	"media-renditions/internal/logging"
	"media-renditions/internal/profile"
	"media-renditions/internal/startup"
	"media-renditions/internal/transcoder"
)

type options struct {
	reset  bool
	sweep  bool
	poster bool
	kinds  []profile.Kind
}

// parseOptions resolves flag interactions: -poster implies -sweep and
// an empty -kind covers both asset kinds.
func parseOptions(reset, sweep, poster bool, kind string) (options, error) {
	o := options{reset: reset, sweep: sweep, poster: poster}
	if o.poster {
		o.sweep = true
	}
	switch kind {
	case "":
		o.kinds = []profile.Kind{profile.KindImage, profile.KindVideo}
	case string(profile.KindImage):
		o.kinds = []profile.Kind{profile.KindImage}
	case string(profile.KindVideo):
		o.kinds = []profile.Kind{profile.KindVideo}
	default:
		return options{}, fmt.Errorf("unknown kind %q", kind)
	}
	return o, nil
}

func main() {
	reset := flag.Bool("reset", false, "clear existing cached derivatives before regenerating")
	kindFlag := flag.String("kind", "", "restrict to one asset kind: image or video")
	sweep := flag.Bool("sweep", false, "run queued video conversions before exiting")
	poster := flag.Bool("poster", false, "only refresh poster frames for queued videos, skipping transcodes (implies -sweep)")
	flag.Parse()

	opts, err := parseOptions(*reset, *sweep, *poster, *kindFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to open database: %v", err)
	}
	defer db.Close()

	cache := profile.NewCache(db)
	manager := lifecycle.NewManager(db, cache)

	start := time.Now()
	var processed, failed int
	for _, kind := range opts.kinds {
		assets, err := db.ListAssets(ctx, kind)
		if err != nil {
			startup.LogFatal("Failed to list %s assets: %v", kind, err)
		}
		for _, a := range assets {
			if opts.reset {
				if err := manager.ClearCache(ctx, a); err != nil {
					logging.Warn("Failed to clear cache for %s: %v", a.File, err)
				}
			}
			if err := manager.PreCache(ctx, a); err != nil {
				logging.Error("Pre-cache failed for %s: %v", a.File, err)
				failed++
				continue
			}
			processed++
		}
	}

	if opts.sweep {
		trans := transcoder.New(config.FFmpegPath, config.FFprobePath, config.FLVToolPath)
		worker := jobs.NewWorker(db, cache, trans)
		worker.Retention = config.JobRetention
		worker.PosterOffset = config.PosterOffset
		worker.DefaultPosterPath = config.DefaultPosterPath
		worker.PosterOnly = opts.poster
		drainQueue(ctx, db, worker)
	}

	logging.Info("Pre-cache complete: %d assets processed, %d failed in %s",
		processed, failed, time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		os.Exit(1)
	}
}

// drainQueue sweeps until no queued jobs remain. Jobs that fail are
// requeued with an error message, so a second pass over the same
// failures is pointless; stop as soon as a sweep makes no progress.
func drainQueue(ctx context.Context, db *database.Database, worker *jobs.Worker) {
	for {
		before, err := db.CountQueuedJobs(ctx)
		if err != nil || before == 0 {
			return
		}
		if err := worker.Sweep(ctx); err != nil {
			logging.Error("Sweep failed: %v", err)
			return
		}
		after, err := db.CountQueuedJobs(ctx)
		if err != nil || after >= before {
			return
		}
	}
}
