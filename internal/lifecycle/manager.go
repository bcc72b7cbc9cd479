package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"media-renditions/internal/database"
	"media-renditions/internal/derivative"
	"media-renditions/internal/imagegen"
	"media-renditions/internal/jobs"
	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
	"media-renditions/internal/profile"
)

// Manager orchestrates the derivative cache: create-on-demand, eager
// pre-cache, invalidation on asset or profile mutation, and cleanup of
// emptied cache directories.
type Manager struct {
	db     *database.Database
	cache  *profile.Cache
	images *imagegen.Generator
	queue  *jobs.Queue
}

// NewManager wires the manager to its storage and generators.
func NewManager(db *database.Database, cache *profile.Cache) *Manager {
	return &Manager{
		db:     db,
		cache:  cache,
		images: imagegen.NewGenerator(db),
		queue:  jobs.NewQueue(db),
	}
}

// DerivativeHandle is the read-path view of one derivative. A zero
// handle means the derivative (or its profile) does not exist; callers
// skip missing media rather than failing.
type DerivativeHandle struct {
	Path   string
	Exists bool
}

// Derivative looks up the derivative of a for the named profile,
// creating it on demand when missing: images are generated
// synchronously, videos get a conversion job enqueued and the handle
// reports Exists false until the worker finishes. When the file exists
// and the profile asks for it, the asset's view count is incremented.
// Missing profiles and fileless assets degrade to a zero handle.
func (m *Manager) Derivative(ctx context.Context, a *database.Asset, profileName string) (DerivativeHandle, error) {
	p, err := m.cache.Get(ctx, profileName)
	if err != nil {
		return DerivativeHandle{}, err
	}
	if p == nil || a.File == "" {
		return DerivativeHandle{}, nil
	}

	path, err := derivative.Path(a, p)
	if err != nil {
		return DerivativeHandle{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if err := m.CreateSize(ctx, a, p); err != nil {
			return DerivativeHandle{Path: path}, err
		}
		if _, err := os.Stat(path); err != nil {
			return DerivativeHandle{Path: path}, nil
		}
	}

	if p.IncrementCount {
		if err := m.db.IncrementViewCount(ctx, a.ID); err != nil {
			logging.Warn("Incrementing view count for asset %d failed: %v", a.ID, err)
		}
	}
	return DerivativeHandle{Path: path, Exists: true}, nil
}

// CreateSize produces the derivative for (a, p): synchronously for
// images, by enqueueing a conversion job for videos. A derivative that
// already exists is left alone.
func (m *Manager) CreateSize(ctx context.Context, a *database.Asset, p *profile.Profile) error {
	if a.File == "" {
		return nil
	}
	if a.IsVideo() {
		_, err := m.queue.Enqueue(ctx, a, p)
		return err
	}
	return m.images.Create(ctx, a, p)
}

// RemoveSize deletes the derivative for (a, p) if present, drops any
// conversion job for the pair, and removes the cache directory once it
// is empty.
func (m *Manager) RemoveSize(ctx context.Context, a *database.Asset, p *profile.Profile) error {
	path, err := derivative.Path(a, p)
	if err != nil {
		if errors.Is(err, derivative.ErrNoFile) {
			return nil
		}
		return err
	}

	if err := os.Remove(path); err == nil {
		metrics.DerivativesRemoved.Inc()
		logging.Debug("Removed derivative %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("removing derivative %s: %w", path, err)
	}

	if a.IsVideo() {
		if err := m.db.DeleteJobForPair(ctx, a.ID, p.ID); err != nil {
			return fmt.Errorf("removing conversion job: %w", err)
		}
	}

	removeDirIfEmpty(filepath.Dir(path))
	return nil
}

// ClearCache removes every derivative of the asset. Assets flagged
// PreventCacheClear keep their cache; rename operations use the flag so
// a pure path change is not treated as a content change.
func (m *Manager) ClearCache(ctx context.Context, a *database.Asset) error {
	if a.PreventCacheClear {
		logging.Debug("Cache clear suppressed for asset %d", a.ID)
		return nil
	}
	return m.forEachProfile(ctx, a.Kind, func(p *profile.Profile) error {
		return m.RemoveSize(ctx, a, p)
	})
}

// PreCache eagerly generates every pre_cache profile's derivative for
// the asset. Invoked after every asset save.
func (m *Manager) PreCache(ctx context.Context, a *database.Asset) error {
	return m.forEachProfile(ctx, a.Kind, func(p *profile.Profile) error {
		if !p.PreCache {
			return nil
		}
		return m.CreateSize(ctx, a, p)
	})
}

// ProfileChanged invalidates every derivative generated with the
// profile and regenerates eagerly where the profile pre-caches. Call
// after any profile update; the profile cache is reset first so new
// semantics apply.
func (m *Manager) ProfileChanged(ctx context.Context, p *profile.Profile) error {
	m.cache.Invalidate()

	assets, err := m.db.ListAssets(ctx, p.Kind)
	if err != nil {
		return fmt.Errorf("listing %s assets: %w", p.Kind, err)
	}
	for _, a := range assets {
		if err := m.RemoveSize(ctx, a, p); err != nil {
			return err
		}
		if p.PreCache {
			if err := m.CreateSize(ctx, a, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProfileDeleted removes the profile's derivatives for every asset of
// its kind, then drops the profile row and resets the cache.
func (m *Manager) ProfileDeleted(ctx context.Context, p *profile.Profile) error {
	assets, err := m.db.ListAssets(ctx, p.Kind)
	if err != nil {
		return fmt.Errorf("listing %s assets: %w", p.Kind, err)
	}
	for _, a := range assets {
		if err := m.RemoveSize(ctx, a, p); err != nil {
			return err
		}
	}
	if err := m.db.DeleteProfile(ctx, p.ID); err != nil {
		return err
	}
	m.cache.Invalidate()
	return nil
}

// DeleteAsset clears the asset's cache, removes the original file and
// the cache directory if now empty, and drops the database row.
func (m *Manager) DeleteAsset(ctx context.Context, a *database.Asset) error {
	// Deletion always clears, even for assets flagged for rename
	a.PreventCacheClear = false
	if err := m.ClearCache(ctx, a); err != nil {
		return err
	}

	if a.File != "" {
		if err := os.Remove(a.File); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing original %s: %w", a.File, err)
		}
		if dir, err := derivative.CacheDir(a); err == nil {
			removeDirIfEmpty(dir)
		}
	}
	return m.db.DeleteAsset(ctx, a.ID)
}

func (m *Manager) forEachProfile(ctx context.Context, kind profile.Kind, fn func(*profile.Profile) error) error {
	all, err := m.cache.All(ctx)
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.Kind != kind {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// removeDirIfEmpty is best-effort: a non-empty directory is left alone.
func removeDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		logging.Debug("Could not remove cache directory %s: %v", dir, err)
	}
}
