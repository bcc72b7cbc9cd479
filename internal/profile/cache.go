package profile

import (
	"context"
	"sync"

	"media-renditions/internal/logging"
)

// Loader supplies the full profile table. Implemented by the database layer.
type Loader interface {
	LoadProfiles(ctx context.Context) ([]Profile, error)
}

// Cache is a lazily populated name-to-profile registry. It is an explicitly
// owned object: code that mutates profiles must call Invalidate on the same
// instance afterwards, there is no automatic invalidation.
type Cache struct {
	loader Loader

	mu     sync.RWMutex
	byName map[string]*Profile
	loaded bool
}

// NewCache creates an empty cache backed by the given loader. The profile
// table is not read until the first lookup.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Get returns the profile with the given name, or nil if no such profile
// exists. The full table is loaded on first access.
func (c *Cache) Get(ctx context.Context, name string) (*Profile, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byName[name], nil
}

// All returns every cached profile. Order is unspecified.
func (c *Cache) All(ctx context.Context) ([]*Profile, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Profile, 0, len(c.byName))
	for _, p := range c.byName {
		out = append(out, p)
	}
	return out, nil
}

// GetByID returns the profile with the given row id, or nil if no such
// profile exists. Used by the job worker, whose records reference
// profiles by id rather than name.
func (c *Cache) GetByID(ctx context.Context, id int64) (*Profile, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.byName {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

// Invalidate empties the cache. The next lookup reloads the table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = nil
	c.loaded = false
	logging.Debug("profile cache invalidated")
}

func (c *Cache) ensure(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	profiles, err := c.loader.LoadProfiles(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		// Names are unique within a variant only; if an image and a video
		// profile share a name the earlier row wins, matching the lookup
		// ambiguity of the profile table itself.
		if _, ok := byName[p.Name]; ok {
			logging.Warn("duplicate profile name %q, keeping first", p.Name)
			continue
		}
		byName[p.Name] = p
	}

	c.byName = byName
	c.loaded = true
	logging.Debug("profile cache loaded: %d profiles", len(byName))
	return nil
}
