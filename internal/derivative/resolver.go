package derivative

import (
	"context"
	"fmt"

	"media-renditions/internal/database"
	"media-renditions/internal/logging"
	"media-renditions/internal/profile"
)

// Resolver answers where a derivative lives and which original it is
// generated from, consulting per-asset overrides stored in the database.
type Resolver struct {
	db *database.Database
}

// NewResolver creates a resolver backed by the given database.
func NewResolver(db *database.Database) *Resolver {
	return &Resolver{db: db}
}

// ResolveSource returns the asset whose file should feed generation of
// the (a, p) derivative. Normally that is a itself; an override for the
// pair substitutes another asset as the source. The derivative path stays
// keyed to a either way.
func (r *Resolver) ResolveSource(ctx context.Context, a *database.Asset, p *profile.Profile) (*database.Asset, error) {
	if a.File == "" {
		return nil, ErrNoFile
	}

	o, err := r.db.GetOverride(ctx, a.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up override for asset %d profile %q: %w", a.ID, p.Name, err)
	}
	if o == nil {
		return a, nil
	}

	src, err := r.db.GetAsset(ctx, o.SourceAssetID)
	if err != nil {
		return nil, fmt.Errorf("loading override source asset %d: %w", o.SourceAssetID, err)
	}
	logging.Debug("Asset %d profile %q: using override source %s", a.ID, p.Name, src.File)
	return src, nil
}
