package derivative

import (
	"errors"
	"path/filepath"
	"strings"

	"media-renditions/internal/database"
	"media-renditions/internal/profile"
)

// CacheDirName is the subdirectory, sibling to each original file, that
// holds every derivative generated from originals in that directory.
const CacheDirName = "cache"

// ErrNoFile is returned when an asset has no backing file to derive from.
var ErrNoFile = errors.New("asset has no file")

// Path computes the canonical derivative location for an (asset, profile)
// pair: dirname(asset.File)/cache/<stem>_<profile.Name><ext>. Images keep
// the source extension; videos take the extension of the profile's
// container. The path is keyed to the owning asset even when an override
// redirects the generation source, so two assets sharing a basename in
// the same directory would collide.
func Path(a *database.Asset, p *profile.Profile) (string, error) {
	if a.File == "" {
		return "", ErrNoFile
	}

	base := filepath.Base(a.File)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if p.Kind == profile.KindVideo && p.Video != nil {
		ext = p.Video.Type.Ext()
	}

	name := stem + "_" + p.Name + ext
	return filepath.Join(filepath.Dir(a.File), CacheDirName, name), nil
}

// CacheDir returns the cache directory holding the asset's derivatives.
func CacheDir(a *database.Asset) (string, error) {
	if a.File == "" {
		return "", ErrNoFile
	}
	return filepath.Join(filepath.Dir(a.File), CacheDirName), nil
}
