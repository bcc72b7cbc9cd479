package imagegen

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"media-renditions/internal/database"
	"media-renditions/internal/derivative"
	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
	"media-renditions/internal/profile"
)

// Generator produces image derivatives synchronously. Generation is
// idempotent: an existing target file is never regenerated.
type Generator struct {
	resolver *derivative.Resolver
}

// NewGenerator creates a generator resolving sources through db.
func NewGenerator(db *database.Database) *Generator {
	return &Generator{resolver: derivative.NewResolver(db)}
}

// Create generates the derivative for (a, p) unless it already exists.
// An unreadable source is skipped silently after a log line; encoding
// failures remove any partial output and propagate.
func (g *Generator) Create(ctx context.Context, a *database.Asset, p *profile.Profile) error {
	start := time.Now()

	target, err := derivative.Path(a, p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil {
		logging.Debug("Derivative %s already exists, skipping", target)
		return nil
	}

	src, err := g.resolver.ResolveSource(ctx, a, p)
	if err != nil {
		return err
	}

	im, err := openImage(src.File)
	if err != nil {
		logging.Warn("Skipping unreadable source %s: %v", src.File, err)
		metrics.DerivativesGenerated.WithLabelValues("image", "skipped").Inc()
		return nil
	}

	if p.Image != nil && p.Image.Effect != nil {
		im = applyEffect(im, p.Image.Effect)
	}

	if (p.Width != 0 || p.Height != 0) &&
		(im.Bounds().Dx() != p.Width || im.Bounds().Dy() != p.Height) {
		im = resizeImage(im, p, a.CropFrom)
	}

	if p.Image != nil && p.Image.Watermark != nil {
		im, err = applyWatermark(im, p.Image.Watermark)
		if err != nil {
			metrics.DerivativesGenerated.WithLabelValues("image", "error").Inc()
			return err
		}
	}

	// Reflection extends below the finished derivative, so it runs
	// after resize and watermark
	if p.Image != nil && p.Image.Effect != nil && p.Image.Effect.ReflectionSize != 0.0 {
		e := p.Image.Effect
		im = addReflection(im, e.BackgroundColor, e.ReflectionSize, e.ReflectionStrength)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		metrics.DerivativesGenerated.WithLabelValues("image", "error").Inc()
		return fmt.Errorf("creating cache directory for %s: %w", target, err)
	}

	quality := 70
	if p.Image != nil && p.Image.Quality > 0 {
		quality = p.Image.Quality
	}
	if err := imaging.Save(im, target, imaging.JPEGQuality(quality)); err != nil {
		// Never leave a partial file behind
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Error("Failed to remove partial output %s: %v", target, rmErr)
		}
		metrics.DerivativesGenerated.WithLabelValues("image", "error").Inc()
		return fmt.Errorf("saving derivative %s: %w", target, err)
	}

	metrics.DerivativesGenerated.WithLabelValues("image", "success").Inc()
	metrics.DerivativeDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	logging.Debug("Generated %s in %v", target, time.Since(start))
	return nil
}

// openImage decodes a source file, preferring the pure-Go decoders and
// falling back to libvips for formats they cannot handle.
func openImage(path string) (image.Image, error) {
	im, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return im, nil
	}

	logging.Debug("imaging.Open failed for %s: %v, trying vips fallback", path, err)
	if IsVipsAvailable() {
		if im, vErr := loadImageWithVips(path); vErr == nil {
			return im, nil
		}
	}
	return nil, err
}
