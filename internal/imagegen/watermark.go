package imagegen

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"media-renditions/internal/profile"
)

// applyWatermark stamps the configured mark over the image. Tile style
// repeats the mark across the full canvas; scale style stretches it to
// cover the larger dimension and centers it. Opacity 0 keeps the image
// untouched, 1 pastes the mark at full strength.
func applyWatermark(im image.Image, w *profile.Watermark) (image.Image, error) {
	if w.Opacity <= 0 {
		return im, nil
	}

	mark, err := imaging.Open(w.File)
	if err != nil {
		return nil, fmt.Errorf("opening watermark %s: %w", w.File, err)
	}

	bounds := im.Bounds()
	switch w.Style {
	case profile.WatermarkScale:
		scaled := imaging.Fit(mark, bounds.Dx(), bounds.Dy(), imaging.Lanczos)
		pos := image.Pt(
			(bounds.Dx()-scaled.Bounds().Dx())/2,
			(bounds.Dy()-scaled.Bounds().Dy())/2,
		)
		return imaging.Overlay(im, scaled, pos, w.Opacity), nil
	default:
		out := imaging.Clone(im)
		mw := mark.Bounds().Dx()
		mh := mark.Bounds().Dy()
		if mw <= 0 || mh <= 0 {
			return im, nil
		}
		for y := 0; y < bounds.Dy(); y += mh {
			for x := 0; x < bounds.Dx(); x += mw {
				out = imaging.Overlay(out, mark, image.Pt(x, y), w.Opacity)
			}
		}
		return out, nil
	}
}
