package imagegen

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"media-renditions/internal/profile"
)

// resizeImage scales im to the profile's target box. Crop mode scales by
// the larger axis ratio so the box is fully covered, then crops to exact
// target dimensions at the given anchor; it upscales when necessary
// regardless of the upscale flag. Fit mode scales by the smaller ratio
// (or the single configured dimension) and returns the image unchanged
// when that would upscale and upscaling is disabled.
func resizeImage(im image.Image, p *profile.Profile, anchor profile.Anchor) image.Image {
	curW := im.Bounds().Dx()
	curH := im.Bounds().Dy()
	newW := p.Width
	newH := p.Height

	if p.Crop {
		ratio := math.Max(float64(newW)/float64(curW), float64(newH)/float64(curH))
		x := float64(curW) * ratio
		y := float64(curH) * ratio
		xd := math.Abs(float64(newW) - x)
		yd := math.Abs(float64(newH) - y)
		xDiff := int(xd / 2)
		yDiff := int(yd / 2)

		var box image.Rectangle
		switch anchor {
		case profile.AnchorTop:
			box = image.Rect(xDiff, 0, xDiff+newW, newH)
		case profile.AnchorLeft:
			box = image.Rect(0, yDiff, newW, yDiff+newH)
		case profile.AnchorBottom:
			box = image.Rect(xDiff, int(yd), xDiff+newW, int(y))
		case profile.AnchorRight:
			box = image.Rect(int(xd), yDiff, int(x), yDiff+newH)
		default:
			box = image.Rect(xDiff, yDiff, xDiff+newW, yDiff+newH)
		}

		scaled := imaging.Resize(im, int(x), int(y), imaging.Lanczos)
		return imaging.Crop(scaled, box)
	}

	var ratio float64
	switch {
	case newW != 0 && newH != 0:
		ratio = math.Min(float64(newW)/float64(curW), float64(newH)/float64(curH))
	case newW == 0:
		ratio = float64(newH) / float64(curH)
	default:
		ratio = float64(newW) / float64(curW)
	}

	w := int(math.Round(float64(curW) * ratio))
	h := int(math.Round(float64(curH) * ratio))
	if (w > curW || h > curH) && !p.Upscale {
		return im
	}
	return imaging.Resize(im, w, h, imaging.Lanczos)
}
