package imagegen

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"media-renditions/internal/logging"
	"media-renditions/internal/profile"
)

// namedFilters are the filters usable in an effect's "->"-separated
// filter chain. Unknown names are skipped.
var namedFilters = map[string]func(image.Image) *image.NRGBA{
	"BLUR":    func(im image.Image) *image.NRGBA { return imaging.Blur(im, 2) },
	"SHARPEN": func(im image.Image) *image.NRGBA { return imaging.Sharpen(im, 2) },
	"SMOOTH":  func(im image.Image) *image.NRGBA { return imaging.Blur(im, 0.5) },
	"SMOOTH_MORE": func(im image.Image) *image.NRGBA {
		return imaging.Blur(im, 1)
	},
	"DETAIL": func(im image.Image) *image.NRGBA {
		return imaging.Sharpen(im, 0.5)
	},
	"EDGE_ENHANCE": func(im image.Image) *image.NRGBA {
		return imaging.Sharpen(im, 1)
	},
	"EDGE_ENHANCE_MORE": func(im image.Image) *image.NRGBA {
		return imaging.Sharpen(im, 3)
	},
	"EMBOSS": func(im image.Image) *image.NRGBA {
		return imaging.Convolve3x3(im, [9]float64{
			-1, -1, 0,
			-1, 1, 1,
			0, 1, 1,
		}, nil)
	},
	"CONTOUR": func(im image.Image) *image.NRGBA {
		return imaging.Convolve3x3(im, [9]float64{
			-1, -1, -1,
			-1, 8, -1,
			-1, -1, -1,
		}, nil)
	},
	"FIND_EDGES": func(im image.Image) *image.NRGBA {
		return imaging.Convolve3x3(im, [9]float64{
			-1, -1, -1,
			-1, 8, -1,
			-1, -1, -1,
		}, &imaging.ConvolveOptions{Abs: true})
	},
}

// applyEffect runs the pre-processing chain: one optional transpose,
// the four enhancement factors (1.0 = unchanged), and the named filter
// chain in listed order. The reflection is a post-processing step and
// runs after resize and watermark.
func applyEffect(im image.Image, e *profile.Effect) image.Image {
	im = applyTranspose(im, e.Transpose)
	im = applyEnhance(im, e)
	return applyFilters(im, e.Filters)
}

func applyTranspose(im image.Image, method profile.Transpose) image.Image {
	switch method {
	case profile.TransposeFlipHorizontal:
		return imaging.FlipH(im)
	case profile.TransposeFlipVertical:
		return imaging.FlipV(im)
	case profile.TransposeRotate90:
		return imaging.Rotate90(im)
	case profile.TransposeRotate180:
		return imaging.Rotate180(im)
	case profile.TransposeRotate270:
		return imaging.Rotate270(im)
	default:
		return im
	}
}

func applyEnhance(im image.Image, e *profile.Effect) image.Image {
	if e.Color != 1.0 {
		im = imaging.AdjustSaturation(im, (e.Color-1)*100)
	}
	if e.Brightness != 1.0 {
		im = imaging.AdjustBrightness(im, (e.Brightness-1)*100)
	}
	if e.Contrast != 1.0 {
		im = imaging.AdjustContrast(im, (e.Contrast-1)*100)
	}
	if e.Sharpness > 1.0 {
		im = imaging.Sharpen(im, e.Sharpness-1)
	} else if e.Sharpness < 1.0 && e.Sharpness >= 0 {
		im = imaging.Blur(im, 1-e.Sharpness)
	}
	return im
}

func applyFilters(im image.Image, chain string) image.Image {
	if chain == "" {
		return im
	}
	for _, name := range strings.Split(chain, "->") {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		f, ok := namedFilters[name]
		if !ok {
			logging.Debug("Skipping unknown image filter %q", name)
			continue
		}
		im = f(im)
	}
	return im
}
