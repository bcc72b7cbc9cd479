package imagegen

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// addReflection extends the image downward with a fading mirror of its
// bottom edge. amount is the reflection height as a fraction of the
// image height, opacity the starting strength of the gradient, and
// bgcolor a "#RRGGBB" page background the gradient fades into.
func addReflection(im image.Image, bgcolor string, amount, opacity float64) image.Image {
	w := im.Bounds().Dx()
	h := im.Bounds().Dy()
	reflH := int(float64(h) * amount)
	if reflH <= 0 {
		return im
	}

	bg := parseHexColor(bgcolor)
	canvas := imaging.New(w, h+reflH, bg)
	canvas = imaging.Paste(canvas, im, image.Pt(0, 0))

	flipped := imaging.FlipV(im)
	for y := 0; y < reflH; y++ {
		// Strongest at the image edge, fading to the background
		rowOpacity := opacity * (1 - float64(y)/float64(reflH))
		for x := 0; x < w; x++ {
			src := flipped.NRGBAAt(x, y)
			dst := canvas.NRGBAAt(x, h+y)
			canvas.SetNRGBA(x, h+y, blendPixel(dst, src, rowOpacity))
		}
	}
	return canvas
}

func blendPixel(dst, src color.NRGBA, opacity float64) color.NRGBA {
	mix := func(d, s uint8) uint8 {
		return uint8(float64(d)*(1-opacity) + float64(s)*opacity)
	}
	return color.NRGBA{
		R: mix(dst.R, src.R),
		G: mix(dst.G, src.G),
		B: mix(dst.B, src.B),
		A: 255,
	}
}

func parseHexColor(s string) color.NRGBA {
	c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	hex := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	var out [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hex(s[1+2*i])
		lo, ok2 := hex(s[2+2*i])
		if !ok1 || !ok2 {
			return c
		}
		out[i] = hi<<4 | lo
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: 255}
}
