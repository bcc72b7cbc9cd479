package transcoder

import (
	"fmt"

	"media-renditions/internal/profile"
)

// Size is the resolved output geometry for one transcode. Width and
// Height are the encode dimensions; PadFilter, when non-empty, is the
// ffmpeg video filter that letterboxes the frame up to the profile's
// full target box.
type Size struct {
	Width     int
	Height    int
	PadFilter string
}

// roundEven rounds a dimension to the nearest even integer, as most
// codecs reject odd frame sizes.
func roundEven(x float64) int {
	return int((x+1)/2) * 2
}

// CalculateSize resolves the profile's target box against a probed
// source. A zero width or height is derived from the source aspect
// ratio with even rounding; both zero keeps the source dimensions.
// Letterboxed profiles encode at the aspect-preserving height and pad
// the remainder with black bars.
func CalculateSize(p *profile.Profile, in *Info) Size {
	outW := p.Width
	outH := p.Height

	switch {
	case outW == 0 && outH == 0:
		outW = in.Width
		outH = in.Height
	case outW == 0:
		outW = roundEven(float64(outH) * in.Aspect)
	case outH == 0:
		outH = roundEven(float64(outW) / in.Aspect)
	}

	s := Size{Width: outW, Height: outH}
	if p.Video != nil && p.Video.Letterbox {
		// Encode at the height the source aspect dictates, then pad
		// vertically to the full box
		convH := int(float64(outW) / in.Aspect)
		if convH < outH {
			s.Height = convH
			s.PadFilter = fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", outW, outH)
		}
	}
	return s
}
