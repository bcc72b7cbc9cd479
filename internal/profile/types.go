package profile

import "strings"

// Kind discriminates the two media variants a profile (or asset) can have.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Anchor is the reference edge/corner that decides which part of an
// over-sized image survives a crop.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorLeft   Anchor = "left"
	AnchorBottom Anchor = "bottom"
	AnchorRight  Anchor = "right"
	AnchorCenter Anchor = "center"
)

// ParseAnchor normalizes an anchor string, defaulting to center.
func ParseAnchor(s string) Anchor {
	switch Anchor(strings.ToLower(s)) {
	case AnchorTop, AnchorLeft, AnchorBottom, AnchorRight:
		return Anchor(strings.ToLower(s))
	default:
		return AnchorCenter
	}
}

// VideoType is the output container for a video profile.
type VideoType string

const (
	VideoMP4  VideoType = "mp4"
	VideoOGV  VideoType = "ogv"
	VideoFLV  VideoType = "flv"
	VideoWebM VideoType = "webm"
)

// Valid reports whether the video type is one of the supported containers.
func (v VideoType) Valid() bool {
	switch v {
	case VideoMP4, VideoOGV, VideoFLV, VideoWebM:
		return true
	}
	return false
}

// Ext returns the file extension for the container, including the dot.
func (v VideoType) Ext() string {
	return "." + string(v)
}

// Transpose identifies a single flip or rotate applied before the
// enhancement chain.
type Transpose string

const (
	TransposeNone           Transpose = ""
	TransposeFlipHorizontal Transpose = "flip_horizontal"
	TransposeFlipVertical   Transpose = "flip_vertical"
	TransposeRotate90       Transpose = "rotate_90"
	TransposeRotate180      Transpose = "rotate_180"
	TransposeRotate270      Transpose = "rotate_270"
)

// Effect is a named pre/post-processing chain for image derivatives.
// The factor fields are multiplicative: 1.0 leaves the image unchanged.
type Effect struct {
	ID        int64
	Name      string
	Transpose Transpose

	Color      float64
	Brightness float64
	Contrast   float64
	Sharpness  float64

	// Filters chains named filters using "ONE->TWO->THREE"; filters are
	// applied in listed order and unknown names are ignored.
	Filters string

	// Reflection post-effect: height as a fraction of the finished
	// derivative, 0 disables it.
	ReflectionSize     float64
	ReflectionStrength float64
	BackgroundColor    string
}

// WatermarkStyle selects how a watermark image is composited.
type WatermarkStyle string

const (
	WatermarkTile  WatermarkStyle = "tile"
	WatermarkScale WatermarkStyle = "scale"
)

// Watermark is an overlay image applied after resizing.
type Watermark struct {
	ID      int64
	Name    string
	File    string
	Style   WatermarkStyle
	Opacity float64
}

// ImageParams holds the image-variant payload of a profile.
type ImageParams struct {
	Quality   int
	Effect    *Effect
	Watermark *Watermark
}

// VideoParams holds the video-variant payload of a profile.
type VideoParams struct {
	Type        VideoType
	TwoPass     bool
	Letterbox   bool
	Deinterlace bool

	// Bitrates in kbit/s. AudioBitrate 0 mutes the output entirely.
	VideoBitrate int
	AudioBitrate int
}

// Profile is a named configuration describing one target derivative shape.
// Exactly one of Image or Video is set, matching Kind.
type Profile struct {
	ID   int64
	Name string
	Kind Kind

	// Width/Height of 0 means "derive from the source aspect ratio";
	// both 0 means "keep original dimensions".
	Width  int
	Height int

	Upscale        bool
	Crop           bool
	PreCache       bool
	IncrementCount bool

	Image *ImageParams
	Video *VideoParams
}

// IsVideo reports whether this is a video profile.
func (p *Profile) IsVideo() bool {
	return p.Kind == KindVideo
}
