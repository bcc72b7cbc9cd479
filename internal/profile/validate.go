package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfile wraps all profile validation failures.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Validate checks the profile invariants. Invalid profiles are rejected at
// save time and never reach the generation pipeline.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProfile)
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w %q: dimensions must not be negative", ErrInvalidProfile, p.Name)
	}
	if p.Crop && (p.Width == 0 || p.Height == 0) {
		return fmt.Errorf("%w %q: width and height must be non-zero when crop is set", ErrInvalidProfile, p.Name)
	}

	switch p.Kind {
	case KindImage:
		if p.Image == nil || p.Video != nil {
			return fmt.Errorf("%w %q: image profile must carry exactly the image payload", ErrInvalidProfile, p.Name)
		}
		if p.Image.Quality < 1 || p.Image.Quality > 100 {
			return fmt.Errorf("%w %q: quality must be between 1 and 100, got %d", ErrInvalidProfile, p.Name, p.Image.Quality)
		}
		if p.Image.Watermark != nil {
			if err := p.Image.Watermark.validate(); err != nil {
				return fmt.Errorf("%w %q: %v", ErrInvalidProfile, p.Name, err)
			}
		}
	case KindVideo:
		if p.Video == nil || p.Image != nil {
			return fmt.Errorf("%w %q: video profile must carry exactly the video payload", ErrInvalidProfile, p.Name)
		}
		if !p.Video.Type.Valid() {
			return fmt.Errorf("%w %q: unknown video type %q", ErrInvalidProfile, p.Name, p.Video.Type)
		}
		if p.Video.Letterbox && p.Crop {
			return fmt.Errorf("%w %q: letterbox and crop are mutually exclusive", ErrInvalidProfile, p.Name)
		}
		if p.Video.Letterbox && (p.Width == 0 || p.Height == 0) {
			return fmt.Errorf("%w %q: width and height must be non-zero when letterbox is set", ErrInvalidProfile, p.Name)
		}
		if p.Video.VideoBitrate < 0 || p.Video.AudioBitrate < 0 {
			return fmt.Errorf("%w %q: bitrates must not be negative", ErrInvalidProfile, p.Name)
		}
	default:
		return fmt.Errorf("%w %q: unknown kind %q", ErrInvalidProfile, p.Name, p.Kind)
	}

	return nil
}

func (w *Watermark) validate() error {
	if w.File == "" {
		return errors.New("watermark file must not be empty")
	}
	switch w.Style {
	case WatermarkTile, WatermarkScale:
	default:
		return fmt.Errorf("unknown watermark style %q", w.Style)
	}
	if w.Opacity < 0 || w.Opacity > 1 {
		return fmt.Errorf("watermark opacity must be between 0 and 1, got %g", w.Opacity)
	}
	return nil
}
