package profile

import (
	"context"
	"errors"
	"testing"
)

func imageProfile(name string, mutate func(*Profile)) *Profile {
	p := &Profile{
		Name:   name,
		Kind:   KindImage,
		Width:  100,
		Height: 100,
		Image:  &ImageParams{Quality: 70},
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func videoProfile(name string, mutate func(*Profile)) *Profile {
	p := &Profile{
		Name:   name,
		Kind:   KindVideo,
		Width:  640,
		Height: 480,
		Video:  &VideoParams{Type: VideoMP4, VideoBitrate: 1200, AudioBitrate: 128},
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		wantErr bool
	}{
		{"ValidImage", imageProfile("thumb", nil), false},
		{"ValidVideo", videoProfile("web", nil), false},
		{"EmptyName", imageProfile("", nil), true},
		{"CropWithoutHeight", imageProfile("t", func(p *Profile) {
			p.Crop = true
			p.Height = 0
		}), true},
		{"CropWithDims", imageProfile("t", func(p *Profile) { p.Crop = true }), false},
		{"QualityTooLow", imageProfile("t", func(p *Profile) { p.Image.Quality = 0 }), true},
		{"QualityTooHigh", imageProfile("t", func(p *Profile) { p.Image.Quality = 101 }), true},
		{"LetterboxWithoutWidth", videoProfile("v", func(p *Profile) {
			p.Video.Letterbox = true
			p.Width = 0
		}), true},
		{"LetterboxAndCrop", videoProfile("v", func(p *Profile) {
			p.Video.Letterbox = true
			p.Crop = true
		}), true},
		{"Letterbox", videoProfile("v", func(p *Profile) { p.Video.Letterbox = true }), false},
		{"UnknownVideoType", videoProfile("v", func(p *Profile) { p.Video.Type = "avi" }), true},
		{"MutedAudio", videoProfile("v", func(p *Profile) { p.Video.AudioBitrate = 0 }), false},
		{"WrongPayload", &Profile{Name: "x", Kind: KindImage, Video: &VideoParams{Type: VideoMP4}}, true},
		{"UnknownKind", &Profile{Name: "x", Kind: "audio"}, true},
		{"BadWatermarkStyle", imageProfile("t", func(p *Profile) {
			p.Image.Watermark = &Watermark{File: "w.png", Style: "stretch", Opacity: 0.5}
		}), true},
		{"BadWatermarkOpacity", imageProfile("t", func(p *Profile) {
			p.Image.Watermark = &Watermark{File: "w.png", Style: WatermarkTile, Opacity: 1.5}
		}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("Expected error to wrap ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestVideoTypeExt(t *testing.T) {
	tests := []struct {
		vt  VideoType
		ext string
	}{
		{VideoMP4, ".mp4"},
		{VideoOGV, ".ogv"},
		{VideoFLV, ".flv"},
		{VideoWebM, ".webm"},
	}
	for _, tt := range tests {
		if got := tt.vt.Ext(); got != tt.ext {
			t.Errorf("Expected ext %s for %s, got %s", tt.ext, tt.vt, got)
		}
	}
}

func TestParseAnchor(t *testing.T) {
	if ParseAnchor("TOP") != AnchorTop {
		t.Error("Expected TOP to parse as top anchor")
	}
	if ParseAnchor("") != AnchorCenter {
		t.Error("Expected empty anchor to default to center")
	}
	if ParseAnchor("middle") != AnchorCenter {
		t.Error("Expected unknown anchor to default to center")
	}
}

type fakeLoader struct {
	profiles []Profile
	loads    int
	err      error
}

func (f *fakeLoader) LoadProfiles(_ context.Context) ([]Profile, error) {
	f.loads++
	return f.profiles, f.err
}

func TestCacheLazyLoad(t *testing.T) {
	loader := &fakeLoader{profiles: []Profile{
		*imageProfile("thumb", nil),
		*videoProfile("web", nil),
	}}
	cache := NewCache(loader)

	if loader.loads != 0 {
		t.Fatal("Cache loaded eagerly")
	}

	p, err := cache.Get(context.Background(), "thumb")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p == nil || p.Kind != KindImage {
		t.Fatalf("Expected image profile, got %+v", p)
	}

	if _, err := cache.Get(context.Background(), "web"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if loader.loads != 1 {
		t.Errorf("Expected a single table load, got %d", loader.loads)
	}

	missing, err := cache.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown profile, got %+v", missing)
	}
}

func TestCacheInvalidate(t *testing.T) {
	loader := &fakeLoader{profiles: []Profile{*imageProfile("thumb", nil)}}
	cache := NewCache(loader)

	if _, err := cache.Get(context.Background(), "thumb"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	loader.profiles = append(loader.profiles, *imageProfile("large", nil))
	cache.Invalidate()

	p, err := cache.Get(context.Background(), "large")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p == nil {
		t.Fatal("Expected profile added after invalidate to be visible")
	}
	if loader.loads != 2 {
		t.Errorf("Expected reload after invalidate, got %d loads", loader.loads)
	}
}

func TestCacheDuplicateNames(t *testing.T) {
	loader := &fakeLoader{profiles: []Profile{
		*imageProfile("display", nil),
		*videoProfile("display", nil),
	}}
	cache := NewCache(loader)

	p, err := cache.Get(context.Background(), "display")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p.Kind != KindImage {
		t.Errorf("Expected first row to win on duplicate names, got %s", p.Kind)
	}
}
