package derivative

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"media-renditions/internal/database"
	"media-renditions/internal/profile"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		profile profile.Profile
		want    string
	}{
		{
			name:    "image keeps source extension",
			file:    "/media/photos/a.jpg",
			profile: profile.Profile{Name: "thumb", Kind: profile.KindImage},
			want:    "/media/photos/cache/a_thumb.jpg",
		},
		{
			name:    "image with dots in stem",
			file:    "/media/photos/holiday.2024.png",
			profile: profile.Profile{Name: "display", Kind: profile.KindImage},
			want:    "/media/photos/cache/holiday.2024_display.png",
		},
		{
			name: "video takes container extension",
			file: "/media/videos/clip.avi",
			profile: profile.Profile{
				Name:  "web",
				Kind:  profile.KindVideo,
				Video: &profile.VideoParams{Type: profile.VideoMP4},
			},
			want: "/media/videos/cache/clip_web.mp4",
		},
		{
			name: "webm container",
			file: "/media/videos/clip.mp4",
			profile: profile.Profile{
				Name:  "open",
				Kind:  profile.KindVideo,
				Video: &profile.VideoParams{Type: profile.VideoWebM},
			},
			want: "/media/videos/cache/clip_open.webm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &database.Asset{File: tt.file}
			got, err := Path(a, &tt.profile)
			if err != nil {
				t.Fatalf("Path() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathNoFile(t *testing.T) {
	a := &database.Asset{}
	p := &profile.Profile{Name: "thumb", Kind: profile.KindImage}
	if _, err := Path(a, p); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile, got %v", err)
	}
	if _, err := CacheDir(a); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile from CacheDir, got %v", err)
	}
}

func TestResolveSource(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	defer db.Close()

	p := &profile.Profile{
		Name:   "web",
		Kind:   profile.KindVideo,
		Width:  640,
		Height: 480,
		Video:  &profile.VideoParams{Type: profile.VideoMP4},
	}
	if err := db.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile() failed: %v", err)
	}

	owner := &database.Asset{File: "/media/videos/a.mp4", Kind: profile.KindVideo}
	if err := db.CreateAsset(ctx, owner); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}
	alt := &database.Asset{File: "/media/videos/a-remaster.mp4", Kind: profile.KindVideo}
	if err := db.CreateAsset(ctx, alt); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}

	r := NewResolver(db)

	// Without an override the asset is its own source
	src, err := r.ResolveSource(ctx, owner, p)
	if err != nil {
		t.Fatalf("ResolveSource() failed: %v", err)
	}
	if src.ID != owner.ID {
		t.Errorf("Expected owner as source, got asset %d", src.ID)
	}

	if err := db.SetOverride(ctx, &database.Override{AssetID: owner.ID, ProfileID: p.ID, SourceAssetID: alt.ID}); err != nil {
		t.Fatalf("SetOverride() failed: %v", err)
	}

	src, err = r.ResolveSource(ctx, owner, p)
	if err != nil {
		t.Fatalf("ResolveSource() failed: %v", err)
	}
	if src.ID != alt.ID {
		t.Errorf("Expected override source %d, got %d", alt.ID, src.ID)
	}

	// The output path stays keyed to the owning asset
	path, err := Path(owner, p)
	if err != nil {
		t.Fatalf("Path() failed: %v", err)
	}
	if path != "/media/videos/cache/a_web.mp4" {
		t.Errorf("Unexpected derivative path %q", path)
	}

	if _, err := r.ResolveSource(ctx, &database.Asset{ID: owner.ID}, p); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile for fileless asset, got %v", err)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() failed: %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Errorf("HashFile() = %q, want %q", got, want)
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
