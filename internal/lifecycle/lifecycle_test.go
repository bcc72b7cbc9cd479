package lifecycle

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"media-renditions/internal/database"
	"media-renditions/internal/profile"
)

type fixture struct {
	db      *database.Database
	cache   *profile.Cache
	mgr     *Manager
	image   *database.Asset
	video   *database.Asset
	thumb   *profile.Profile
	display *profile.Profile
	web     *profile.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	thumb := &profile.Profile{
		Name: "thumb", Kind: profile.KindImage, Width: 50, Height: 50,
		Crop: true, PreCache: true,
		Image: &profile.ImageParams{Quality: 80},
	}
	display := &profile.Profile{
		Name: "display", Kind: profile.KindImage, Width: 100, Height: 0,
		IncrementCount: true,
		Image:          &profile.ImageParams{Quality: 80},
	}
	web := &profile.Profile{
		Name: "web", Kind: profile.KindVideo, Width: 640, Height: 480,
		PreCache: true,
		Video:    &profile.VideoParams{Type: profile.VideoMP4, VideoBitrate: 1200, AudioBitrate: 128},
	}
	for _, p := range []*profile.Profile{thumb, display, web} {
		if err := db.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile(%s) failed: %v", p.Name, err)
		}
	}

	mediaDir := t.TempDir()
	imgPath := filepath.Join(mediaDir, "a.jpg")
	im := imaging.New(200, 150, color.NRGBA{R: 200, A: 255})
	if err := imaging.Save(im, imgPath, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("Saving fixture image failed: %v", err)
	}
	imgAsset := &database.Asset{File: imgPath, Kind: profile.KindImage}
	if err := db.CreateAsset(ctx, imgAsset); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}

	vidPath := filepath.Join(mediaDir, "clip.avi")
	if err := os.WriteFile(vidPath, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	vidAsset := &database.Asset{File: vidPath, Kind: profile.KindVideo}
	if err := db.CreateAsset(ctx, vidAsset); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}

	cache := profile.NewCache(db)
	return &fixture{
		db: db, cache: cache, mgr: NewManager(db, cache),
		image: imgAsset, video: vidAsset,
		thumb: thumb, display: display, web: web,
	}
}

func derivativePath(a *database.Asset, name, ext string) string {
	base := filepath.Base(a.File)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(filepath.Dir(a.File), "cache", stem+"_"+name+ext)
}

func TestCreateSizeImage(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.CreateSize(context.Background(), f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	if _, err := os.Stat(derivativePath(f.image, "thumb", ".jpg")); err != nil {
		t.Errorf("Expected thumb derivative: %v", err)
	}
}

func TestCreateSizeVideoEnqueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.video, f.web); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}

	job, err := f.db.GetJobForPair(ctx, f.video.ID, f.web.ID)
	if err != nil {
		t.Fatalf("GetJobForPair() failed: %v", err)
	}
	if job == nil || job.State() != database.JobQueued {
		t.Errorf("Expected a queued job, got %+v", job)
	}
	if _, err := os.Stat(derivativePath(f.video, "web", ".mp4")); !os.IsNotExist(err) {
		t.Error("Video generation must be asynchronous")
	}
}

func TestRemoveSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	if err := f.mgr.RemoveSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("RemoveSize() failed: %v", err)
	}

	if _, err := os.Stat(derivativePath(f.image, "thumb", ".jpg")); !os.IsNotExist(err) {
		t.Error("Expected derivative to be removed")
	}
	// The emptied cache directory goes too
	cacheDir := filepath.Join(filepath.Dir(f.image.File), "cache")
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Error("Expected empty cache directory to be removed")
	}
}

func TestRemoveSizeDropsJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.video, f.web); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	if err := f.mgr.RemoveSize(ctx, f.video, f.web); err != nil {
		t.Fatalf("RemoveSize() failed: %v", err)
	}

	job, err := f.db.GetJobForPair(ctx, f.video.ID, f.web.ID)
	if err != nil {
		t.Fatalf("GetJobForPair() failed: %v", err)
	}
	if job != nil {
		t.Errorf("Expected job to be deleted, got %+v", job)
	}
}

func TestClearCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, p := range []*profile.Profile{f.thumb, f.display} {
		if err := f.mgr.CreateSize(ctx, f.image, p); err != nil {
			t.Fatalf("CreateSize(%s) failed: %v", p.Name, err)
		}
	}

	if err := f.mgr.ClearCache(ctx, f.image); err != nil {
		t.Fatalf("ClearCache() failed: %v", err)
	}
	for _, name := range []string{"thumb", "display"} {
		if _, err := os.Stat(derivativePath(f.image, name, ".jpg")); !os.IsNotExist(err) {
			t.Errorf("Expected %s derivative to be removed", name)
		}
	}
}

func TestClearCacheSuppressedForRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}

	f.image.PreventCacheClear = true
	if err := f.mgr.ClearCache(ctx, f.image); err != nil {
		t.Fatalf("ClearCache() failed: %v", err)
	}
	if _, err := os.Stat(derivativePath(f.image, "thumb", ".jpg")); err != nil {
		t.Error("Expected cache to survive a rename-only save")
	}
}

func TestPreCache(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.PreCache(context.Background(), f.image); err != nil {
		t.Fatalf("PreCache() failed: %v", err)
	}

	if _, err := os.Stat(derivativePath(f.image, "thumb", ".jpg")); err != nil {
		t.Error("Expected pre_cache profile to be generated")
	}
	if _, err := os.Stat(derivativePath(f.image, "display", ".jpg")); !os.IsNotExist(err) {
		t.Error("Expected on-demand profile to stay ungenerated")
	}
}

func TestProfileChangedRegenerates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	before, err := os.Stat(derivativePath(f.image, "thumb", ".jpg"))
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}

	f.thumb.Width = 80
	f.thumb.Height = 80
	if err := f.db.SaveProfile(ctx, f.thumb); err != nil {
		t.Fatalf("SaveProfile() failed: %v", err)
	}
	if err := f.mgr.ProfileChanged(ctx, f.thumb); err != nil {
		t.Fatalf("ProfileChanged() failed: %v", err)
	}

	out, err := imaging.Open(derivativePath(f.image, "thumb", ".jpg"))
	if err != nil {
		t.Fatalf("Expected regenerated derivative: %v", err)
	}
	if out.Bounds().Dx() != 80 || out.Bounds().Dy() != 80 {
		t.Errorf("Expected 80x80 after profile change, got %dx%d (was %d bytes)",
			out.Bounds().Dx(), out.Bounds().Dy(), before.Size())
	}
}

func TestProfileDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	if err := f.mgr.ProfileDeleted(ctx, f.thumb); err != nil {
		t.Fatalf("ProfileDeleted() failed: %v", err)
	}

	if _, err := os.Stat(derivativePath(f.image, "thumb", ".jpg")); !os.IsNotExist(err) {
		t.Error("Expected derivative to be removed with its profile")
	}
	p, err := f.cache.Get(ctx, "thumb")
	if err != nil {
		t.Fatalf("cache.Get() failed: %v", err)
	}
	if p != nil {
		t.Error("Expected profile gone from the reloaded cache")
	}
}

func TestDeleteAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	if err := f.mgr.DeleteAsset(ctx, f.image); err != nil {
		t.Fatalf("DeleteAsset() failed: %v", err)
	}

	if _, err := os.Stat(f.image.File); !os.IsNotExist(err) {
		t.Error("Expected original file to be removed")
	}
	if _, err := f.db.GetAsset(ctx, f.image.ID); err == nil {
		t.Error("Expected asset row to be removed")
	}
}

func TestDerivativeCreatesOnDemand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First access generates the missing image derivative synchronously
	h, err := f.mgr.Derivative(ctx, f.image, "display")
	if err != nil {
		t.Fatalf("Derivative() failed: %v", err)
	}
	if !h.Exists {
		t.Fatalf("Expected derivative created on demand, got %+v", h)
	}
	if _, err := os.Stat(derivativePath(f.image, "display", ".jpg")); err != nil {
		t.Errorf("Expected derivative file on disk: %v", err)
	}

	// display has increment_count set
	a, err := f.db.GetAsset(ctx, f.image.ID)
	if err != nil {
		t.Fatalf("GetAsset() failed: %v", err)
	}
	if a.ViewCount != 1 {
		t.Errorf("Expected view count 1 after access, got %d", a.ViewCount)
	}

	// A deleted derivative comes back on the next access
	if err := os.Remove(h.Path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	h, err = f.mgr.Derivative(ctx, f.image, "display")
	if err != nil {
		t.Fatalf("second Derivative() failed: %v", err)
	}
	if !h.Exists {
		t.Error("Expected deleted derivative to be regenerated lazily")
	}
}

func TestDerivativeVideoEnqueuesJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Video conversion is asynchronous: the handle reports absent but a
	// job lands in the queue
	h, err := f.mgr.Derivative(ctx, f.video, "web")
	if err != nil {
		t.Fatalf("Derivative() failed: %v", err)
	}
	if h.Exists {
		t.Error("Expected video derivative to stay absent until the worker runs")
	}
	if h.Path == "" {
		t.Error("Expected the handle to carry the derivative path")
	}

	job, err := f.db.GetJobForPair(ctx, f.video.ID, f.web.ID)
	if err != nil {
		t.Fatalf("GetJobForPair() failed: %v", err)
	}
	if job == nil || job.State() != database.JobQueued {
		t.Errorf("Expected a queued job, got %+v", job)
	}
}

func TestDerivativeHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unknown profile degrades to a zero handle
	h, err := f.mgr.Derivative(ctx, f.image, "nope")
	if err != nil || h.Path != "" || h.Exists {
		t.Errorf("Expected zero handle for unknown profile, got %+v err=%v", h, err)
	}

	// Fileless asset too
	bare := &database.Asset{Kind: profile.KindImage}
	h, err = f.mgr.Derivative(ctx, bare, "display")
	if err != nil || h.Path != "" || h.Exists {
		t.Errorf("Expected zero handle for fileless asset, got %+v err=%v", h, err)
	}

	if err := f.mgr.CreateSize(ctx, f.image, f.thumb); err != nil {
		t.Fatalf("CreateSize() failed: %v", err)
	}
	h, err = f.mgr.Derivative(ctx, f.image, "thumb")
	if err != nil {
		t.Fatalf("Derivative() failed: %v", err)
	}
	if !h.Exists {
		t.Fatal("Expected derivative to exist")
	}

	// thumb does not set increment_count
	a, err := f.db.GetAsset(ctx, f.image.ID)
	if err != nil {
		t.Fatalf("GetAsset() failed: %v", err)
	}
	if a.ViewCount != 0 {
		t.Errorf("Expected view count untouched, got %d", a.ViewCount)
	}
}
