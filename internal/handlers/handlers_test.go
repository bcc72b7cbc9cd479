package handlers

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"media-renditions/internal/database"
	"media-renditions/internal/lifecycle"
	"media-renditions/internal/profile"
)

type fixture struct {
	h     *Handlers
	db    *database.Database
	asset *database.Asset
	video *database.Asset
	prof  *profile.Profile
	web   *profile.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := &profile.Profile{
		Name: "thumb", Kind: profile.KindImage, Width: 50, Height: 50,
		Crop: true, PreCache: true,
		Image: &profile.ImageParams{Quality: 80},
	}
	if err := db.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile() failed: %v", err)
	}
	webProf := &profile.Profile{
		Name: "web", Kind: profile.KindVideo, Width: 640, Height: 480,
		Video: &profile.VideoParams{Type: profile.VideoMP4, VideoBitrate: 1200, AudioBitrate: 128},
	}
	if err := db.SaveProfile(ctx, webProf); err != nil {
		t.Fatalf("SaveProfile() failed: %v", err)
	}

	mediaDir := t.TempDir()
	imgPath := filepath.Join(mediaDir, "a.jpg")
	im := imaging.New(200, 150, color.NRGBA{R: 200, A: 255})
	if err := imaging.Save(im, imgPath, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("Saving fixture image failed: %v", err)
	}
	a := &database.Asset{File: imgPath, Kind: profile.KindImage}
	if err := db.CreateAsset(ctx, a); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}

	vidPath := filepath.Join(mediaDir, "clip.avi")
	if err := os.WriteFile(vidPath, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	v := &database.Asset{File: vidPath, Kind: profile.KindVideo}
	if err := db.CreateAsset(ctx, v); err != nil {
		t.Fatalf("CreateAsset() failed: %v", err)
	}

	cache := profile.NewCache(db)
	return &fixture{
		h:     New(db, cache, lifecycle.NewManager(db, cache)),
		db:    db,
		asset: a,
		video: v,
		prof:  p,
		web:   webProf,
	}
}

func (f *fixture) request(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.h.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
}

func TestLiveness(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodGet, "/livez")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != statusHealthy {
		t.Errorf("Expected healthy status, got %q", resp.Status)
	}
	if resp.GoVersion == "" {
		t.Error("Expected Go version in health response")
	}
}

func TestGetVersion(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodGet, "/api/version")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.request(t, http.MethodGet, "/api/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp JobsResponse
	decode(t, rec, &resp)
	if resp.Total != 0 {
		t.Errorf("Expected no jobs, got %d", resp.Total)
	}

	webID, err := f.db.GetProfileID(ctx, "web", profile.KindVideo)
	if err != nil {
		t.Fatalf("GetProfileID() failed: %v", err)
	}
	if _, err := f.db.CreateJobIfAbsent(ctx, f.video.ID, webID); err != nil {
		t.Fatalf("CreateJobIfAbsent() failed: %v", err)
	}

	rec = f.request(t, http.MethodGet, "/api/jobs")
	decode(t, rec, &resp)
	if resp.Total != 1 || resp.Jobs[0].State != "queued" {
		t.Errorf("Expected one queued job, got %+v", resp)
	}
	if resp.Jobs[0].ProfileName != "web" {
		t.Errorf("Expected profile name in listing, got %q", resp.Jobs[0].ProfileName)
	}
}

func TestGetAsset(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/assets/999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing asset, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/assets/1")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestGetDerivative(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/assets/1/derivative/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown profile, got %d", rec.Code)
	}

	// Image derivatives are created on demand by the lookup itself
	rec = f.request(t, http.MethodGet, "/api/assets/1/derivative/thumb")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp DerivativeResponse
	decode(t, rec, &resp)
	if !resp.Exists {
		t.Error("Expected image derivative to be generated on demand")
	}

	// Video conversion is asynchronous: the lookup enqueues and reports
	// absent until the worker has run
	rec = f.request(t, http.MethodGet, "/api/assets/2/derivative/web")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	decode(t, rec, &resp)
	if resp.Exists {
		t.Error("Expected video derivative to stay absent until converted")
	}
	job, err := f.db.GetJobForPair(context.Background(), f.video.ID, f.web.ID)
	if err != nil {
		t.Fatalf("GetJobForPair() failed: %v", err)
	}
	if job == nil {
		t.Error("Expected the lookup to enqueue a conversion job")
	}
}

func TestPreCacheAsset(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/assets/1/precache")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 from precache, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/assets/1/derivative/thumb")
	var resp DerivativeResponse
	decode(t, rec, &resp)
	if !resp.Exists {
		t.Error("Expected derivative to exist after precache")
	}
}

func TestInvalidateProfileCache(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodPost, "/api/cache/invalidate")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
