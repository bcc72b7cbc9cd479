package database

import (
	"time"

	"media-renditions/internal/profile"
)

// Asset is an original photo or video file with its metadata. Video assets
// carry probe dimensions, a duration and a 1:1 owned poster image asset.
type Asset struct {
	ID        int64          `json:"id"`
	File      string         `json:"file"`
	Kind      profile.Kind   `json:"kind"`
	DateTaken time.Time      `json:"dateTaken,omitzero"`
	ViewCount int64          `json:"viewCount"`
	CropFrom  profile.Anchor `json:"cropFrom"`

	// Video metadata, zero for images
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	PosterID int64   `json:"posterId,omitempty"`

	// PreventCacheClear marks a pure rename: cache clearing on save is
	// skipped because the content did not change. Never persisted.
	PreventCacheClear bool `json:"-"`
}

// IsVideo reports whether the asset is a video original.
func (a *Asset) IsVideo() bool {
	return a.Kind == profile.KindVideo
}

// Override substitutes the generation source for one (asset, profile) pair.
// The derivative keeps the owning asset's output path.
type Override struct {
	ID            int64 `json:"id"`
	AssetID       int64 `json:"assetId"`
	ProfileID     int64 `json:"profileId"`
	SourceAssetID int64 `json:"sourceAssetId"`
}

// JobState is the effective tri-state of a conversion job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobInProgress JobState = "inprogress"
	JobConverted  JobState = "converted"
)

// ConversionJob tracks one pending, running or completed video transcode
// for a (video asset, video profile) pair.
type ConversionJob struct {
	ID          int64     `json:"id"`
	AssetID     int64     `json:"assetId"`
	ProfileID   int64     `json:"profileId"`
	ProfileName string    `json:"profileName,omitempty"`
	InProgress  bool      `json:"inprogress"`
	Converted   bool      `json:"converted"`
	Message     string    `json:"message,omitempty"`
	Time        float64   `json:"time"`
	AccessDate  time.Time `json:"accessDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// State derives the job state from the two flags.
func (j *ConversionJob) State() JobState {
	switch {
	case j.Converted:
		return JobConverted
	case j.InProgress:
		return JobInProgress
	default:
		return JobQueued
	}
}
