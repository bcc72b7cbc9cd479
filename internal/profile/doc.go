// Package profile defines the named size profiles that describe derivative
// renditions: target dimensions, crop/letterbox rules, image quality and
// effects, and video encoding parameters.
//
// A profile is a tagged variant: the shared base fields plus exactly one of
// an image or video payload. Profiles are persisted by the database layer
// and served through an injectable, lazily loading Cache.
package profile
