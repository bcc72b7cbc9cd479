// Package derivative maps (asset, profile) pairs to cache file locations
// and resolves the effective generation source through per-asset
// overrides. It also provides the content hash used for upload dedup.
package derivative
