// Package imagegen renders image derivatives: decode, effect chain,
// resize or anchored crop, watermark, JPEG encode into the cache
// directory next to the original.
package imagegen
