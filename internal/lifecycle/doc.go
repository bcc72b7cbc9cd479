// Package lifecycle owns the derivative cache as a whole: dispatching
// generation by asset kind, invalidating on asset and profile mutation,
// eager pre-caching and cleanup of emptied cache directories.
package lifecycle
