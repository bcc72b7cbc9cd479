// Package database manages the SQLite store backing the media renditions
// service: assets, size profiles with their effects and watermarks,
// per-object source overrides, and the durable conversion job queue.
//
// The database runs in WAL mode with a busy timeout; every operation takes
// a context and observes a default timeout. Job claiming uses a conditional
// update so that a claim either succeeds exactly once or not at all.
package database
