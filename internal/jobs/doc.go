// Package jobs holds the durable conversion queue: enqueueing of video
// transcodes and the worker that sweeps, claims and processes them with
// retry-on-failure semantics.
package jobs
