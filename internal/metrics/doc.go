// Package metrics defines the Prometheus metrics exported by the media
// renditions service. All metrics are registered via promauto at package
// initialization and served from the /metrics endpoint.
package metrics
