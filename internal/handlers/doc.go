// Package handlers implements the operational HTTP API: health and
// version endpoints, job queue inspection and derivative management.
package handlers
