// Package middleware provides HTTP request logging and Prometheus
// instrumentation wrappers for the operational API.
package middleware
