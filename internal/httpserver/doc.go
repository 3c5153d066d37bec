// Package httpserver wraps http.Server with address validation, a separate
// listen step and graceful shutdown.
package httpserver
