// Package handler implements the HTTP endpoints of the adapter: the per-site
// scaling metrics, the liveness probe and a diagnostic status view.
//
// Metric endpoints never fail: whatever happens while probing the peer, the
// response is a well-formed {"value": 0|1} where 1 means the peer is down.
package handler
