// Package probe performs single outbound health probes against a peer.
//
// A probe is one HTTP request with a fixed method, timeout and TLS policy.
// Every failure mode (unset URL, transport error, timeout, TLS verification,
// rejected status) collapses into a Down result carrying the Reason, so
// callers only ever see a verdict, never an error to handle.
package probe
