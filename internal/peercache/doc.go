// Package peercache caches the down/up verdict of each monitored peer.
//
// Each peer key owns an entry with its own lock. A lookup returns the cached
// verdict while it is no older than the TTL and otherwise probes the peer
// synchronously, holding only that key's lock, before storing the new
// verdict. Lookups for different keys never wait on each other.
//
// There is no background refresh: an entry only becomes fresh again when a
// lookup finds it stale. Concurrent lookups of the same stale key are
// serialized, so the second one sees the first one's result instead of
// probing again; probes are not otherwise de-duplicated.
//
// Usage:
//
//	cache := peercache.New(prober, map[string]string{
//	    "a": "https://site-a.example.com/healthz",
//	    "b": "https://site-b.example.com/healthz",
//	}, 5*time.Second, peercache.WithLogger(log))
//
//	if cache.DownState("b") {
//	    // scale up
//	}
package peercache
