// Fakepeer is a stand-in for a peer site's health endpoint, used to drill
// failover locally. Its health status can be changed while it runs.
//
// Usage:
//
//	go run ./scripts/fakepeer -port 8081 -status 200
//
//	curl -X POST localhost:8081/toggle        # flip between healthy and 503
//	curl -X POST localhost:8081/status/302    # answer 302 from now on
//	curl -X POST 'localhost:8081/delay?ms=5000' # answer slowly to trigger probe timeouts
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	status := flag.Int("status", http.StatusOK, "initial status for /health")
	flag.Parse()

	var current atomic.Int32
	var delayMs atomic.Int64
	current.Store(int32(*status))
	healthy := int32(*status)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if d := delayMs.Load(); d > 0 {
			time.Sleep(time.Duration(d) * time.Millisecond)
		}

		code := int(current.Load())
		log.Printf("probe: method=%s from=%s status=%d header=%v", r.Method, r.RemoteAddr, code, r.Header)

		if code >= 300 && code < 400 {
			http.Redirect(w, r, "/", code)
			return
		}
		w.WriteHeader(code)
		w.Write([]byte(http.StatusText(code)))
	})

	mux.HandleFunc("/toggle", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next := healthy
		if current.Load() == healthy {
			next = http.StatusServiceUnavailable
		}
		current.Store(next)
		log.Printf("status toggled to %d", next)
		fmt.Fprintf(w, "%d\n", next)
	})

	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
		if err != nil || code < 100 || code > 599 {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		current.Store(int32(code))
		log.Printf("status set to %d", code)
		fmt.Fprintf(w, "%d\n", code)
	})

	mux.HandleFunc("/delay", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ms, err := strconv.ParseInt(r.URL.Query().Get("ms"), 10, 64)
		if err != nil || ms < 0 {
			http.Error(w, "invalid ms", http.StatusBadRequest)
			return
		}
		delayMs.Store(ms)
		log.Printf("delay set to %dms", ms)
		fmt.Fprintf(w, "%d\n", ms)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting fake peer on %s with status %d", addr, *status)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
