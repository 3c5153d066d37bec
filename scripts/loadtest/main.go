// Loadtest polls a metric endpoint of the adapter concurrently, the way a
// fleet of autoscalers would, and reports latency percentiles and how often
// each scaling value was returned.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8000/metric/site-a -concurrency 50 -requests 5000
//	go run ./scripts/loadtest -url http://localhost:8000/metric/site-b -out summary.json
//
// With a cache TTL of a few seconds, the peer should see only a handful of
// probes however many requests are sent; compare with the adapter's /status.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type metricBody struct {
	Value *int `json:"value"`
}

type summary struct {
	Target        string         `json:"target"`
	Requests      int            `json:"requests"`
	Concurrency   int            `json:"concurrency"`
	Success       int32          `json:"success"`
	Failure       int32          `json:"failure"`
	Malformed     int32          `json:"malformed"`
	Values        map[string]int `json:"values"`
	DurationMs    int64          `json:"duration_ms"`
	ThroughputRPS float64        `json:"throughput_rps"`
	P50Ms         float64        `json:"p50_ms"`
	P90Ms         float64        `json:"p90_ms"`
	P95Ms         float64        `json:"p95_ms"`
	P99Ms         float64        `json:"p99_ms"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8000/metric/site-a", "Metric endpoint")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 1000, "Total number of requests to send")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var success, failure, malformed int32

	values := make(map[string]int)
	var valuesMu sync.Mutex

	var latencies []time.Duration
	var latMu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				start := time.Now()
				resp, err := client.Get(*url)
				dur := time.Since(start)

				latMu.Lock()
				latencies = append(latencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				var body metricBody
				decodeErr := json.NewDecoder(resp.Body).Decode(&body)
				resp.Body.Close()

				if resp.StatusCode != http.StatusOK {
					atomic.AddInt32(&failure, 1)
					continue
				}
				if decodeErr != nil || body.Value == nil || (*body.Value != 0 && *body.Value != 1) {
					atomic.AddInt32(&malformed, 1)
					continue
				}

				atomic.AddInt32(&success, 1)
				valuesMu.Lock()
				values[fmt.Sprintf("%d", *body.Value)]++
				valuesMu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d value=%d dur=%v\n", workerID, idx, *body.Value, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pick := func(p float64) time.Duration {
		if len(latencies) == 0 {
			return 0
		}
		return latencies[int(float64(len(latencies)-1)*p)]
	}

	report := summary{
		Target:        *url,
		Requests:      *requests,
		Concurrency:   *concurrency,
		Success:       success,
		Failure:       failure,
		Malformed:     malformed,
		Values:        values,
		DurationMs:    totalDuration.Milliseconds(),
		ThroughputRPS: float64(len(latencies)) / totalDuration.Seconds(),
		P50Ms:         float64(pick(0.50).Microseconds()) / 1000,
		P90Ms:         float64(pick(0.90).Microseconds()) / 1000,
		P95Ms:         float64(pick(0.95).Microseconds()) / 1000,
		P99Ms:         float64(pick(0.99).Microseconds()) / 1000,
	}

	fmt.Println("--- Metric Load Test Summary ---")
	fmt.Printf("Target: %s\n", report.Target)
	fmt.Printf("Requests: %d  Concurrency: %d\n", report.Requests, report.Concurrency)
	fmt.Printf("Success: %d  Failure: %d  Malformed: %d\n", success, failure, malformed)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, report.ThroughputRPS)
	fmt.Printf("Values: 0 -> %d  1 -> %d\n", values["0"], values["1"])
	fmt.Printf("Latency: p50=%v p90=%v p95=%v p99=%v\n", pick(0.50), pick(0.90), pick(0.95), pick(0.99))
	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 || malformed > 0 {
		os.Exit(2)
	}
}
