// heartbeat-loadgen is a tiny, dependency-free HTTP load generator for
// heartbeat-aggd. It reuses HTTP connections (keep-alive) and supports
// concurrency so demo scripts run fast without relying on external tools.
//
// Modes:
//   - single: send N heartbeats for a single source
//   - zipf:   approximate 80/20 skew (hot/cold) without a PRNG: send the
//     hot source 4/5 of the time
//
// Usage examples:
//
//	heartbeat-loadgen -base=http://127.0.0.1:8080 -mode=single -source=svc-a -n=5000 -c=16
//	heartbeat-loadgen -base=http://127.0.0.1:8080 -mode=zipf -hot_source=hot-1 -cold_sources=50 -n=8000 -c=16
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		base         = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host, e.g. http://127.0.0.1:8080")
		modeS        = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		source       = flag.String("source", "svc-a", "Source id for single mode")
		hotSource    = flag.String("hot_source", "hot-1", "Hot source for zipf mode")
		coldN        = flag.Int("cold_sources", 50, "Number of cold sources to round-robin in zipf mode")
		N            = flag.Int("n", 5000, "Total heartbeats to send")
		conc         = flag.Int("c", 8, "Number of concurrent workers")
		hotEvery     = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of this period go to hot; minimum 2)")
		windowStart  = flag.Int64("window_start", 0, "Window start passed on every heartbeat")
		windowLength = flag.Int64("window_length", 600000, "Window length passed on every heartbeat")
		livenessLen  = flag.Int64("liveness_length", 10000, "Liveness length passed on every heartbeat")
		tickMs       = flag.Int64("tick_ms", 1000, "Milliseconds to advance the synthetic heartbeat clock per request")
		timeout      = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle     = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle      = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer   = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf {
		if *coldN <= 0 {
			fmt.Fprintln(os.Stderr, "-cold_sources must be > 0 in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/") + "/heartbeat"

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var src string
			if m == modeSingle {
				src = *source
			} else if ((i + id) % *hotEvery) != 0 {
				src = *hotSource
			} else {
				idx := ((i + id) % *coldN) + 1
				src = fmt.Sprintf("cold-%d", idx)
			}

			t := *windowStart + int64(i)**tickMs
			q := url.Values{
				"source":          {src},
				"t":               {strconv.FormatInt(t, 10)},
				"window_start":    {strconv.FormatInt(*windowStart, 10)},
				"window_length":   {strconv.FormatInt(*windowLength, 10)},
				"liveness_length": {strconv.FormatInt(*livenessLen, 10)},
			}
			u := baseURL + "?" + q.Encode()
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d Duration=%s Throughput=%.0f req/s\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}
