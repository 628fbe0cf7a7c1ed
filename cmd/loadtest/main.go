// Command loadtest fires concurrent POST /payments requests at a running
// server instance and reports a simple outcome tally. Adapted from the
// teacher's root-level stress.go: the payload gains a requestedAt field,
// the target is configurable instead of a literal, the success check
// matches this service's 202 response, and the counters are atomic
// (the original incremented plain ints from unsynchronized goroutines).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type paymentRequest struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
	RequestedAt   string  `json:"requestedAt"`
}

func main() {
	var (
		targetURL     = flag.String("url", "http://localhost:9999/payments", "target ingestion endpoint")
		totalRequests = flag.Int("n", 500, "total requests to send")
		concurrency   = flag.Int("c", 20, "max in-flight requests")
	)
	flag.Parse()

	var (
		accepted int64
		timeout  int64
		failed   int64
	)

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 2 * time.Second}

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := paymentRequest{
				CorrelationID: fmt.Sprintf("loadtest-%d-%d", time.Now().UnixNano(), i),
				Amount:        19.90,
				RequestedAt:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			}
			body, _ := json.Marshal(payload)
			req, err := http.NewRequest(http.MethodPost, *targetURL, bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					atomic.AddInt64(&timeout, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
				return
			}
			defer resp.Body.Close()
			respBody, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusAccepted {
				atomic.AddInt64(&accepted, 1)
			} else {
				fmt.Printf("unexpected status %d: %s\n", resp.StatusCode, string(respBody))
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("accepted: %d\ntimeout: %d\nfailed: %d\n", accepted, timeout, failed)
}
