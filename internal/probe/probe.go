// Package probe issues the lightweight reachability checks the detector is
// built on: a network-level check against a static resource and a
// service-level check against the backend health endpoint.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of a single probe. Probes fail soft: errors are
// carried in the result, never returned to the scheduler.
type Result struct {
	Success      bool          `json:"success"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// Prober is the injectable environment probe. HTTPProber is the real
// implementation; ScriptedProber drives tests without a network.
type Prober interface {
	// CheckNetwork probes a static, cache-busted resource to test
	// network-level reachability.
	CheckNetwork(ctx context.Context) Result
	// CheckService probes the backend health endpoint to test
	// service-level reachability.
	CheckService(ctx context.Context) Result
}

// HTTPProber probes reachability over HTTP with a per-request timeout.
type HTTPProber struct {
	client     *http.Client
	networkURL string
	serviceURL string
	timeout    time.Duration
}

// NewHTTPProber creates a prober against the given targets. Both checks share
// the same timeout discipline.
func NewHTTPProber(networkURL, serviceURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client:     &http.Client{Timeout: timeout},
		networkURL: networkURL,
		serviceURL: serviceURL,
		timeout:    timeout,
	}
}

// CheckNetwork issues a HEAD request to the static resource with a
// cache-busting query parameter. Success is any 2xx response.
func (p *HTTPProber) CheckNetwork(ctx context.Context) Result {
	return p.check(ctx, http.MethodHead, cacheBust(p.networkURL))
}

// CheckService issues a GET request to the health endpoint. Success is any
// 2xx response.
func (p *HTTPProber) CheckService(ctx context.Context) Result {
	return p.check(ctx, http.MethodGet, p.serviceURL)
}

func (p *HTTPProber) check(ctx context.Context, method, url string) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{ResponseTime: elapsed, Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Success: true, ResponseTime: elapsed}
	}

	return Result{
		ResponseTime: elapsed,
		Error:        fmt.Sprintf("probe returned status %d", resp.StatusCode),
	}
}

// cacheBust appends a unique query parameter so intermediaries cannot answer
// the probe from cache.
func cacheBust(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_=%s", url, sep, uuid.New().String())
}
