// Package metrics aggregates in-memory counters for the API and exposes them
// in Prometheus text format on /metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates HTTP request counters and upstream gateway call
// counters. It coordinates concurrent writers via a RWMutex.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	upstreamCalls    map[string]uint64
	upstreamFailures map[string]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		upstreamCalls:    make(map[string]uint64),
		upstreamFailures: make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared across packages that do not
// require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   path,
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveUpstreamCall records an outbound call to the file provider by
// operation name (e.g. "list_public").
func (r *Recorder) ObserveUpstreamCall(operation string) {
	op := normalizeName(operation)
	r.mu.Lock()
	r.upstreamCalls[op]++
	r.mu.Unlock()
}

// ObserveUpstreamFailure records a failed outbound call. The caller should
// also record the attempt separately.
func (r *Recorder) ObserveUpstreamFailure(operation string) {
	op := normalizeName(operation)
	r.mu.Lock()
	r.upstreamFailures[op]++
	r.mu.Unlock()
}

// UpstreamCounts returns copies of the upstream call and failure counters for
// testing and reporting purposes.
func (r *Recorder) UpstreamCounts() (calls map[string]uint64, failures map[string]uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	calls = make(map[string]uint64, len(r.upstreamCalls))
	for k, v := range r.upstreamCalls {
		calls[k] = v
	}
	failures = make(map[string]uint64, len(r.upstreamFailures))
	for k, v := range r.upstreamFailures {
		failures[k] = v
	}
	return calls, failures
}

// ObserveUpstreamCall records an outbound provider call on the default recorder.
func ObserveUpstreamCall(operation string) {
	defaultRecorder.ObserveUpstreamCall(operation)
}

// ObserveUpstreamFailure records a failed provider call on the default recorder.
func ObserveUpstreamFailure(operation string) {
	defaultRecorder.ObserveUpstreamFailure(operation)
}

// Reset clears all counters on the recorder. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.upstreamCalls = make(map[string]uint64)
	r.upstreamFailures = make(map[string]uint64)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus
// text exposition data.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format, sorting label sets to
// provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	operations := r.sortedUpstreamOperations()

	fmt.Fprintln(w, "# HELP diskgate_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE diskgate_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "diskgate_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP diskgate_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE diskgate_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "diskgate_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP diskgate_upstream_calls_total Outbound file provider calls by operation")
	fmt.Fprintln(w, "# TYPE diskgate_upstream_calls_total counter")
	for _, op := range operations {
		fmt.Fprintf(w, "diskgate_upstream_calls_total{operation=\"%s\"} %d\n", op, r.upstreamCalls[op])
	}

	fmt.Fprintln(w, "# HELP diskgate_upstream_failures_total Failed file provider calls by operation")
	fmt.Fprintln(w, "# TYPE diskgate_upstream_failures_total counter")
	for _, op := range operations {
		fmt.Fprintf(w, "diskgate_upstream_failures_total{operation=\"%s\"} %d\n", op, r.upstreamFailures[op])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedUpstreamOperations() []string {
	seen := make(map[string]struct{}, len(r.upstreamCalls)+len(r.upstreamFailures))
	for op := range r.upstreamCalls {
		seen[op] = struct{}{}
	}
	for op := range r.upstreamFailures {
		seen[op] = struct{}{}
	}
	operations := make([]string, 0, len(seen))
	for op := range seen {
		operations = append(operations, op)
	}
	sort.Strings(operations)
	return operations
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
