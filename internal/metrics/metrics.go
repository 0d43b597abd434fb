package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and authorization
// decisions. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	authDecisions = make(map[decisionKey]int64)
	webhookEvents = make(map[webhookKey]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type decisionKey struct {
	Outcome string // allow | redirect
	Role    string // resolved role or "anonymous"
}

type webhookKey struct {
	Event   string
	Success string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordAuthDecision counts route dispatcher outcomes per role.
func RecordAuthDecision(allowed bool, role string) {
	mu.Lock()
	defer mu.Unlock()

	outcome := "redirect"
	if allowed {
		outcome = "allow"
	}
	if role == "" {
		role = "anonymous"
	}
	authDecisions[decisionKey{Outcome: outcome, Role: role}]++
}

// RecordWebhookEvent counts identity webhook deliveries by event type.
func RecordWebhookEvent(event string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	webhookEvents[webhookKey{Event: event, Success: s}]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP atrium_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE atrium_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "atrium_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP atrium_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE atrium_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP atrium_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE atrium_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "atrium_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "atrium_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP atrium_auth_decisions_total Route dispatcher outcomes\n")
	b.WriteString("# TYPE atrium_auth_decisions_total counter\n")

	var decKeys []decisionKey
	for k := range authDecisions {
		decKeys = append(decKeys, k)
	}
	sort.Slice(decKeys, func(i, j int) bool {
		if decKeys[i].Outcome != decKeys[j].Outcome {
			return decKeys[i].Outcome < decKeys[j].Outcome
		}
		return decKeys[i].Role < decKeys[j].Role
	})

	for _, k := range decKeys {
		fmt.Fprintf(&b, "atrium_auth_decisions_total{outcome=\"%s\",role=\"%s\"} %d\n",
			k.Outcome, k.Role, authDecisions[k])
	}

	b.WriteString("# HELP atrium_identity_webhook_events_total Identity webhook deliveries\n")
	b.WriteString("# TYPE atrium_identity_webhook_events_total counter\n")

	var whKeys []webhookKey
	for k := range webhookEvents {
		whKeys = append(whKeys, k)
	}
	sort.Slice(whKeys, func(i, j int) bool {
		if whKeys[i].Event != whKeys[j].Event {
			return whKeys[i].Event < whKeys[j].Event
		}
		return whKeys[i].Success < whKeys[j].Success
	})

	for _, k := range whKeys {
		fmt.Fprintf(&b, "atrium_identity_webhook_events_total{event=\"%s\",success=\"%s\"} %d\n",
			k.Event, k.Success, webhookEvents[k])
	}

	return b.String()
}

// Reset clears all counters. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	authDecisions = make(map[decisionKey]int64)
	webhookEvents = make(map[webhookKey]int64)
}
