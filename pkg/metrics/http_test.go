package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	metrics.Observe("POST", "/api/v1/orders", "201", 120*time.Millisecond)
	metrics.Observe("POST", "/api/v1/orders", "201", 80*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected one label combination, got %d", len(mf.GetMetric()))
			}
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("expected 2 requests, got %f", got)
			}
		}
	}
	if !found {
		t.Fatal("http_requests_total not exported")
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var metrics *HTTPMetrics
	metrics.Observe("GET", "/health", "200", time.Millisecond)

	empty := NewHTTPMetrics(nil)
	empty.Observe("GET", "/health", "200", time.Millisecond)
}
