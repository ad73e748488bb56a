package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/hrdesk"
)

type fakeSource struct {
	snapshot hrdesk.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() hrdesk.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()
	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: hrdesk.MetricsSnapshot{
			Counters:   map[hrdesk.MetricID]uint64{},
			Histograms: map[hrdesk.MetricID][]uint64{},
		},
	})
	if out := scrape(t, exp); strings.Contains(out, "hrdesk_") {
		t.Fatalf("expected no hrdesk metrics, got:\n%s", out)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: hrdesk.MetricsSnapshot{
			Counters: map[hrdesk.MetricID]uint64{
				hrdesk.MetricRefreshSuccess: 7,
			},
			Histograms: map[hrdesk.MetricID][]uint64{
				hrdesk.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := scrape(t, exp)
	for _, want := range []string{
		"hrdesk_refresh_success_total 7",
		"hrdesk_refresh_failure_total 0",
		`hrdesk_request_latency_seconds_bucket{le="0.005"} 1`,
		`hrdesk_request_latency_seconds_bucket{le="+Inf"} 36`,
		"hrdesk_request_latency_seconds_count 36",
		"hrdesk_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestCollectFromClient(t *testing.T) {
	cfg := hrdesk.DefaultConfig()
	cfg.Persistence.Backend = hrdesk.BackendMemory
	client, err := hrdesk.New().WithConfig(cfg).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()

	client.Metrics().Inc(hrdesk.MetricLoginSuccess)
	if out := scrape(t, NewExporter(client)); !strings.Contains(out, "hrdesk_login_success_total 1") {
		t.Fatalf("expected login counter, got:\n%s", out)
	}
}

