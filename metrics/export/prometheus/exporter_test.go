package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fastauth/fastauth"
)

type fakeSource struct {
	snapshot fastauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() fastauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: fastauth.MetricsSnapshot{
			Counters: map[fastauth.MetricID]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounters(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: fastauth.MetricsSnapshot{
			Counters: map[fastauth.MetricID]uint64{
				fastauth.MetricLoginSuccess:         7,
				fastauth.MetricRefreshReuseDetected: 1,
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "fastauth_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "fastauth_refresh_reuse_detected_total 1") {
		t.Fatalf("expected reuse counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE fastauth_login_success_total counter") {
		t.Fatalf("expected TYPE line in output, got:\n%s", out)
	}
	if !strings.Contains(out, "fastauth_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: fastauth.MetricsSnapshot{
			Counters: map[fastauth.MetricID]uint64{
				fastauth.MetricRevoke: 3,
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "fastauth_revoke_total 3") {
		t.Fatalf("expected revoke counter in body, got:\n%s", rec.Body.String())
	}
}

func TestRenderNilExporter(t *testing.T) {
	var exp *PrometheusExporter
	if got := exp.Render(); got != "" {
		t.Fatalf("nil exporter must render empty, got %q", got)
	}
}
