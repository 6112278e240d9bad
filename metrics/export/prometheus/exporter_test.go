package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/passport"
)

type fakeSource struct {
	snapshot passport.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() passport.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: passport.MetricsSnapshot{
		Counters:   map[passport.MetricID]uint64{},
		Histograms: map[passport.MetricID][]uint64{},
	}})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
	if got := (*Exporter)(nil).Render(); got != "" {
		t.Fatalf("nil exporter rendered %q", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: passport.MetricsSnapshot{
			Counters: map[passport.MetricID]uint64{
				passport.MetricLoginSuccess:            7,
				passport.MetricLoginCredentialMismatch: 2,
			},
			Histograms: map[passport.MetricID][]uint64{
				passport.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"passport_login_success_total 7",
		"passport_login_credential_mismatch_total 2",
		"passport_logout_total 0",
		`passport_login_latency_seconds_bucket{le="0.005"} 1`,
		`passport_login_latency_seconds_bucket{le="+Inf"} 36`,
		"passport_login_latency_seconds_count 36",
		"passport_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWithEngine(t *testing.T) {
	cfg := passport.DefaultConfig()
	cfg.Token.SigningSecret = []byte(strings.Repeat("s", 32))
	cfg.Token.WrapSecret = []byte(strings.Repeat("w", 32))
	engine, err := passport.New().
		WithConfig(cfg).
		WithPrincipalStore(passport.NewMemoryPrincipalStore()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), "nobody", "secret"); err == nil {
		t.Fatalf("expected login failure")
	}

	rec := httptest.NewRecorder()
	New(engine).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "passport_login_unknown_principal_total 1") {
		t.Fatalf("expected unknown principal counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{snapshot: passport.MetricsSnapshot{
		Counters: map[passport.MetricID]uint64{
			passport.MetricLoginSuccess:   1000,
			passport.MetricLoginFailure:   40,
			passport.MetricSessionCreated: 1000,
		},
		Histograms: map[passport.MetricID][]uint64{
			passport.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
		},
	}})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
