package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveStage("BLUEPRINT", "ok", time.Second, map[string]int{"succeeded": 1})
	m.ObserveGenerator("text", nil, time.Second)
	m.ApiInflightInc()
	m.ApiInflightDec()

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil metrics: want=503 got=%d", rec.Code)
	}
}

func TestMetricsWritePrometheus(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/workflows", "201", 20*time.Millisecond)
	m.ObserveAPI("POST", "/api/workflows/:id/advance", "502", time.Second)
	m.ObserveStage("EPISODE_CONTENT", "ok", 12*time.Second, map[string]int{"succeeded": 3, "failed": 0})
	m.ObserveGenerator("image", errors.New("refused"), 3*time.Second)

	if got := m.stageUnits.value("EPISODE_CONTENT", "succeeded"); got != 3 {
		t.Fatalf("stage units: want=3 got=%v", got)
	}
	if got := m.stageUnits.value("EPISODE_CONTENT", "failed"); got != 0 {
		t.Fatalf("zero counts should not be recorded, got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`storyforge_api_requests_total{method="POST",route="/api/workflows",status="201"} 1`,
		`storyforge_api_server_errors_total{route="/api/workflows/:id/advance"} 1`,
		`storyforge_stage_runs_total{stage="EPISODE_CONTENT",outcome="ok"} 1`,
		`storyforge_stage_duration_seconds_bucket{stage="EPISODE_CONTENT",le="15"} 1`,
		`storyforge_generator_calls_total{kind="image",outcome="error"} 1`,
		"# TYPE storyforge_api_inflight_requests gauge",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`a"b` + "\n"})
	if got != `{route="a\"b\n"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty")
	}
}
