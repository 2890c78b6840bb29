package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/storyforge-backend/internal/platform/envutil"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiErrors   *CounterVec

	stageRuns     *CounterVec
	stageLatency  *HistogramVec
	stageUnits    *CounterVec
	generatorCall *CounterVec
	generatorTime *HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil until Init runs with metrics enabled. All methods accept a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			return
		}
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("storyforge_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("storyforge_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight: NewGauge("storyforge_api_inflight_requests", "HTTP requests currently being served."),
		apiErrors:   NewCounterVec("storyforge_api_server_errors_total", "HTTP 5xx responses by route.", []string{"route"}),

		stageRuns: NewCounterVec("storyforge_stage_runs_total", "Stage executions by stage and outcome.", []string{"stage", "outcome"}),
		stageLatency: NewHistogramVec("storyforge_stage_duration_seconds", "Wall time of one stage execution.", []string{"stage"},
			[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}),
		stageUnits:    NewCounterVec("storyforge_stage_units_total", "Units finished per stage by status.", []string{"stage", "status"}),
		generatorCall: NewCounterVec("storyforge_generator_calls_total", "Generative model calls by kind and outcome.", []string{"kind", "outcome"}),
		generatorTime: NewHistogramVec("storyforge_generator_call_duration_seconds", "Generative model call latency.", []string{"kind"},
			[]float64{0.5, 1, 2, 5, 10, 20, 40, 80}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.stageRuns, m.stageLatency, m.stageUnits,
		m.generatorCall, m.generatorTime,
	}
	for _, c := range writers {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
	if isServerErrorStatus(status) {
		m.apiErrors.Inc(route)
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveStage records one stage run. unitStatuses maps a unit status to how many units ended in it.
func (m *Metrics) ObserveStage(stage, outcome string, dur time.Duration, unitStatuses map[string]int) {
	if m == nil {
		return
	}
	m.stageRuns.Inc(stage, outcome)
	m.stageLatency.Observe(dur.Seconds(), stage)
	for status, n := range unitStatuses {
		if n > 0 {
			m.stageUnits.Add(float64(n), stage, status)
		}
	}
}

// ObserveGenerator records one model call; kind is text, image or audio.
func (m *Metrics) ObserveGenerator(kind string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.generatorCall.Inc(kind, outcome)
	m.generatorTime.Observe(dur.Seconds(), kind)
}
