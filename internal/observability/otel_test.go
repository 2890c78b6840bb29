package observability

import (
	"context"
	"testing"
)

func TestSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "abc": 0.1, "0.5": 0.5, "-1": 0, "3": 1}
	for in, want := range cases {
		if got := sampleRatio(in); got != want {
			t.Fatalf("sampleRatio(%q): want=%v got=%v", in, want, got)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders(" x-api-key = abc , broken, =v, k= ,trace=on")
	if len(h) != 2 || h["x-api-key"] != "abc" || h["trace"] != "on" {
		t.Fatalf("parseHeaders: got=%v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}

func TestInitOTelDisabledReturnsNoop(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown must not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
