package telemetry

import (
	"context"
	"math"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "movieshell"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestClampSampleRate(t *testing.T) {
	tests := map[float64]float64{
		0:          0,
		0.5:        0.5,
		1:          1,
		-0.1:       DefaultSampleRate,
		1.5:        DefaultSampleRate,
		math.NaN(): DefaultSampleRate,
	}
	for in, want := range tests {
		if got := ClampSampleRate(in); got != want {
			t.Fatalf("ClampSampleRate(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestExporterTarget(t *testing.T) {
	tests := []struct {
		in       string
		host     string
		insecure bool
	}{
		{"", "", true},
		{"otel:4318", "otel:4318", true},
		{"http://otel:4318", "otel:4318", true},
		{"https://collector.example.com", "collector.example.com", false},
		{"http://", "", true},
	}
	for _, tc := range tests {
		host, insecure := exporterTarget(tc.in)
		if host != tc.host || insecure != tc.insecure {
			t.Fatalf("exporterTarget(%q) = %q, %v", tc.in, host, insecure)
		}
	}
}
