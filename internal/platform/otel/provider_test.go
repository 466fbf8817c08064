package otel

import (
	"context"
	"strings"
	"testing"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("ROLEANDROLL_OTEL_ENDPOINT", "")
	t.Setenv("ROLEANDROLL_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("ROLEANDROLL_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ROLEANDROLL_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	t.Setenv("ROLEANDROLL_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("ROLEANDROLL_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSamplerFallsBackToAlwaysSample(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", "AlwaysOnSampler"},
		{"garbage", "half", "AlwaysOnSampler"},
		{"out of range", "1.5", "AlwaysOnSampler"},
		{"ratio", "0.25", "ParentBased{root:TraceIDRatioBased{0.25},"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ROLEANDROLL_OTEL_SAMPLE_RATIO", tt.value)
			if got := sampler().Description(); !strings.HasPrefix(got, tt.want) {
				t.Fatalf("sampler = %q, want %q", got, tt.want)
			}
		})
	}
}
