package otel

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ATTENDANCE_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("ATTENDANCE_OTEL_ENABLED", "true")
	t.Setenv("ATTENDANCE_OTEL_SAMPLE_RATIO", "0.5")

	shutdown, err := Setup(context.Background(), "test-service", ScheduleAttributes("Australia/Sydney", "sunday")...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_RejectsBadSampleRatio(t *testing.T) {
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("ATTENDANCE_OTEL_SAMPLE_RATIO", "half")

	if _, err := Setup(context.Background(), "test-service"); err == nil {
		t.Fatal("expected config error")
	}
}

func TestResourceCarriesScheduleAttributes(t *testing.T) {
	res, err := newResource(context.Background(), Config{Environment: "staging"}, "attendance",
		ScheduleAttributes(" Australia/Sydney ", "Sunday"))
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	want := map[attribute.Key]string{
		"service.name":               "attendance",
		"deployment.environment":     "staging",
		"attendance.timezone":        "Australia/Sydney",
		"attendance.session_weekday": "sunday",
	}
	set := res.Set()
	for key, value := range want {
		got, ok := set.Value(key)
		if !ok || got.AsString() != value {
			t.Fatalf("%s = %q, want %q", key, got.AsString(), value)
		}
	}
	if version, ok := set.Value("service.version"); !ok || version.AsString() == "" {
		t.Fatal("expected service.version")
	}
}

func TestScheduleAttributesSkipsBlank(t *testing.T) {
	if attrs := ScheduleAttributes(" ", ""); len(attrs) != 0 {
		t.Fatalf("attrs = %v, want none", attrs)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "root:AlwaysOnSampler"},
		{ratio: 2, want: "root:AlwaysOnSampler"},
		{ratio: 0, want: "root:AlwaysOffSampler"},
		{ratio: 0.25, want: "root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Fatalf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}
