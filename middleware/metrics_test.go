package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/performs/middleware"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func stringAttrs(set attribute.Set) map[string]string {
	out := make(map[string]string)
	for _, a := range set.ToSlice() {
		if a.Value.Type() == attribute.STRING {
			out[string(a.Key)] = a.Value.AsString()
		}
	}
	return out
}

func runMetrics(t *testing.T, handlerErr error) metricdata.ResourceMetrics {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := middleware.MetricsWithMeter(mp.Meter("test"))

	err := m(context.Background(), newJob("Article.PublishJob"), func(context.Context) error {
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected %v, got %v", handlerErr, err)
	}
	return collectMetrics(t, reader)
}

func TestMetrics_RecordsDuration(t *testing.T) {
	rm := runMetrics(t, nil)

	m := findMetric(rm, "performs.job.duration")
	if m == nil {
		t.Fatal("performs.job.duration metric not found")
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", m.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("expected one data point with count 1, got %+v", hist.DataPoints)
	}
}

func TestMetrics_ExecutionStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"ok", nil, "ok"},
		{"error", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := runMetrics(t, tt.err)

			m := findMetric(rm, "performs.job.executions")
			if m == nil {
				t.Fatal("performs.job.executions metric not found")
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("expected one Sum[int64] data point, got %T", m.Data)
			}
			attrs := stringAttrs(sum.DataPoints[0].Attributes)
			want := map[string]string{
				"job_name": "Article.PublishJob",
				"queue":    "default",
				"status":   tt.status,
			}
			for k, v := range want {
				if attrs[k] != v {
					t.Errorf("attribute %q = %q, want %q", k, attrs[k], v)
				}
			}
		})
	}
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	called := false
	err := middleware.Metrics()(context.Background(), newJob("noop"), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}
