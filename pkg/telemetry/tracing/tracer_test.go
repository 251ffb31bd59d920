package tracing

import (
	"context"
	"testing"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tr, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tr.Enabled() {
		t.Error("tracer should report disabled")
	}

	ctx, span := tr.Start(context.Background(), "turn")
	if ctx == nil {
		t.Fatal("Start returned nil context")
	}
	if span.SpanContext().IsValid() {
		t.Error("noop span should not have a valid span context")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
