package telemetry

import (
	"context"
	"testing"
)

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		in       string
		target   string
		insecure bool
		wantErr  bool
	}{
		{in: "localhost:4317", target: "localhost:4317", insecure: true},
		{in: "http://collector:4317/v1/traces", target: "collector:4317", insecure: true},
		{in: "https://collector:4317", target: "collector:4317", insecure: false},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			target, insecure, err := grpcTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcTarget: %v", err)
			}
			if target != tt.target || insecure != tt.insecure {
				t.Fatalf("got (%q, %v), want (%q, %v)", target, insecure, tt.target, tt.insecure)
			}
		})
	}
}

func TestNewTracerProviderWithoutEndpoint(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(context.Background(), "", "user-service")
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
