package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

func TestInitTracerDisabled(t *testing.T) {
	tracer, closeFn, err := InitTracer(Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if _, ok := tracer.(opentracing.NoopTracer); !ok {
		t.Fatalf("tracer = %T, want NoopTracer", tracer)
	}
	closeFn()
}

func TestInitTracerEnabled(t *testing.T) {
	prev := opentracing.GlobalTracer()
	defer opentracing.SetGlobalTracer(prev)

	tracer, closeFn, err := InitTracer(Config{Enabled: true, Host: "127.0.0.1", Port: 6831}, zap.NewNop())
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer closeFn()

	if opentracing.GlobalTracer() != tracer {
		t.Fatal("global tracer not replaced")
	}
	span := tracer.StartSpan("test")
	span.Finish()
}
