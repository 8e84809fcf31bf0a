package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New("debug", format)
		if err != nil {
			t.Fatalf("New(debug, %s): %v", format, err)
		}
		if !l.Core().Enabled(zap.DebugLevel) {
			t.Fatalf("%s logger drops debug", format)
		}
	}

	l, err := New("WARN", "json")
	if err != nil {
		t.Fatalf("New(WARN): %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Fatal("warn logger accepts info")
	}

	if _, err := New("verbose", "json"); err == nil {
		t.Fatal("unknown level accepted")
	}
}

func TestGlobalLogger(t *testing.T) {
	if L() == nil {
		t.Fatal("L() nil before Init")
	}
	Init(zap.NewNop())
	Info("ready", zap.String("k", "v"))
	Sync()
}
