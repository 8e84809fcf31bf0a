package usecase

import (
	"context"
	"errors"
	"testing"

	"hunter-backend/internal/domain"

	"go.uber.org/zap"
)

type fakeSwitcher struct {
	switched []domain.ScoringContext
	err      error
}

func (s *fakeSwitcher) SwitchContext(_ context.Context, sc domain.ScoringContext) error {
	if s.err != nil {
		return s.err
	}
	s.switched = append(s.switched, sc)
	return nil
}

func TestModeControllerSetMode(t *testing.T) {
	sw := &fakeSwitcher{}
	c := NewModeController(domain.ModeScalping, sw, zap.NewNop())
	ctx := context.Background()

	if err := c.SetMode(ctx, domain.ModeScalping); err != nil || len(sw.switched) != 0 {
		t.Fatalf("same mode: err %v switches %d", err, len(sw.switched))
	}

	if err := c.SetMode(ctx, domain.ModeIntraday); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if c.Mode() != domain.ModeIntraday || len(sw.switched) != 1 {
		t.Fatalf("mode %s switches %d", c.Mode(), len(sw.switched))
	}
	if got := sw.switched[0].Config.Timeframes.Trend; got != domain.Timeframe1h {
		t.Fatalf("intraday trend timeframe = %s", got)
	}

	err := c.SetMode(ctx, domain.Mode("swing"))
	if !errors.Is(err, domain.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
	if c.Mode() != domain.ModeIntraday {
		t.Fatalf("mode changed on error: %s", c.Mode())
	}
}

func TestModeControllerToggle(t *testing.T) {
	sw := &fakeSwitcher{}
	c := NewModeController("", sw, zap.NewNop())
	ctx := context.Background()

	if c.Mode() != domain.ModeScalping {
		t.Fatalf("default mode = %s", c.Mode())
	}
	for _, want := range []domain.Mode{domain.ModeIntraday, domain.ModeScalping} {
		got, err := c.Toggle(ctx)
		if err != nil || got != want {
			t.Fatalf("Toggle = %s, %v; want %s", got, err, want)
		}
	}

	sw.err = context.Canceled
	if got, err := c.Toggle(ctx); err == nil || got != domain.ModeScalping {
		t.Fatalf("failed toggle = %s, %v", got, err)
	}
}
