package usecase

import (
	"context"
	"sync"

	"hunter-backend/internal/domain"

	"go.uber.org/zap"
)

// ContextSwitcher applies a new scoring context to the store.
type ContextSwitcher interface {
	SwitchContext(ctx context.Context, sc domain.ScoringContext) error
}

// ModeController owns the active scoring mode.
type ModeController struct {
	engine ContextSwitcher
	log    *zap.Logger

	mu   sync.Mutex
	mode domain.Mode
}

func NewModeController(initial domain.Mode, engine ContextSwitcher, log *zap.Logger) *ModeController {
	if _, err := domain.ParseMode(string(initial)); err != nil {
		initial = domain.ModeScalping
	}
	return &ModeController{engine: engine, log: log.Named("mode"), mode: initial}
}

func (c *ModeController) Mode() domain.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches to mode. Setting the active mode again is a no-op.
func (c *ModeController) SetMode(ctx context.Context, mode domain.Mode) error {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == c.mode {
		return nil
	}
	if err := c.engine.SwitchContext(ctx, domain.NewScoringContext(mode)); err != nil {
		return err
	}
	c.log.Info("mode changed", zap.String("from", string(c.mode)), zap.String("to", string(mode)))
	c.mode = mode
	return nil
}

// Toggle flips between scalping and intraday and returns the new mode.
func (c *ModeController) Toggle(ctx context.Context) (domain.Mode, error) {
	next := domain.ModeIntraday
	if c.Mode() == domain.ModeIntraday {
		next = domain.ModeScalping
	}
	if err := c.SetMode(ctx, next); err != nil {
		return c.Mode(), err
	}
	return next, nil
}
