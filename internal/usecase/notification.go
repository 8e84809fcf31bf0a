package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultAlertCooldown = 5 * time.Minute

// PushSender delivers a notification to a set of device tokens.
type PushSender interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// ChatSender posts a plain text message to a chat.
type ChatSender interface {
	Send(text string) error
}

// TokenSource lists registered device tokens.
type TokenSource interface {
	GetAllTokens() []string
}

// AlertNotifier watches published snapshots and alerts when a symbol leaves
// NEUTRAL for a directional bias.
type AlertNotifier struct {
	snapshots domain.SnapshotRepository
	signals   domain.SignalRepository
	tokens    TokenSource
	push      PushSender
	chat      ChatSender
	cooldown  time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu            sync.Mutex
	lastBias      map[string]domain.Bias
	notifiedCoins map[string]time.Time
}

// NewAlertNotifier builds a notifier. push and chat may be nil.
func NewAlertNotifier(snapshots domain.SnapshotRepository, signals domain.SignalRepository, tokens TokenSource, push PushSender, chat ChatSender, cooldown time.Duration, log *zap.Logger) *AlertNotifier {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AlertNotifier{
		snapshots:     snapshots,
		signals:       signals,
		tokens:        tokens,
		push:          push,
		chat:          chat,
		cooldown:      cooldown,
		log:           log.Named("notifier"),
		now:           time.Now,
		lastBias:      make(map[string]domain.Bias),
		notifiedCoins: make(map[string]time.Time),
	}
}

func (n *AlertNotifier) Run(ctx context.Context) error {
	ch, cancel := n.snapshots.Subscribe(1)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			n.Handle(ctx, snap)
		}
	}
}

// Handle compares snap against the previous biases and alerts on every new
// directional call outside its cooldown. It returns the recorded signals.
func (n *AlertNotifier) Handle(ctx context.Context, snap domain.Snapshot) []domain.SignalEvent {
	now := n.now()

	n.mu.Lock()
	var fired []domain.SignalEvent
	for _, st := range snap.Symbols {
		prev, seen := n.lastBias[st.Symbol]
		n.lastBias[st.Symbol] = st.Bias
		if seen && prev != domain.BiasNeutral {
			continue
		}
		if st.Bias == domain.BiasNeutral {
			continue
		}
		if last, ok := n.notifiedCoins[st.Symbol]; ok && now.Sub(last) < n.cooldown {
			continue
		}
		n.notifiedCoins[st.Symbol] = now
		fired = append(fired, domain.SignalEvent{
			ID:         uuid.NewString(),
			Symbol:     st.Symbol,
			Mode:       snap.Mode,
			Bias:       st.Bias,
			Note:       st.Note,
			Scores:     st.Scores,
			Price:      st.Price,
			Change24h:  st.Change24h,
			OccurredAt: now,
		})
	}

	for symbol, ts := range n.notifiedCoins {
		if now.Sub(ts) > n.cooldown*2 {
			delete(n.notifiedCoins, symbol)
		}
	}
	n.mu.Unlock()

	for _, ev := range fired {
		n.deliver(ctx, ev)
	}
	return fired
}

func (n *AlertNotifier) deliver(ctx context.Context, ev domain.SignalEvent) {
	log := n.log.With(zap.String("symbol", ev.Symbol), zap.String("bias", string(ev.Bias)))

	if err := n.signals.Record(ctx, ev); err != nil {
		log.Warn("record signal failed", zap.Error(err))
	}
	metrics.AlertsTotal.WithLabelValues(string(ev.Bias), "journal").Inc()

	title, body := alertText(ev)

	if n.push != nil && n.push.IsEnabled() {
		if tokens := n.tokens.GetAllTokens(); len(tokens) > 0 {
			data := map[string]string{
				"id":     ev.ID,
				"symbol": ev.Symbol,
				"bias":   string(ev.Bias),
				"mode":   string(ev.Mode),
				"price":  fmt.Sprintf("%.5f", ev.Price),
			}
			if err := n.push.SendMulticast(ctx, tokens, title, body, data); err != nil {
				log.Warn("push notification failed", zap.Error(err))
			} else {
				metrics.AlertsTotal.WithLabelValues(string(ev.Bias), "fcm").Inc()
				log.Info("push notification sent", zap.Int("devices", len(tokens)))
			}
		}
	}

	if n.chat != nil {
		if err := n.chat.Send(title + "\n" + body); err != nil {
			log.Warn("telegram notification failed", zap.Error(err))
		} else {
			metrics.AlertsTotal.WithLabelValues(string(ev.Bias), "telegram").Inc()
		}
	}
}

func alertText(ev domain.SignalEvent) (title, body string) {
	display := strings.TrimSuffix(ev.Symbol, "USDT")
	title = fmt.Sprintf("%s %s - %s", display, ev.Bias, ev.Note)
	body = fmt.Sprintf("M1 %d | M2 %d | M3 %d | Price: $%.5f | Change: %.2f%% | %s",
		ev.Scores.Mode1, ev.Scores.Mode2, ev.Scores.Mode3, ev.Price, ev.Change24h, ev.Mode)
	return title, body
}
