package repository

import (
	"context"
	"fmt"

	"hunter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSignalRepository journals signals in the signal_events table.
type PostgresSignalRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSignalRepository(pool *pgxpool.Pool) *PostgresSignalRepository {
	return &PostgresSignalRepository{pool: pool}
}

func (r *PostgresSignalRepository) Record(ctx context.Context, ev domain.SignalEvent) error {
	_, err := r.pool.Exec(ctx, `
		insert into signal_events(
			id, symbol, mode, bias, note,
			score_mode1, score_mode2, score_mode3,
			price, change_24h, occurred_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		on conflict (id) do nothing
	`,
		ev.ID,
		ev.Symbol,
		string(ev.Mode),
		string(ev.Bias),
		ev.Note,
		ev.Scores.Mode1,
		ev.Scores.Mode2,
		ev.Scores.Mode3,
		ev.Price,
		ev.Change24h,
		ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", ev.ID, err)
	}
	return nil
}

func (r *PostgresSignalRepository) Recent(ctx context.Context, limit int) ([]domain.SignalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		select id, symbol, mode, bias, note,
			score_mode1, score_mode2, score_mode3,
			price, change_24h, occurred_at
		from signal_events
		order by occurred_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	events := make([]domain.SignalEvent, 0, limit)
	for rows.Next() {
		ev, err := scanSignalEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanSignalEvent(row pgx.Row) (domain.SignalEvent, error) {
	var (
		ev         domain.SignalEvent
		mode, bias string
	)
	err := row.Scan(
		&ev.ID,
		&ev.Symbol,
		&mode,
		&bias,
		&ev.Note,
		&ev.Scores.Mode1,
		&ev.Scores.Mode2,
		&ev.Scores.Mode3,
		&ev.Price,
		&ev.Change24h,
		&ev.OccurredAt,
	)
	if err != nil {
		return domain.SignalEvent{}, fmt.Errorf("scan signal: %w", err)
	}
	ev.Mode = domain.Mode(mode)
	ev.Bias = domain.Bias(bias)
	return ev, nil
}
