package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the signal journal. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists signal_events (
			id text primary key,
			symbol text not null,
			mode text not null,
			bias text not null,
			note text not null default '',
			score_mode1 int not null default 0,
			score_mode2 int not null default 0,
			score_mode3 int not null default 0,
			price double precision not null default 0,
			change_24h double precision not null default 0,
			occurred_at timestamptz not null
		);`,
		`create index if not exists signal_events_occurred_at_idx on signal_events(occurred_at desc);`,
		`create index if not exists signal_events_symbol_occurred_at_idx on signal_events(symbol, occurred_at desc);`,
	}

	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
