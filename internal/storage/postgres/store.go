package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityFarm/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pair         TEXT PRIMARY KEY,
	token_low    TEXT NOT NULL,
	token_high   TEXT NOT NULL,
	custody      TEXT NOT NULL,
	reserve_low  NUMERIC(78, 0) NOT NULL,
	reserve_high NUMERIC(78, 0) NOT NULL,
	total_shares NUMERIC(78, 0) NOT NULL,
	block_number BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS positions (
	pair         TEXT NOT NULL,
	user_address TEXT NOT NULL,
	shares       NUMERIC(78, 0) NOT NULL,
	reward_debt  NUMERIC(78, 0) NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pair, user_address)
);
CREATE TABLE IF NOT EXISTS engine_events (
	id           BIGSERIAL PRIMARY KEY,
	block_number BIGINT NOT NULL,
	event_name   TEXT NOT NULL,
	pair         TEXT NOT NULL DEFAULT '',
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sim_state (
	name          TEXT PRIMARY KEY,
	steps_applied BIGINT NOT NULL,
	block_number  BIGINT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pools, positions, events and run state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool reserves as of block.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot, block uint64) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pair, token_low, token_high, custody, reserve_low, reserve_high, total_shares, block_number, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, now(), now())
			ON CONFLICT (pair)
			DO UPDATE SET
				reserve_low = EXCLUDED.reserve_low,
				reserve_high = EXCLUDED.reserve_high,
				total_shares = EXCLUDED.total_shares,
				block_number = GREATEST(pools.block_number, EXCLUDED.block_number),
				updated_at = now()
		`,
			pool.Pair,
			pool.TokenLow,
			pool.TokenHigh,
			pool.Custody,
			pool.ReserveLow,
			pool.ReserveHigh,
			pool.TotalShares,
			int64(block),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertPositions inserts or updates user positions.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.PositionSnapshot) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pos := range positions {
		batch.Queue(`
			INSERT INTO positions (pair, user_address, shares, reward_debt, updated_at)
			VALUES ($1, $2, $3::numeric, $4::numeric, now())
			ON CONFLICT (pair, user_address)
			DO UPDATE SET
				shares = EXCLUDED.shares,
				reward_debt = EXCLUDED.reward_debt,
				updated_at = now()
		`,
			pos.Pair,
			pos.User,
			pos.Shares,
			pos.RewardDebt,
		)
	}
	return s.sendBatch(ctx, batch, len(positions))
}

// PutEventBatch appends engine events.
func (s *Store) PutEventBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event.Name, err)
		}
		batch.Queue(`
			INSERT INTO engine_events (block_number, event_name, pair, payload, created_at)
			VALUES ($1, $2, $3, $4::jsonb, now())
		`,
			int64(event.Block),
			event.Name,
			event.Pair,
			string(payload),
		)
	}
	return s.sendBatch(ctx, batch, len(events))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the steps applied and block reached by a named run.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, uint64, bool, error) {
	if name == "" {
		return 0, 0, false, fmt.Errorf("state name required")
	}
	var applied, block int64
	row := s.pool.QueryRow(ctx, `SELECT steps_applied, block_number FROM sim_state WHERE name=$1`, name)
	if err := row.Scan(&applied, &block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return uint64(applied), uint64(block), true, nil
}

// SaveState upserts the progress of a named run.
func (s *Store) SaveState(ctx context.Context, name string, applied, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_state (name, steps_applied, block_number, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET steps_applied = EXCLUDED.steps_applied, block_number = EXCLUDED.block_number, updated_at = now()
	`, name, int64(applied), int64(block))
	return err
}
