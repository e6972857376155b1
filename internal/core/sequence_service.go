package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceService hands out strictly increasing numbers per named counter.
type SequenceService interface {
	// Next increments the counter in its own statement and commits immediately.
	// A caller whose transaction later fails burns the number; gaps are allowed.
	Next(ctx context.Context, name string) (int64, error)
	// NextTx increments the counter inside the caller's transaction. The counter
	// row stays locked until that transaction ends, so numbering is gapless but
	// concurrent callers of the same counter serialize.
	NextTx(ctx context.Context, tx pgx.Tx, name string) (int64, error)
}

type sequenceService struct {
	pool *pgxpool.Pool
}

func NewSequenceService(pool *pgxpool.Pool) SequenceService {
	return &sequenceService{pool: pool}
}

func (s *sequenceService) Next(ctx context.Context, name string) (int64, error) {
	return nextSequenceValue(ctx, s.pool, name)
}

func (s *sequenceService) NextTx(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	return nextSequenceValue(ctx, tx, name)
}

// nextSequenceValue is a single upsert: the first caller creates the row at 1,
// later callers take the row lock and increment. Only callers of the same
// counter contend.
func nextSequenceValue(ctx context.Context, q pgxQuerier, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("sequence name is required")
	}
	var value int64
	err := q.QueryRow(ctx, `
		INSERT INTO sequences (name, last_value)
		VALUES ($1, 1)
		ON CONFLICT (name)
		DO UPDATE SET last_value = sequences.last_value + 1
		RETURNING last_value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return value, nil
}
