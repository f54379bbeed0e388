package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/niksmo/product-explorer/internal/core/port"
)

var _ port.KeyValueStore = StateRepository{}

// A StateRepository keeps session state values in the session_state
// table.
type StateRepository struct {
	sqldb sqldb
}

func NewStateRepository(sqldb sqldb) StateRepository {
	return StateRepository{sqldb}
}

func (r StateRepository) Get(
	ctx context.Context, key string,
) ([]byte, bool, error) {
	const op = "StateRepository.Get"

	query := `SELECT value FROM session_state WHERE key = $1;`

	var v []byte
	err := r.sqldb.QueryRowContext(ctx, query, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return v, true, nil
}

func (r StateRepository) Set(ctx context.Context, key string, value []byte) error {
	const op = "StateRepository.Set"

	query := `
		INSERT INTO session_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now();`

	if _, err := r.sqldb.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r StateRepository) Delete(ctx context.Context, key string) error {
	const op = "StateRepository.Delete"

	query := `DELETE FROM session_state WHERE key = $1;`

	if _, err := r.sqldb.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
