package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/qconnect/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) get(ctx context.Context, q dbx.DBTX, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) set(ctx context.Context, q dbx.DBTX, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO credentials (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set credentials[%s]: %w", key, err)
	}
	return nil
}

// Save writes all four session artifacts in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, s *PersistedSession) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.set(ctx, tx, KeyIDToken, s.IDToken); err != nil {
			return err
		}
		if err := r.set(ctx, tx, KeyUserSub, s.UserSub); err != nil {
			return err
		}
		if err := r.set(ctx, tx, KeyUserEmail, s.UserEmail); err != nil {
			return err
		}
		return r.set(ctx, tx, KeyRefreshToken, s.RefreshToken)
	})
}

// Load reads the stored session. If any of the four artifacts is missing or
// empty, Load returns (nil, nil): some-but-not-all is treated the same as
// nothing stored.
func (r *SQLiteRepository) Load(ctx context.Context) (*PersistedSession, error) {
	s := &PersistedSession{}

	fields := []struct {
		key string
		dst *string
	}{
		{KeyIDToken, &s.IDToken},
		{KeyUserSub, &s.UserSub},
		{KeyUserEmail, &s.UserEmail},
		{KeyRefreshToken, &s.RefreshToken},
	}

	for _, f := range fields {
		v, err := r.get(ctx, r.db, f.key)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, nil
		}
		*f.dst = v
	}
	return s, nil
}

// Clear removes all four artifacts in a single transaction. Clearing an
// empty store is a no-op.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (?, ?, ?, ?)`,
			KeyIDToken, KeyUserSub, KeyUserEmail, KeyRefreshToken)
		if err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
		return nil
	})
}
