package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/licensing-storefront/internal/db"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

type storageRepository struct {
	q       *db.Queries
	pool    *pgxpool.Pool
	profile string
}

// NewStorage returns a Postgres backed key/value store for one shopper profile.
func NewStorage(pool *pgxpool.Pool, profile string) (port.Storage, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	return &storageRepository{
		q:       db.New(pool),
		pool:    pool,
		profile: profile,
	}, nil
}

func NewStorageWithTx(tx pgx.Tx, profile string) (port.Storage, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	return &storageRepository{
		q:       db.New(tx),
		pool:    nil, // use provided transaction instead
		profile: profile,
	}, nil
}

func (r *storageRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("key is empty")
	}

	value, err := r.q.GetEntry(ctx, db.GetEntryParams{
		Profile: r.profile,
		Key:     key,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("q.GetEntry: %w", err)
	}

	return value, true, nil
}

func (r *storageRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	err := r.q.SetEntry(ctx, db.SetEntryParams{
		Profile: r.profile,
		Key:     key,
		Value:   value,
	})
	if err != nil {
		return fmt.Errorf("q.SetEntry: %w", err)
	}

	return nil
}

// Remove deletes all keys in one transaction.
func (r *storageRepository) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (int64, error) {
		var removed int64

		for _, key := range keys {
			if key == "" {
				return 0, fmt.Errorf("key is empty")
			}

			n, err := q.DeleteEntry(ctx, db.DeleteEntryParams{
				Profile: r.profile,
				Key:     key,
			})
			if err != nil {
				return 0, fmt.Errorf("q.DeleteEntry[%s]: %w", key, err)
			}
			removed += n
		}

		return removed, nil
	})

	return err
}
