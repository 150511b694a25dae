// Package repository implements persistence for group membership snapshots.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"authgate/internal/db"
	"authgate/internal/domain"
)

// SnapshotRepo stores group membership snapshots in the SQLite cache table.
// One row per account id; timestamps are stored as unix milliseconds.
//
// If a read reports the cache table as missing, the repo bootstraps the
// schema once (via the embedded migrations) and retries the read exactly
// once before giving up.
type SnapshotRepo struct {
	db        *sql.DB
	bootstrap sync.Once
}

// NewSnapshotRepo creates a SnapshotRepo backed by the given pool.
func NewSnapshotRepo(sqlDB *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: sqlDB}
}

// Get returns the snapshot for accountID, or nil when absent.
func (r *SnapshotRepo) Get(ctx context.Context, accountID string) (*domain.GroupSnapshot, error) {
	snap, err := r.get(ctx, accountID)
	if err != nil && isMissingSchema(err) {
		var bootErr error
		r.bootstrap.Do(func() { bootErr = db.RunMigrations(r.db) })
		if bootErr != nil {
			return nil, fmt.Errorf("bootstrap cache schema: %w", bootErr)
		}
		snap, err = r.get(ctx, accountID)
	}
	return snap, err
}

func (r *SnapshotRepo) get(ctx context.Context, accountID string) (*domain.GroupSnapshot, error) {
	var (
		raw      []byte
		updateMs int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT response, last_update_datetime FROM group_cache WHERE account_id = ?`,
		accountID,
	).Scan(&raw, &updateMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	var groups []domain.Group
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", accountID, err)
	}

	return &domain.GroupSnapshot{
		AccountID:       accountID,
		Groups:          groups,
		LastRefreshedAt: time.UnixMilli(updateMs),
	}, nil
}

// Put inserts or fully replaces the snapshot for its account id.
// Concurrent writers may race; last write wins.
func (r *SnapshotRepo) Put(ctx context.Context, snap *domain.GroupSnapshot) error {
	raw, err := json.Marshal(snap.Groups)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", snap.AccountID, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO group_cache (account_id, response, last_update_datetime) VALUES (?, ?, ?)`,
		snap.AccountID, raw, snap.LastRefreshedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for accountID. Deleting an absent row is a no-op.
func (r *SnapshotRepo) Delete(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM group_cache WHERE account_id = ?`, accountID,
	); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// isMissingSchema reports whether err is SQLite's complaint about the cache
// table not existing yet.
func isMissingSchema(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
