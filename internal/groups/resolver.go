// Package groups resolves group memberships through a read-through SQLite
// cache in front of the directory service.
package groups

import (
	"context"
	"log/slog"
	"time"

	"authgate/internal/domain"
)

// CachedResolver answers group lookups from the snapshot store when a fresh
// snapshot exists, and refreshes from the directory otherwise.
//
// Expiry is lazy: nothing evicts in the background. A snapshot older than
// ttl is still served to the request that finds it, and deleted on the way
// out, so the next request for that account refreshes from the directory.
type CachedResolver struct {
	directory domain.GroupDirectory
	store     domain.SnapshotStore
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCachedResolver wires a resolver over the given directory and store.
// A non-positive ttl falls back to five minutes.
func NewCachedResolver(directory domain.GroupDirectory, store domain.SnapshotStore, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{
		directory: directory,
		store:     store,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// GroupsFor returns the account's group memberships.
//
// Cache read failures are not fatal: the lookup falls through to the
// directory so a corrupt or unavailable cache degrades to slower requests,
// not failed ones. Directory failures on a miss do propagate.
func (r *CachedResolver) GroupsFor(ctx context.Context, accountID string) ([]domain.Group, error) {
	snap, err := r.store.Get(ctx, accountID)
	if err != nil {
		r.logger.Warn("group cache read failed, falling through to directory",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()))
		snap = nil
	}

	if snap != nil {
		if snap.Age(r.now()) <= r.ttl {
			return snap.Groups, nil
		}
		// Stale snapshot: serve it one last time, drop it so the next
		// request refreshes.
		if err := r.store.Delete(ctx, accountID); err != nil {
			r.logger.Warn("stale snapshot delete failed",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()))
		}
		return snap.Groups, nil
	}

	return r.refresh(ctx, accountID)
}

func (r *CachedResolver) refresh(ctx context.Context, accountID string) ([]domain.Group, error) {
	groups, err := r.directory.ListGroups(ctx, accountID)
	if err != nil {
		return nil, err
	}

	snap := &domain.GroupSnapshot{
		AccountID:       accountID,
		Groups:          groups,
		LastRefreshedAt: r.now(),
	}
	if err := r.store.Put(ctx, snap); err != nil {
		// The answer is already in hand; a write failure only costs the
		// next request a directory round trip.
		r.logger.Warn("group snapshot write failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()))
	}
	return groups, nil
}
