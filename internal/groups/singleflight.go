package groups

import (
	"context"

	"golang.org/x/sync/singleflight"

	"authgate/internal/domain"
)

// SingleflightResolver wraps another resolver and collapses concurrent
// lookups for the same account into one in-flight call. Under a cold or
// just-expired cache this keeps a burst of requests for one account from
// fanning out into parallel directory fetches.
type SingleflightResolver struct {
	inner domain.GroupResolver
	group singleflight.Group
}

// NewSingleflightResolver wraps inner with per-account request coalescing.
func NewSingleflightResolver(inner domain.GroupResolver) *SingleflightResolver {
	return &SingleflightResolver{inner: inner}
}

// GroupsFor delegates to the inner resolver, sharing the result across
// callers that arrive while a lookup for the same account is in flight.
func (r *SingleflightResolver) GroupsFor(ctx context.Context, accountID string) ([]domain.Group, error) {
	v, err, _ := r.group.Do(accountID, func() (any, error) {
		return r.inner.GroupsFor(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Group), nil
}
