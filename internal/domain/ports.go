package domain

import "context"

// IdentityProvider exchanges a bearer token for a verified account identity.
// Implemented by identity.Resolver.
type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (*AccountIdentity, error)
}

// GroupDirectory fetches an account's group memberships from the directory
// service using a service-level credential (never the end user's token).
// Implemented by gcp.DirectoryClient.
type GroupDirectory interface {
	ListGroups(ctx context.Context, accountID string) ([]Group, error)
}

// SnapshotStore is the persistent cache of group membership snapshots.
// It must support read-by-key, insert, and delete-by-key; no multi-row
// transactions are required. Implemented by repository.SnapshotRepo.
type SnapshotStore interface {
	Get(ctx context.Context, accountID string) (*GroupSnapshot, error)
	Put(ctx context.Context, snap *GroupSnapshot) error
	Delete(ctx context.Context, accountID string) error
}

// GroupResolver is the read-through group membership lookup the pipeline
// consumes. Implementations decide caching and refresh strategy; callers
// only see the resolved group list. A nil slice with a nil error means no
// membership claim was verified; a verified empty membership is a non-nil
// empty slice. Implemented by groups.CachedResolver and
// groups.SingleflightResolver.
type GroupResolver interface {
	GroupsFor(ctx context.Context, accountID string) ([]Group, error)
}
