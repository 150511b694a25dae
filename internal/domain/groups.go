package domain

import "time"

// Group is a single directory group membership, projected down to the two
// fields the gateway forwards. No other directory attributes are persisted.
type Group struct {
	Email       string `json:"email"`
	Description string `json:"description"`
}

// GroupSnapshot is the cached record of one account's resolved group
// memberships plus its refresh timestamp. At most one snapshot exists per
// account ID; a refresh fully replaces it, never partially updates it.
type GroupSnapshot struct {
	AccountID       string
	Groups          []Group
	LastRefreshedAt time.Time
}

// Age returns how long ago the snapshot was refreshed.
func (s *GroupSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.LastRefreshedAt)
}
