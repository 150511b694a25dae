package gcp

import (
	"context"

	"golang.org/x/oauth2"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"

	"authgate/internal/domain"
)

// GroupReadonlyScope is the OAuth scope the directory client needs.
const GroupReadonlyScope = admin.AdminDirectoryGroupReadonlyScope

// DirectoryClient lists a member's groups through the Admin SDK Directory
// API. It implements domain.GroupDirectory.
type DirectoryClient struct {
	svc    *admin.Service
	domain string
}

// NewDirectoryClient builds a directory client scoped to the given
// workspace domain. A nil token source is allowed when opts already carry
// an authenticated or test HTTP client.
func NewDirectoryClient(ctx context.Context, ts oauth2.TokenSource, workspaceDomain string, opts ...option.ClientOption) (*DirectoryClient, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &DirectoryClient{svc: svc, domain: workspaceDomain}, nil
}

// ListGroups returns every group in the configured domain that accountID is
// a member of. Pagination is handled transparently; a transport or API
// failure surfaces as an upstream error. The slice is non-nil on success,
// so a verified empty membership stays distinguishable from no lookup.
func (c *DirectoryClient) ListGroups(ctx context.Context, accountID string) ([]domain.Group, error) {
	call := c.svc.Groups.List().UserKey(accountID).Domain(c.domain)

	groups := []domain.Group{}
	err := call.Pages(ctx, func(page *admin.Groups) error {
		for _, g := range page.Groups {
			groups = append(groups, domain.Group{Email: g.Email, Description: g.Description})
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrUpstream("directory service", err)
	}
	return groups, nil
}
