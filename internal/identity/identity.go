// Package identity extracts bearer credentials from requests and exchanges
// them for verified account identities at the provider's profile endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authgate/internal/domain"
)

// BearerToken pulls the bearer token out of the request headers. The
// Authorization lookup is case-insensitive; any scheme other than Bearer,
// or an absent header, yields a CredentialMissingError.
func BearerToken(h http.Header) (string, error) {
	auth := h.Get("Authorization")
	if auth == "" {
		return "", domain.ErrCredentialMissing("Authorization header not found.")
	}

	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", domain.ErrCredentialMissing("Authorization header not found.")
	}
	return strings.TrimSpace(token), nil
}

// Resolver validates bearer tokens against the identity provider's profile
// endpoint. One synchronous round trip per call, no retries: a transient
// provider failure propagates as an upstream error.
type Resolver struct {
	profileURL string
	client     *http.Client
}

// NewResolver creates a Resolver for the given profile endpoint.
// A nil client gets a default with a 10 second timeout.
func NewResolver(profileURL string, client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{profileURL: profileURL, client: client}
}

// profileResponse is the subset of the provider's userinfo payload the
// gateway consumes.
type profileResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Resolve exchanges token for a verified account identity. A non-2xx
// status, malformed JSON, or a missing account identifier all collapse to
// a CredentialInvalidError whose message leaks no provider detail.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.AccountIdentity, error) {
	endpoint := fmt.Sprintf("%s?alt=json&access_token=%s", r.profileURL, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.ErrUpstream("identity provider", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.ErrUpstream("identity provider", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrUpstream("identity provider", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.ErrCredentialInvalid("Account not found / token invalid.")
	}

	var profile profileResponse
	if err := json.Unmarshal(body, &profile); err != nil || profile.ID == "" {
		return nil, domain.ErrCredentialInvalid("Account not found / token invalid.")
	}

	return &domain.AccountIdentity{
		ID:       profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
		Picture:  profile.Picture,
		Provider: domain.ProviderGoogle,
	}, nil
}
