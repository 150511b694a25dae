// Package gcp obtains service-level Google credentials and queries the
// Admin SDK Directory API for group memberships. The end user's bearer
// token is never used here; all calls run under the gateway's own
// service-account identity.
package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewServiceTokenSource parses credentialsJSON (a service-account key file)
// and returns a caching token source for the given OAuth scope, using the
// JWT bearer grant. The HTTP client for the token exchange comes from ctx
// (oauth2.HTTPClient), so tests can point it at a local endpoint via the
// key file's token_uri.
func NewServiceTokenSource(ctx context.Context, credentialsJSON []byte, scope string) (oauth2.TokenSource, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, scope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if conf.Email == "" || len(conf.PrivateKey) == 0 {
		return nil, fmt.Errorf("service account key missing client_email or private_key")
	}
	return conf.TokenSource(ctx), nil
}
