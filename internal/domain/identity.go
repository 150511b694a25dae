// Package domain defines core types, interfaces, and errors for the gateway.
package domain

// Provider identifies the identity provider an account was verified against.
type Provider string

const (
	// ProviderGoogle is currently the only supported identity provider.
	ProviderGoogle Provider = "google"
)

// AccountIdentity is the verified identity behind a bearer token.
// It is produced fresh for every request and never persisted.
type AccountIdentity struct {
	// ID is the stable, provider-issued account identifier.
	ID       string
	Email    string
	Name     string
	Picture  string
	Provider Provider
}
