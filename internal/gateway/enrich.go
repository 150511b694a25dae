package gateway

import (
	"encoding/json"
	"net/http"

	"authgate/internal/domain"
)

// Trusted header names. The enricher deletes every one of these before
// setting its own values, so a client-supplied X-Auth-User can never reach
// a backend. Forgery protection is structural: the list is fixed, not
// derived from the incoming request.
const (
	headerAuthUser     = "X-Auth-User"
	headerAuthEmail    = "X-Auth-Email"
	headerAuthName     = "X-Auth-Name"
	headerAuthProfile  = "X-Auth-Profile"
	headerAuthProvider = "X-Auth-Provider"
	headerAuthGroups   = "X-Auth-Groups"
	headerSharedSecret = "X-Shared-Secret"
	headerRequestID    = "X-Request-ID"
)

var trustedHeaders = []string{
	headerAuthUser,
	headerAuthEmail,
	headerAuthName,
	headerAuthProfile,
	headerAuthProvider,
	headerAuthGroups,
	headerSharedSecret,
	headerRequestID,
}

// Enricher stamps the trusted header set onto outbound requests.
type Enricher struct {
	sharedSecret string
}

// NewEnricher returns an Enricher carrying the gateway's shared secret.
func NewEnricher(sharedSecret string) *Enricher {
	return &Enricher{sharedSecret: sharedSecret}
}

// Enrich returns a copy of h with the trusted headers replaced. Identity
// fields come from ident; groups marshals to a JSON array. A nil ident
// (anonymous request) leaves every X-Auth-* key unset; the shared secret
// and request id are stamped either way. A nil groups slice omits
// X-Auth-Groups entirely.
func (e *Enricher) Enrich(h http.Header, ident *domain.AccountIdentity, groups []domain.Group, requestID string) http.Header {
	out := h.Clone()
	for _, name := range trustedHeaders {
		out.Del(name)
	}

	if ident != nil {
		out.Set(headerAuthUser, ident.ID)
		out.Set(headerAuthEmail, ident.Email)
		out.Set(headerAuthName, ident.Name)
		out.Set(headerAuthProfile, ident.Picture)
		out.Set(headerAuthProvider, string(ident.Provider))
		if groups != nil {
			if encoded, err := json.Marshal(groups); err == nil {
				out.Set(headerAuthGroups, string(encoded))
			}
		}
	}

	if e.sharedSecret != "" {
		out.Set(headerSharedSecret, e.sharedSecret)
	}
	if requestID != "" {
		out.Set(headerRequestID, requestID)
	}
	return out
}
