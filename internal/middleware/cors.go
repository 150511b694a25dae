// Package middleware provides the HTTP middleware stack for the gateway:
// CORS origin policy, request IDs, rate limiting, and panic recovery.
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
)

// Fixed CORS response values. These are applied to every non-preflight
// response regardless of origin; rejection of disallowed origins happens
// only at preflight.
const (
	corsAllowMethods = "POST, GET, OPTIONS, DELETE, PUT"
	corsAllowHeaders = "Authorization, Content-Type"
)

// OriginPolicy evaluates request origins against a configured allow-list of
// regular expression patterns. It is immutable after construction.
type OriginPolicy struct {
	patterns []*regexp.Regexp
}

// NewOriginPolicy compiles the given patterns. An invalid pattern is a
// startup error, not a per-request one.
func NewOriginPolicy(patterns []string) (*OriginPolicy, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("origin pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &OriginPolicy{patterns: compiled}, nil
}

// Allowed reports whether origin matches any configured pattern.
// An absent (empty) origin matches only patterns that accept the empty
// string; same-origin requests are deliberately not special-cased.
func (p *OriginPolicy) Allowed(origin string) bool {
	for _, re := range p.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// Handler returns the CORS middleware. OPTIONS preflights are adjudicated
// and short-circuited here: disallowed origins get a 403 JSON body naming
// the origin with no CORS headers, allowed origins get an empty 204 with
// the full header set. All other requests pass through with the CORS
// headers pre-applied so that every response, including errors produced
// further down the stack, carries them.
func (p *OriginPolicy) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if r.Method == http.MethodOptions {
			if !p.Allowed(origin) {
				writeJSONMessage(w, http.StatusForbidden, fmt.Sprintf("CORS not supported -> %s", origin))
				return
			}
			setCORSHeaders(w.Header(), origin)
			if conn := r.Header.Get("Connection"); conn != "" {
				w.Header().Set("Connection", conn)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		setCORSHeaders(w.Header(), origin)
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
}
