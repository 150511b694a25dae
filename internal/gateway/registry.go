// Package gateway implements the request pipeline: credential check,
// identity resolution, group lookup, header enrichment, and forwarding to
// the backend named by the first path segment.
package gateway

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"authgate/internal/domain"
)

// Registry maps a route name (the first path segment) to a backend base URL.
// It is built once at startup and read-only afterwards.
type Registry struct {
	backends map[string]*url.URL
}

// backendsFile is the YAML shape of the registry file:
//
//	backends:
//	  svc1: http://svc1.internal:8080
//	  svc2: https://svc2.internal
type backendsFile struct {
	Backends map[string]string `yaml:"backends"`
}

// LoadRegistry builds the registry from the YAML file at path (if it
// exists) merged with BACKEND_<NAME> environment variables. Env entries
// override file entries of the same name. Every base URL must be an
// absolute http or https URL.
func LoadRegistry(path string, environ []string) (*Registry, error) {
	entries := map[string]string{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read backends file: %w", err)
		}
		if err == nil {
			var file backendsFile
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return nil, fmt.Errorf("parse backends file %s: %w", path, err)
			}
			for name, base := range file.Backends {
				entries[name] = base
			}
		}
	}

	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(key, "BACKEND_") {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, "BACKEND_"))
		if name == "" {
			continue
		}
		entries[name] = value
	}

	backends := make(map[string]*url.URL, len(entries))
	for name, base := range entries {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("backend with empty name")
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("backend %s: invalid URL %q: %w", name, base, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("backend %s: %q is not an absolute http(s) URL", name, base)
		}
		backends[name] = u
	}

	return &Registry{backends: backends}, nil
}

// Lookup returns the base URL bound to name, or an UnboundServiceError.
func (r *Registry) Lookup(name string) (*url.URL, error) {
	u, ok := r.backends[name]
	if !ok {
		return nil, &domain.UnboundServiceError{Service: name}
	}
	return u, nil
}

// Names returns the registered backend names, sorted, for startup logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
