package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"authgate/internal/domain"
)

// Proxy forwards a request to a backend and streams the response back
// unchanged. No retries and no response rewriting; the gateway's own
// headers are already on the ResponseWriter before the backend's are added.
type Proxy struct {
	client *http.Client
}

// NewProxy creates a Proxy. A nil client gets a default without a global
// timeout; the request context governs cancellation.
func NewProxy(client *http.Client) *Proxy {
	if client == nil {
		client = &http.Client{}
	}
	return &Proxy{client: client}
}

// Forward sends r's method, body, and the given headers to the backend at
// base, preserving the original path and query, and copies the backend's
// status, headers, and body onto w. A transport failure before any byte is
// written surfaces as an upstream error.
func (p *Proxy) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, base *url.URL, headers http.Header) error {
	target := *base
	target.Path = joinPath(base.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return domain.ErrUpstream("backend", err)
	}
	out.Header = headers.Clone()
	out.Host = target.Host
	if r.ContentLength >= 0 {
		out.ContentLength = r.ContentLength
	}

	resp, err := p.client.Do(out)
	if err != nil {
		return domain.ErrUpstream("backend", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	dst := w.Header()
	for name, values := range resp.Header {
		// The gateway's own CORS headers are authoritative; copying a
		// backend's would duplicate them and browsers reject that.
		if strings.HasPrefix(name, "Access-Control-") {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	return nil
}

func joinPath(basePath, reqPath string) string {
	if basePath == "" || basePath == "/" {
		return reqPath
	}
	if basePath[len(basePath)-1] == '/' {
		basePath = basePath[:len(basePath)-1]
	}
	return basePath + reqPath
}
