package gateway

import (
	"log/slog"
	"net/http"
	"strings"

	"authgate/internal/domain"
	"authgate/internal/identity"
	"authgate/internal/middleware"
)

// Handler runs the authenticated forwarding pipeline for one request:
// credential extraction, identity resolution, group lookup, header
// enrichment, backend dispatch. CORS and trace correlation are handled by
// middleware before the request reaches here.
type Handler struct {
	identities     domain.IdentityProvider
	groups         domain.GroupResolver
	enricher       *Enricher
	registry       *Registry
	proxy          *Proxy
	allowAnonymous bool
	logger         *slog.Logger
}

// NewHandler wires the pipeline. When allowAnonymous is true a request
// without a bearer credential is forwarded without identity headers instead
// of being rejected.
func NewHandler(identities domain.IdentityProvider, groups domain.GroupResolver, enricher *Enricher, registry *Registry, proxy *Proxy, allowAnonymous bool, logger *slog.Logger) *Handler {
	return &Handler{
		identities:     identities,
		groups:         groups,
		enricher:       enricher,
		registry:       registry,
		proxy:          proxy,
		allowAnonymous: allowAnonymous,
		logger:         logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)

	var ident *domain.AccountIdentity
	var groupList []domain.Group

	token, err := identity.BearerToken(r.Header)
	switch {
	case err == nil:
		ident, err = h.identities.Resolve(ctx, token)
		if err != nil {
			WriteError(w, h.logger, requestID, err)
			return
		}

		// A nil list means no verified claim was obtained (resolution failed
		// or no directory is configured) and the groups header is omitted; a
		// verified empty membership arrives as a non-nil empty slice and is
		// forwarded as [].
		groupList, err = h.groups.GroupsFor(ctx, ident.ID)
		if err != nil {
			// Group resolution is best effort: the backend still gets the
			// identity, just no groups header.
			h.logger.Warn("group resolution failed",
				slog.String("request_id", requestID),
				slog.String("account_id", ident.ID),
				slog.String("error", err.Error()))
			groupList = nil
		}

	case h.allowAnonymous:
		// Forward without identity; the enricher strips any client-supplied
		// X-Auth-* headers so anonymity is visible to the backend.

	default:
		WriteError(w, h.logger, requestID, err)
		return
	}

	service := firstPathSegment(r.URL.Path)
	base, err := h.registry.Lookup(service)
	if err != nil {
		WriteError(w, h.logger, requestID, err)
		return
	}

	headers := h.enricher.Enrich(r.Header, ident, groupList, requestID)
	if err := h.proxy.Forward(ctx, w, r, base, headers); err != nil {
		WriteError(w, h.logger, requestID, err)
	}
}

// firstPathSegment returns the route name from a request path: the text
// between the leading slash and the next one. "/svc1/things?x=1" -> "svc1".
func firstPathSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	segment, _, _ := strings.Cut(trimmed, "/")
	return segment
}
