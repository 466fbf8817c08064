package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/roleandroll/internal/platform/timeouts"
	"github.com/louisbranch/roleandroll/internal/services/auth/session"
	mcpdomain "github.com/louisbranch/roleandroll/internal/services/mcp/domain"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/observability"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/sessioncookie"
)

// Config defines the inputs for the web API server.
type Config struct {
	HTTPAddr string
	// Scheme decides the Secure cookie flag and origin checks.
	Scheme requestmeta.SchemePolicy
	// Logger receives request logs; nil uses the standard logger.
	Logger *log.Logger
}

// Dependencies are the services behind the API routes. Optional services
// left nil answer 503 on their routes.
type Dependencies struct {
	Sessions    *session.Manager
	Users       UserReader
	SignIn      SignInService
	Marketplace MarketplaceService
	Payments    PaymentsService
	Rooms       RoomService
	Uploads     ImageUploader
	// DiceSeed supplies seeds for unseeded dice checks.
	DiceSeed mcpdomain.SeedFunc
}

type handler struct {
	config Config
	deps   Dependencies
}

// NewHandler builds the API handler with request id, panic recovery, request
// logging, viewer resolution and OpenTelemetry instrumentation.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if deps.Users == nil {
		return nil, errors.New("user reader is required")
	}
	if deps.Marketplace == nil {
		return nil, errors.New("marketplace service is required")
	}
	h := &handler{config: cfg, deps: deps}

	mux := http.NewServeMux()
	h.routes(mux)

	chained := httpx.Chain(mux,
		httpx.RequestID(),
		observability.RequestLogger(cfg.Logger),
		httpx.RecoverPanic(),
		httpx.RequireSameOrigin(cfg.Scheme, cookieAuthenticated),
		h.resolveViewer,
	)
	return otelhttp.NewHandler(chained, "web"), nil
}

// route registers fn under pattern and names the request span after the
// matched pattern.
func route(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		span.SetName(pattern)
		span.SetAttributes(attribute.String("http.route", pattern))
		fn(w, r)
	})
}

func (h *handler) routes(mux *http.ServeMux) {
	route(mux, "GET /healthz", h.handleHealth)

	route(mux, "GET /auth/google/start", h.handleGoogleStart)
	route(mux, "GET /auth/google/callback", h.handleGoogleCallback)
	route(mux, "POST /auth/logout", h.handleLogout)
	route(mux, "GET /api/me", h.requireViewer(h.handleMe))

	route(mux, "POST /api/sellers", h.requireViewer(h.handleRegisterSeller))
	route(mux, "POST /api/sellers/submit", h.requireViewer(h.handleSubmitSeller))
	route(mux, "GET /api/sellers/me", h.requireViewer(h.handleMySeller))
	route(mux, "GET /api/admin/sellers", h.requireAdmin(h.handleListSellers))
	route(mux, "POST /api/admin/sellers/{userID}/approve", h.requireAdmin(h.handleApproveSeller))
	route(mux, "POST /api/admin/sellers/{userID}/reject", h.requireAdmin(h.handleRejectSeller))

	route(mux, "GET /api/campaigns", h.handleListCampaigns)
	route(mux, "POST /api/campaigns", h.requireViewer(h.handleCreateCampaign))
	route(mux, "GET /api/campaigns/{id}", h.handleGetCampaign)
	route(mux, "POST /api/campaigns/{id}/publish", h.requireViewer(h.handlePublishCampaign))
	route(mux, "POST /api/campaigns/{id}/archive", h.requireViewer(h.handleArchiveCampaign))
	route(mux, "GET /api/items", h.handleListItems)
	route(mux, "POST /api/items", h.requireViewer(h.handleCreateItem))

	route(mux, "POST /api/checkout/campaigns/{id}", h.requireViewer(h.handleCheckout(listingCampaign)))
	route(mux, "POST /api/checkout/items/{id}", h.requireViewer(h.handleCheckout(listingItem)))
	route(mux, "POST /api/webhooks/stripe", h.handleStripeWebhook)
	route(mux, "GET /api/me/purchases", h.requireViewer(h.handleMyPurchases))

	route(mux, "POST /api/rooms/{id}/voice-token", h.requireViewer(h.handleVoiceToken))
	route(mux, "GET /api/rooms/{id}/turns", h.requireViewer(h.handleListTurns))
	route(mux, "POST /api/rooms/{id}/turns", h.requireViewer(h.handlePlayTurn))

	route(mux, "POST /api/dice/check", h.handleDiceCheck)
	route(mux, "POST /api/uploads/images", h.requireViewer(h.handleUploadImage))

	route(mux, "GET /api/admin/config", h.requireAdmin(h.handleGetConfig))
	route(mux, "PUT /api/admin/config", h.requireAdmin(h.handleUpdateConfig))
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cookieAuthenticated reports whether a request authenticates with the
// session cookie rather than a bearer header; only those need origin proof.
func cookieAuthenticated(r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("Authorization")) != "" {
		return false
	}
	_, ok := sessioncookie.Read(r)
	return ok
}

// Server hosts the web API.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewServer builds the HTTP server for cfg.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build web handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("web api listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
