package web

import (
	"errors"
	"log"
	"net/http"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	"github.com/louisbranch/roleandroll/internal/services/auth/storage"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/sessioncookie"
)

var (
	errSignInRequired = apperrors.New(apperrors.CodeUnauthenticated, "sign in required")
	errAdminRequired  = apperrors.New(apperrors.CodePermissionDenied, "admin role required")
)

// resolveViewer attaches the signed-in viewer to the request context.
// Missing, expired or revoked sessions leave the request anonymous.
func (h *handler) resolveViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := sessioncookie.Token(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := h.deps.Sessions.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		u, err := h.deps.Users.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				log.Printf("resolve session user failed user_id=%s err=%v", claims.UserID, err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := requestctx.WithViewer(r.Context(), requestctx.Viewer{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.DisplayName,
			Admin:  u.IsAdmin(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type viewerHandler func(http.ResponseWriter, *http.Request, requestctx.Viewer)

func (h *handler) requireViewer(fn viewerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := requestctx.ViewerFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, r, errSignInRequired)
			return
		}
		fn(w, r, viewer)
	}
}

func (h *handler) requireAdmin(fn viewerHandler) http.HandlerFunc {
	return h.requireViewer(func(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
		if !viewer.Admin {
			httpx.WriteError(w, r, errAdminRequired)
			return
		}
		fn(w, r, viewer)
	})
}

func (h *handler) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if h.deps.SignIn == nil {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeUnavailable, "sign-in is not configured"))
		return
	}
	target, err := h.deps.SignIn.Start(r.Context(), r.URL.Query().Get("redirect"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.deps.SignIn == nil {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeUnavailable, "sign-in is not configured"))
		return
	}
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		log.Printf("google sign-in declined err=%s", providerErr)
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "sign-in was cancelled"))
		return
	}
	u, redirectPath, err := h.deps.SignIn.Complete(r.Context(), query.Get("state"), query.Get("code"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	token, err := h.deps.Sessions.Issue(u.ID, string(u.Role))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sessioncookie.Write(w, r, token.Value, token.ExpiresAt, h.config.Scheme)
	log.Printf("user signed in user_id=%s", u.ID)
	http.Redirect(w, r, redirectPath, http.StatusFound)
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r, h.config.Scheme)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	u, err := h.deps.Users.GetUser(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, userView(u))
}
