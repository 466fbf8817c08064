package web

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	marketapp "github.com/louisbranch/roleandroll/internal/services/marketplace/app"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

type sellerRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) handleRegisterSeller(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	var req sellerRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	registration, err := h.deps.Marketplace.RegisterSeller(r.Context(),
		marketapp.SellerAccount{UserID: viewer.UserID, Email: viewer.Email},
		domain.SellerInput{DisplayName: req.DisplayName, Bio: req.Bio},
	)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	view := sellerView(registration.Profile)
	view.OnboardingURL = registration.OnboardingURL
	_ = httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *handler) handleSubmitSeller(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	profile, err := h.deps.Marketplace.SubmitSeller(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, sellerView(profile))
}

func (h *handler) handleMySeller(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	profile, err := h.deps.Marketplace.GetSeller(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, sellerView(profile))
}

func (h *handler) handleListSellers(w http.ResponseWriter, r *http.Request, _ requestctx.Viewer) {
	query := r.URL.Query()
	var status domain.SellerStatus
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		parsed, ok := domain.ParseSellerStatus(raw)
		if !ok {
			httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown seller status", map[string]string{"Field": "status"}))
			return
		}
		status = parsed
	}
	pageSize, err := pageSizeParam(query.Get("page_size"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := h.deps.Marketplace.ListSellers(r.Context(), status, pageSize, query.Get("page_token"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, pageOf(page.Sellers, page.NextPageToken, sellerView))
}

func (h *handler) handleApproveSeller(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	profile, err := h.deps.Marketplace.ApproveSeller(r.Context(), viewer.UserID, r.PathValue("userID"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, sellerView(profile))
}

func (h *handler) handleRejectSeller(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	var req rejectRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	profile, err := h.deps.Marketplace.RejectSeller(r.Context(), viewer.UserID, r.PathValue("userID"), req.Reason)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, sellerView(profile))
}

func pageSizeParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "page_size must be a positive number", map[string]string{"Field": "page_size"})
	}
	return size, nil
}
