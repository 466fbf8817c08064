package web

import (
	"net/http"

	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

type siteConfigRequest struct {
	FeeBasisPoints *int  `json:"fee_bps"`
	Maintenance    *bool `json:"maintenance"`
}

func (h *handler) handleGetConfig(w http.ResponseWriter, r *http.Request, _ requestctx.Viewer) {
	cfg, err := h.deps.Marketplace.SiteConfig(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, siteConfigView(cfg))
}

func (h *handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	var req siteConfigRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	cfg, err := h.deps.Marketplace.UpdateSiteConfig(r.Context(), viewer.UserID, domain.SiteConfigPatch{
		FeeBasisPoints: req.FeeBasisPoints,
		Maintenance:    req.Maintenance,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, siteConfigView(cfg))
}
