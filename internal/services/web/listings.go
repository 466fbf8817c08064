package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

type campaignRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Scene       string     `json:"scene"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Capacity    int        `json:"capacity"`
	DiceSystem  string     `json:"dice_system"`
	StartsAt    *time.Time `json:"starts_at"`
	ImageURL    string     `json:"image_url"`
}

type itemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url"`
}

type campaignDetailJSON struct {
	campaignJSON
	SeatsLeft int `json:"seats_left"`
}

// handleListCampaigns pages published campaigns. With mine=true a signed-in
// seller sees all of their own campaigns, drafts included.
func (h *handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var sellerID string
	if mine, _ := strconv.ParseBool(query.Get("mine")); mine {
		viewer, ok := requestctx.ViewerFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, r, errSignInRequired)
			return
		}
		sellerID = viewer.UserID
	}
	pageSize, err := pageSizeParam(query.Get("page_size"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := h.deps.Marketplace.ListCampaigns(r.Context(), sellerID, pageSize, query.Get("page_token"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tag := priceTag(r.Header.Get("Accept-Language"))
	_ = httpx.WriteJSON(w, http.StatusOK, pageOf(page.Campaigns, page.NextPageToken, func(c domain.Campaign) campaignJSON {
		return campaignView(c, tag)
	}))
}

func (h *handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	var req campaignRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	campaign, err := h.deps.Marketplace.CreateCampaign(r.Context(), viewer.UserID, domain.CampaignInput{
		Title:       req.Title,
		Description: req.Description,
		Scene:       req.Scene,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Capacity:    req.Capacity,
		DiceSystem:  req.DiceSystem,
		StartsAt:    req.StartsAt,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, campaignView(campaign, priceTag(r.Header.Get("Accept-Language"))))
}

func (h *handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Marketplace.GetCampaign(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	detail := campaignDetailJSON{campaignJSON: campaignView(view.Campaign, priceTag(r.Header.Get("Accept-Language")))}
	seats := view.SeatsTaken
	detail.SeatsTaken = &seats
	detail.SeatsLeft = max(view.Campaign.Capacity-view.SeatsTaken, 0)
	_ = httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *handler) handlePublishCampaign(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	campaign, err := h.deps.Marketplace.PublishCampaign(r.Context(), viewer.UserID, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, campaignView(campaign, priceTag(r.Header.Get("Accept-Language"))))
}

func (h *handler) handleArchiveCampaign(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	campaign, err := h.deps.Marketplace.ArchiveCampaign(r.Context(), viewer.UserID, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, campaignView(campaign, priceTag(r.Header.Get("Accept-Language"))))
}

func (h *handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize, err := pageSizeParam(query.Get("page_size"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := h.deps.Marketplace.ListItems(r.Context(), strings.TrimSpace(query.Get("seller_id")), pageSize, query.Get("page_token"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tag := priceTag(r.Header.Get("Accept-Language"))
	_ = httpx.WriteJSON(w, http.StatusOK, pageOf(page.Items, page.NextPageToken, func(i domain.Item) itemJSON {
		return itemView(i, tag)
	}))
}

func (h *handler) handleCreateItem(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	var req itemRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	item, err := h.deps.Marketplace.CreateItem(r.Context(), viewer.UserID, domain.ItemInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, itemView(item, priceTag(r.Header.Get("Accept-Language"))))
}
