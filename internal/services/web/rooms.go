package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	roomapp "github.com/louisbranch/roleandroll/internal/services/room/app"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

var errRoomsUnavailable = apperrors.New(apperrors.CodeUnavailable, "rooms are not available")

type turnRequest struct {
	ActorName   string         `json:"actor_name"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	CheckType   string         `json:"check_type"`
	Scene       string         `json:"scene"`
	Abilities   map[string]int `json:"abilities"`
	Pool        int            `json:"pool"`
	Difficulty  *int           `json:"difficulty"`
}

type voiceTokenJSON struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Room      string    `json:"room"`
	ExpiresAt time.Time `json:"expires_at"`
}

func member(viewer requestctx.Viewer) roomapp.Member {
	return roomapp.Member{UserID: viewer.UserID, Name: viewer.Name}
}

func (h *handler) handleVoiceToken(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	if h.deps.Rooms == nil {
		httpx.WriteError(w, r, errRoomsUnavailable)
		return
	}
	token, err := h.deps.Rooms.VoiceToken(r.Context(), member(viewer), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, voiceTokenJSON{
		Token:     token.Token,
		URL:       token.URL,
		Room:      token.Room,
		ExpiresAt: token.ExpiresAt.UTC(),
	})
}

func (h *handler) handleListTurns(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	if h.deps.Rooms == nil {
		httpx.WriteError(w, r, errRoomsUnavailable)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "limit must be a positive number", map[string]string{"Field": "limit"}))
			return
		}
		limit = parsed
	}
	turns, err := h.deps.Rooms.Turns(r.Context(), viewer.UserID, r.PathValue("id"), limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, pageOf(turns, "", turnView))
}

func (h *handler) handlePlayTurn(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	if h.deps.Rooms == nil {
		httpx.WriteError(w, r, errRoomsUnavailable)
		return
	}
	var req turnRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	turn, err := h.deps.Rooms.PlayTurn(r.Context(), member(viewer), r.PathValue("id"), roomapp.TurnInput{
		ActorName:   req.ActorName,
		Kind:        req.Kind,
		Description: req.Description,
		CheckType:   req.CheckType,
		Scene:       req.Scene,
		Abilities:   req.Abilities,
		Pool:        req.Pool,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, turnView(turn))
}
