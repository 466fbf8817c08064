package web

import (
	"net/http"

	mcpdomain "github.com/louisbranch/roleandroll/internal/services/mcp/domain"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

// handleDiceCheck resolves a standalone ability check. It needs no session
// so table tools can roll without an account.
func (h *handler) handleDiceCheck(w http.ResponseWriter, r *http.Request) {
	var input mcpdomain.AbilityCheckInput
	if err := httpx.DecodeJSON(w, r, &input, 64<<10); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := mcpdomain.CheckAbility(input, h.deps.DiceSeed)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}
