package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/taskduel/taskduel/internal/challenge"
)

// Handler serves the WebSocket connect endpoint for duels.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler creates a WebSocket handler backed by the orchestrator.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

// HandleDuelConnection validates that the connecting account has exactly one
// live challenge and joins it to the challenge's duel group. Zero or multiple
// matching challenges refuse the connection before the upgrade.
func (h *Handler) HandleDuelConnection(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is required", http.StatusBadRequest)
		return
	}

	ch, err := h.orchestrator.store.LiveChallengeByAccount(r.Context(), accountID)
	switch {
	case errors.Is(err, challenge.ErrNotFound):
		http.Error(w, "no live challenge for account", http.StatusNotFound)
		return
	case errors.Is(err, challenge.ErrAmbiguous):
		http.Error(w, "ambiguous live challenge for account", http.StatusConflict)
		return
	case err != nil:
		log.Error().Err(err).Str("account_id", accountID).Msg("challenge lookup failed")
		http.Error(w, "challenge lookup failed", http.StatusInternalServerError)
		return
	}

	if err := h.orchestrator.manager.UpgradeConnection(w, r, accountID, ch); err != nil {
		// The upgrader has already written its own error response.
		log.Error().
			Err(err).
			Str("account_id", accountID).
			Str("duel_id", ch.ID.String()).
			Msg("failed to upgrade duel connection")
	}
}

// HandleConnectionStats reports active connection counts.
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, duels := h.orchestrator.manager.ConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": total,
		"active_duels":      duels,
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/duel", h.HandleDuelConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
