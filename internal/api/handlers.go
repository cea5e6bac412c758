package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kaiju-arena/internal/combat"
)

const (
	defaultHealAmount = 20
	maxEventsPerPage  = 500
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.arena.Snapshot()
	if snap == nil {
		writeJSON(w, &combat.Snapshot{Combatants: []combat.CombatantSnapshot{}})
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.arena.Snapshot()
	stats := map[string]interface{}{
		"round":      snap.Round,
		"state":      snap.State,
		"combatants": len(snap.Combatants),
		"aliveCount": snap.AliveCount,
		"teamsAlive": snap.TeamsAlive(),
		"lastRound":  snap.LastRound.Seconds(),
	}
	if h.events != nil {
		stats["events"] = h.events.Stats()
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleListCombatants(w http.ResponseWriter, r *http.Request) {
	snap := h.arena.Snapshot()
	team := r.URL.Query().Get("team")
	aliveOnly := r.URL.Query().Get("alive") == "true"

	var want combat.Team
	if team != "" {
		t, err := combat.ParseTeam(team)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		want = t
	}

	out := make([]combat.CombatantSnapshot, 0, len(snap.Combatants))
	for _, c := range snap.Combatants {
		if team != "" && c.Team != want {
			continue
		}
		if aliveOnly && c.IsDead {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleGetCombatant(w http.ResponseWriter, r *http.Request) {
	c, ok := h.arena.Snapshot().Find(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "Combatant not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

// spawnRequest is a Spec plus an optional weapon. Unset tunables take the
// defaults of DefaultSpec.
type spawnRequest struct {
	combat.Spec
	Weapon *combat.AttackProfile `json:"weapon,omitempty"`
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	req := spawnRequest{Spec: combat.DefaultSpec("", combat.TeamNeutral)}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	c, err := h.arena.Spawn(req.Spec, req.Weapon)
	if err != nil {
		writeArenaError(w, err)
		return
	}
	w.Header().Set("Location", "/api/combatants/"+c.ID)
	writeJSONStatus(w, c, http.StatusCreated)
}

func (h *routerHandlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.arena.Remove(chi.URLParam(r, "id")); err != nil {
		writeArenaError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleHeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.Amount <= 0 {
		req.Amount = defaultHealAmount
	}

	healed, err := h.arena.Heal(chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeArenaError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": healed > 0, "healed": healed})
}

func (h *routerHandlers) handleRevive(w http.ResponseWriter, r *http.Request) {
	if err := h.arena.Revive(chi.URLParam(r, "id")); err != nil {
		writeArenaError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleEquip(w http.ResponseWriter, r *http.Request) {
	var p combat.AttackProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if p.BaseDamage < 0 || p.Range < 0 {
		writeError(w, "baseDamage and range must not be negative", http.StatusBadRequest)
		return
	}
	if err := h.arena.Equip(chi.URLParam(r, "id"), p); err != nil {
		writeArenaError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventsPerPage)
	}
	writeJSON(w, h.events.Recent(limit))
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, h.arena.Snapshot()); err != nil {
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, data, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, map[string]string{"error": message}, code)
}

// writeArenaError maps scheduler errors to HTTP status codes.
func writeArenaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, combat.ErrUnknownCombatant):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, combat.ErrDuplicateID):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, combat.ErrInvalidSpec):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
