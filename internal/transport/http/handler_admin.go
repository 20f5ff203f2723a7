package httptransport

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// CreateTeam provisions a team record in the teams tab. Admin bearer only.
func (h *Handlers) CreateTeam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamCreateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID := newID()
		if _, err := h.store.AppendTeamRow(r.Context(), teamID, req.TeamTricode, req.TeamName, req.League); err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "failed to write team to sheets")
			return
		}
		log.Info().Str("team", teamID).Str("tricode", req.TeamTricode).Msg("team created")
		writeJSON(w, TeamCreateResponse{TeamID: teamID})
	}
}

// CreatePlayer provisions a player record in the players tab. Admin bearer
// only.
func (h *Handlers) CreatePlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerCreateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		playerID := newID()
		if _, err := h.store.AppendPlayerRow(r.Context(), playerID, req.TeamTricode, req.Role, req.PlayerName); err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "failed to write player to sheets")
			return
		}
		log.Info().Str("player", playerID).Str("tricode", req.TeamTricode).Msg("player created")
		writeJSON(w, PlayerCreateResponse{PlayerID: playerID})
	}
}
