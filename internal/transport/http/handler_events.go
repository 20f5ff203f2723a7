package httptransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ionia-ingest/internal/dedupe"
	"ionia-ingest/internal/session"
)

// ChampSelectStart opens the team's session, or echoes the existing one.
func (h *Handlers) ChampSelectStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChampSelectStartRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		res, err := h.tracker.StartDraft(r.Context(), teamID, session.StartParams{
			Date:         req.Date,
			OppositeTeam: req.OppositeTeam,
			Patch:        req.Patch,
			TR:           req.TR,
			Side:         req.Side,
		})
		if err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "failed to write game row to sheets")
			return
		}
		resp := GameSessionResponse{Status: "ok", GameID: res.GameID, GameNumber: res.GameNumber}
		if res.AlreadyActive {
			resp.Message = "game already active"
		}
		writeJSON(w, resp)
	}
}

// DraftComplete merges a richer draft payload into the session row.
func (h *Handlers) DraftComplete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DraftCompleteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		if err := h.tracker.CompleteDraft(r.Context(), teamID, req.GameID, req.Draft); err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, GameIDResponse{GameID: req.GameID})
	}
}

// GameStart records lane assignments. Dedupe-guarded: one accepted event
// per team+game.
func (h *Handlers) GameStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameStartRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		if !h.tracker.HasActiveGame(teamID, req.GameID) {
			WriteHTTPError(w, http.StatusBadRequest, "no active game for team")
			return
		}
		key := dedupe.Key(teamID, "game_start", req.GameID)
		if h.dedupe.CheckAndMark(key) {
			WriteHTTPError(w, http.StatusConflict, "duplicate event")
			return
		}
		log.Info().Str("team", teamID).Str("game", req.GameID).Msg("game_start")
		if err := h.tracker.RecordPositions(r.Context(), teamID, req.GameID, req.Positions); err != nil {
			h.dedupe.Forget(key)
			writeTrackerError(w, err)
			return
		}
		h.persistDedupeKey(r, key)
		writeJSON(w, okAck())
	}
}

// GameFinished records the outcome and closes the session. Dedupe-guarded.
func (h *Handlers) GameFinished() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameFinishedRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		if !h.tracker.HasActiveGame(teamID, req.GameID) {
			WriteHTTPError(w, http.StatusBadRequest, "no active game for team")
			return
		}
		key := dedupe.Key(teamID, "game_finished", req.GameID)
		if h.dedupe.CheckAndMark(key) {
			WriteHTTPError(w, http.StatusConflict, "duplicate event")
			return
		}
		if err := h.tracker.FinishGame(r.Context(), teamID, req.GameID, req.Win); err != nil {
			h.dedupe.Forget(key)
			writeTrackerError(w, err)
			return
		}
		h.persistDedupeKey(r, key)
		writeJSON(w, okAck())
	}
}

// StreamReady attaches a POV stream to a game. Dedupe-guarded per team,
// game, and role; no session required since streams may land after the
// game finished.
func (h *Handlers) StreamReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StreamReadyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		key := dedupe.Key(teamID, "stream_ready", req.GameID, req.Role)
		if h.dedupe.CheckAndMark(key) {
			WriteHTTPError(w, http.StatusConflict, "duplicate event")
			return
		}
		log.Info().Str("team", teamID).Str("game", req.GameID).Str("role", req.Role).Msg("stream_ready")
		_, err := h.store.AppendStreamEvent(r.Context(), teamID, "stream_ready", map[string]string{
			"game_id":   req.GameID,
			"role":      req.Role,
			"vod_url":   req.VodURL,
			"platform":  req.Platform,
			"player_id": req.PlayerID,
		})
		if err != nil {
			h.dedupe.Forget(key)
			WriteHTTPError(w, http.StatusBadGateway, "failed to write stream row to sheets")
			return
		}
		h.persistDedupeKey(r, key)
		writeJSON(w, okAck())
	}
}

// persistDedupeKey mirrors the in-memory barrier to the dedupe tab so it
// survives a restart. Best effort: the event itself already committed.
func (h *Handlers) persistDedupeKey(r *http.Request, key string) {
	if _, err := h.store.AppendDedupeRow(r.Context(), key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("persist dedupe key failed")
	}
}

func writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveGame):
		WriteHTTPError(w, http.StatusBadRequest, "no active game for team")
	case errors.Is(err, session.ErrUpdateFailed):
		WriteHTTPError(w, http.StatusBadGateway, "failed to update game row in sheets")
	default:
		WriteHTTPError(w, http.StatusBadGateway, "failed to write game row to sheets")
	}
}
