package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ionia-ingest/internal/auth"
	"ionia-ingest/internal/dedupe"
	"ionia-ingest/internal/session"
	"ionia-ingest/internal/sheets"
)

// RowStore is the slice of the sheets adapter the handlers use directly;
// the tracker persists game rows on its own.
type RowStore interface {
	Enabled() bool
	AppendActivationRow(ctx context.Context, rec sheets.ActivationRow) (int, error)
	AppendStreamEvent(ctx context.Context, teamID, eventType string, payload map[string]string) (int, error)
	AppendDedupeRow(ctx context.Context, dedupeKey, createdAt string) (int, error)
	AppendTeamRow(ctx context.Context, teamID, tricode, name, league string) (int, error)
	AppendPlayerRow(ctx context.Context, playerID, teamID, role, name string) (int, error)
}

// Handlers carries the shared state every endpoint operates on. All of it
// is constructed once in main and passed down; no package globals.
type Handlers struct {
	keyring *auth.Keyring
	tracker *session.Tracker
	dedupe  *dedupe.Registry
	store   RowStore
}

func NewHandlers(keyring *auth.Keyring, tracker *session.Tracker, registry *dedupe.Registry, store RowStore) *Handlers {
	return &Handlers{keyring: keyring, tracker: tracker, dedupe: registry, store: store}
}

// Activate exchanges a one-time validation key for the team's bearer token.
func (h *Handlers) Activate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ActivationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, err := h.keyring.ValidateActivation(req.ValidationKey)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, err.Error())
			return
		}
		bearer := h.keyring.IssueOrReuse(teamID)
		log.Info().Str("team", teamID).Str("machine", req.MachineFingerprint).Msg("activation ok")
		_, err = h.store.AppendActivationRow(r.Context(), sheets.ActivationRow{
			APIKey:        bearer,
			TeamID:        teamID,
			Label:         "activation",
			Active:        true,
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			ValidationKey: req.ValidationKey,
		})
		if err != nil {
			WriteHTTPError(w, http.StatusBadGateway, "failed to write activation to sheets")
			return
		}
		writeJSON(w, ActivationResponse{Bearer: bearer, TeamID: teamID})
	}
}

// Heartbeat is a read-only probe for the team's live session.
func (h *Handlers) Heartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HeartbeatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		teamID, _ := TeamFromContext(r.Context())
		log.Info().Str("team", teamID).Str("player", req.PlayerID).Str("role", req.Role).Msg("heartbeat")
		gameID, gameNumber, ok := h.tracker.Heartbeat(teamID)
		if !ok {
			writeJSON(w, GameSessionResponse{Status: "ok", Message: "no ongoing game"})
			return
		}
		writeJSON(w, GameSessionResponse{Status: "ok", GameID: gameID, GameNumber: gameNumber})
	}
}

// Health is a public liveness probe.
func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "sheets": h.store.Enabled()})
	}
}
