package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Request schemas. Each validates its own shape; failures surface as 422
// before any business logic runs.

type ActivationRequest struct {
	ValidationKey      string `json:"validation_key"`
	MachineFingerprint string `json:"machine_fingerprint"`
	AppVersion         string `json:"app_version"`
}

func (r ActivationRequest) validate() error {
	switch {
	case r.ValidationKey == "":
		return errors.New("validation_key is required")
	case r.MachineFingerprint == "":
		return errors.New("machine_fingerprint is required")
	case r.AppVersion == "":
		return errors.New("app_version is required")
	}
	return nil
}

type HeartbeatRequest struct {
	PlayerID string `json:"player_id"`
	Role     string `json:"role"`
	Version  string `json:"version"`
}

func (r HeartbeatRequest) validate() error {
	switch {
	case r.PlayerID == "":
		return errors.New("player_id is required")
	case r.Role == "":
		return errors.New("role is required")
	case r.Version == "":
		return errors.New("version is required")
	}
	return nil
}

type ChampSelectStartRequest struct {
	Date         string `json:"date"`
	OppositeTeam string `json:"opposite_team"`
	Patch        string `json:"patch"`
	TR           string `json:"tr"`
	Side         string `json:"side"`
}

func (r ChampSelectStartRequest) validate() error {
	switch {
	case r.Date == "":
		return errors.New("date is required")
	case r.OppositeTeam == "":
		return errors.New("opposite_team is required")
	case r.Patch == "":
		return errors.New("patch is required")
	case r.TR == "":
		return errors.New("tr is required")
	case r.Side == "":
		return errors.New("side is required")
	}
	return nil
}

type DraftCompleteRequest struct {
	GameID string            `json:"game_id"`
	Draft  map[string]string `json:"draft"`
}

func (r DraftCompleteRequest) validate() error {
	if r.GameID == "" {
		return errors.New("game_id is required")
	}
	if r.Draft == nil {
		return errors.New("draft is required")
	}
	return nil
}

type GameStartRequest struct {
	GameID    string            `json:"game_id"`
	Positions map[string]string `json:"positions"`
}

func (r GameStartRequest) validate() error {
	if r.GameID == "" {
		return errors.New("game_id is required")
	}
	if r.Positions == nil {
		return errors.New("positions is required")
	}
	return nil
}

type GameFinishedRequest struct {
	GameID string `json:"game_id"`
	Win    string `json:"win"`
}

func (r GameFinishedRequest) validate() error {
	if r.GameID == "" {
		return errors.New("game_id is required")
	}
	if r.Win == "" {
		return errors.New("win is required")
	}
	return nil
}

var streamRoles = map[string]struct{}{
	"TOP": {}, "JUNGLE": {}, "MID": {}, "ADC": {}, "SUPPORT": {}, "GLOBAL": {},
}

var streamPlatforms = map[string]struct{}{
	"server": {}, "youtube": {},
}

type StreamReadyRequest struct {
	GameID   string `json:"game_id"`
	Role     string `json:"role"`
	VodURL   string `json:"vod_url"`
	Platform string `json:"platform"`
	PlayerID string `json:"player_id,omitempty"`
}

func (r StreamReadyRequest) validate() error {
	if r.GameID == "" {
		return errors.New("game_id is required")
	}
	if _, ok := streamRoles[r.Role]; !ok {
		return errors.New("invalid role")
	}
	if r.VodURL == "" {
		return errors.New("vod_url is required")
	}
	if _, ok := streamPlatforms[r.Platform]; !ok {
		return errors.New("invalid platform")
	}
	return nil
}

type TeamCreateRequest struct {
	TeamTricode string `json:"team_tricode"`
	TeamName    string `json:"team_name"`
	League      string `json:"league"`
}

func (r TeamCreateRequest) validate() error {
	switch {
	case r.TeamTricode == "":
		return errors.New("team_tricode is required")
	case r.TeamName == "":
		return errors.New("team_name is required")
	case r.League == "":
		return errors.New("league is required")
	}
	return nil
}

type PlayerCreateRequest struct {
	TeamTricode string `json:"team_tricode"`
	Role        string `json:"role"`
	PlayerName  string `json:"player_name"`
}

func (r PlayerCreateRequest) validate() error {
	switch {
	case r.TeamTricode == "":
		return errors.New("team_tricode is required")
	case r.Role == "":
		return errors.New("role is required")
	case r.PlayerName == "":
		return errors.New("player_name is required")
	}
	return nil
}

// Response schemas.

type Ack struct {
	Status string `json:"status"`
}

func okAck() Ack { return Ack{Status: "ok"} }

type ActivationResponse struct {
	Bearer string `json:"bearer"`
	TeamID string `json:"team_id"`
}

type GameSessionResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	GameID     string `json:"game_id,omitempty"`
	GameNumber int    `json:"game_number,omitempty"`
}

type GameIDResponse struct {
	GameID string `json:"game_id"`
}

type TeamCreateResponse struct {
	TeamID string `json:"team_id"`
}

type PlayerCreateResponse struct {
	PlayerID string `json:"player_id"`
}

type validatable interface {
	validate() error
}

// decodeBody decodes and validates a request body, writing the 422 itself
// when the shape is wrong. Returns false once the response is committed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteHTTPError(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	if err := dst.validate(); err != nil {
		WriteHTTPError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
