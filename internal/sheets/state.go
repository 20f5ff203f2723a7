package sheets

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ActivationRow is one record in the activations tab.
type ActivationRow struct {
	APIKey        string
	TeamID        string
	Label         string
	Active        bool
	CreatedAt     string
	RevokedAt     string
	ValidationKey string
}

// ActivationState is what the activations tab yields at startup.
type ActivationState struct {
	APIKeys     map[string]string
	UsedKeys    []string
	RevokedKeys []string
}

// ValidationKeyState is what the validation_keys tab yields at startup.
type ValidationKeyState struct {
	Keys    map[string]string
	Expires map[string]int64
	Revoked []string
}

func (c *Client) AppendGameRow(ctx context.Context, row []string) (int, error) {
	return c.AppendRow(ctx, c.ranges.Games, row)
}

func (c *Client) UpdateGameRow(ctx context.Context, rowIndex int, row []string) error {
	return c.UpdateRow(ctx, c.ranges.Games, rowIndex, row)
}

// AppendStreamEvent records an attached POV stream as a timestamped row
// with a compact JSON payload column.
func (c *Client) AppendStreamEvent(ctx context.Context, teamID, eventType string, payload map[string]string) (int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		teamID,
		eventType,
		string(encoded),
	}
	return c.AppendRow(ctx, c.ranges.Streams, row)
}

func (c *Client) AppendActivationRow(ctx context.Context, rec ActivationRow) (int, error) {
	row := []string{
		rec.APIKey,
		rec.TeamID,
		rec.Label,
		strconv.FormatBool(rec.Active),
		rec.CreatedAt,
		rec.RevokedAt,
		rec.ValidationKey,
	}
	return c.AppendRow(ctx, c.ranges.Activations, row)
}

func (c *Client) AppendDedupeRow(ctx context.Context, dedupeKey, createdAt string) (int, error) {
	return c.AppendRow(ctx, c.ranges.Dedupe, []string{dedupeKey, createdAt})
}

func (c *Client) AppendTeamRow(ctx context.Context, teamID, tricode, name, league string) (int, error) {
	return c.AppendRow(ctx, c.ranges.Teams, []string{teamID, tricode, name, league})
}

func (c *Client) AppendPlayerRow(ctx context.Context, playerID, teamID, role, name string) (int, error) {
	return c.AppendRow(ctx, c.ranges.Players, []string{playerID, teamID, role, name})
}

// LoadActivationState rebuilds the bearer table and used-key set from the
// activations tab.
func (c *Client) LoadActivationState(ctx context.Context) ActivationState {
	return parseActivationState(c.ReadRows(ctx, c.ranges.Activations))
}

// parseActivationState interprets activations rows. Row shape: api_key,
// team_id, label, active, created_at, revoked_at, validation_key.
func parseActivationState(rows [][]string) ActivationState {
	state := ActivationState{APIKeys: make(map[string]string)}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		apiKey, teamID := row[0], row[1]
		label := cell(row, 2)
		active := true
		if len(row) > 3 {
			active = strings.EqualFold(row[3], "true")
		}
		revokedAt := cell(row, 5)
		validationKey := cell(row, 6)
		if active && apiKey != "" && teamID != "" {
			state.APIKeys[apiKey] = teamID
		}
		if validationKey != "" {
			state.UsedKeys = append(state.UsedKeys, validationKey)
		}
		if label == "revoked" || revokedAt != "" {
			state.RevokedKeys = append(state.RevokedKeys, apiKey)
		}
	}
	return state
}

// LoadValidationKeys rebuilds the activation key tables from the
// validation_keys tab.
func (c *Client) LoadValidationKeys(ctx context.Context) ValidationKeyState {
	return parseValidationKeys(c.ReadRows(ctx, c.ranges.ValidationKeys))
}

// parseValidationKeys interprets validation_keys rows. Row shape: key,
// team_id, expires, revoked.
func parseValidationKeys(rows [][]string) ValidationKeyState {
	state := ValidationKeyState{
		Keys:    make(map[string]string),
		Expires: make(map[string]int64),
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key, teamID := row[0], row[1]
		if key == "" || teamID == "" {
			continue
		}
		state.Keys[key] = teamID
		if raw := cell(row, 2); raw != "" {
			at, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				log.Warn().Str("key", key).Msg("invalid expires value for validation key")
			} else {
				state.Expires[key] = at
			}
		}
		if strings.EqualFold(cell(row, 3), "true") {
			state.Revoked = append(state.Revoked, key)
		}
	}
	return state
}

// LoadDedupeKeys returns every persisted dedupe key.
func (c *Client) LoadDedupeKeys(ctx context.Context) []string {
	return parseDedupeKeys(c.ReadRows(ctx, c.ranges.Dedupe))
}

func parseDedupeKeys(rows [][]string) []string {
	var keys []string
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		keys = append(keys, row[0])
	}
	return keys
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
