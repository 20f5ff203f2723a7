// Package sheets is the boundary to the external tabular store. Every write
// retries with backoff; with no sheet configured the whole adapter degrades
// to success-shaped no-ops so the core logic runs without a live dependency.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"ionia-ingest/internal/config"
)

const (
	writeAttempts = 3
	backoffBase   = 250 * time.Millisecond
)

// Client wraps the spreadsheet values API for one sheet and its tab ranges.
type Client struct {
	sheetID string
	ranges  Ranges
	svc     *sheetsapi.Service
	enabled bool
}

// Ranges names the tab ranges each record kind lives in.
type Ranges struct {
	Games          string
	Streams        string
	Activations    string
	Dedupe         string
	ValidationKeys string
	Teams          string
	Players        string
}

// NewClient builds the adapter from configuration. Missing sheet id or
// credentials leaves it disabled; a client init failure does the same
// rather than failing startup.
func NewClient(ctx context.Context, cfg config.ServerConfig) *Client {
	c := &Client{
		sheetID: cfg.SheetID,
		ranges: Ranges{
			Games:          cfg.GamesRange,
			Streams:        cfg.StreamsRange,
			Activations:    cfg.ActivationsRange,
			Dedupe:         cfg.DedupeRange,
			ValidationKeys: cfg.ValidationKeysRange,
			Teams:          cfg.TeamsRange,
			Players:        cfg.PlayersRange,
		},
	}
	if cfg.SheetID == "" || (cfg.CredentialsJSON == "" && cfg.CredentialsFile == "") {
		log.Info().Msg("sheets writer disabled; missing sheet id or credentials")
		return c
	}

	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		log.Error().Err(err).Msg("sheets client init failed; writer disabled")
		return c
	}
	c.svc = svc
	c.enabled = true
	return c
}

// Enabled reports whether writes reach a live sheet.
func (c *Client) Enabled() bool {
	return c.enabled
}

// AppendRow appends one row to the given range and returns its row locator
// parsed from the append result. Disabled clients report success with no
// locator.
func (c *Client) AppendRow(ctx context.Context, rangeName string, row []string) (int, error) {
	if !c.enabled {
		return 0, nil
	}
	values := &sheetsapi.ValueRange{Values: [][]any{toCells(row)}}
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		resp, err := c.svc.Spreadsheets.Values.Append(c.sheetID, rangeName, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err == nil {
			updatedRange := ""
			if resp.Updates != nil {
				updatedRange = resp.Updates.UpdatedRange
			}
			return extractRowIndex(updatedRange), nil
		}
		lastErr = err
		log.Error().Err(err).Str("range", rangeName).Int("attempt", attempt+1).Msg("append row failed")
		if attempt < writeAttempts-1 {
			sleepBackoff(ctx, attempt)
		}
	}
	return 0, lastErr
}

// UpdateRow rewrites the row at rowIndex in place.
func (c *Client) UpdateRow(ctx context.Context, rangeName string, rowIndex int, row []string) error {
	if !c.enabled {
		return nil
	}
	sheet := sheetName(rangeName)
	if sheet == "" {
		return fmt.Errorf("cannot infer sheet name from range %q", rangeName)
	}
	target := fmt.Sprintf("%s!A%d:%s%d", sheet, rowIndex, columnLetter(len(row)), rowIndex)
	values := &sheetsapi.ValueRange{Values: [][]any{toCells(row)}}
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		_, err := c.svc.Spreadsheets.Values.Update(c.sheetID, target, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Error().Err(err).Str("range", target).Int("attempt", attempt+1).Msg("update row failed")
		if attempt < writeAttempts-1 {
			sleepBackoff(ctx, attempt)
		}
	}
	return lastErr
}

// ReadRows fetches every row in the range. Used only for startup
// rehydration; failures are logged and return nothing.
func (c *Client) ReadRows(ctx context.Context, rangeName string) [][]string {
	if !c.enabled {
		return nil
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, rangeName).Context(ctx).Do()
	if err != nil {
		log.Error().Err(err).Str("range", rangeName).Msg("read rows failed")
		return nil
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

func sleepBackoff(ctx context.Context, attempt int) {
	if ctx.Err() != nil {
		return
	}
	time.Sleep(backoffBase << attempt)
}
