// Package testutil provides an in-memory stand-in for the sheets adapter so
// handler and tracker tests can assert on exact write counts.
package testutil

import (
	"context"
	"errors"
	"sync"

	"ionia-ingest/internal/sheets"
)

// ErrWriteFailed simulates the adapter exhausting its retries.
var ErrWriteFailed = errors.New("sheet unavailable")

// FakeSheet records every write. Row locators are handed out sequentially
// from 1, like 1-based sheet rows.
type FakeSheet struct {
	mu sync.Mutex

	// FailWrites makes every subsequent write return ErrWriteFailed.
	FailWrites bool
	// NoLocators makes appends succeed without returning a row locator,
	// like a disabled adapter.
	NoLocators bool

	GameRows    [][]string
	GameUpdates []GameUpdate
	Activations []sheets.ActivationRow
	Streams     []map[string]string
	DedupeRows  []string
	TeamRows    [][]string
	PlayerRows  [][]string

	nextRow int
}

// GameUpdate is one in-place rewrite of a games row.
type GameUpdate struct {
	RowIndex int
	Row      []string
}

func NewFakeSheet() *FakeSheet {
	return &FakeSheet{}
}

func (f *FakeSheet) Enabled() bool { return true }

func (f *FakeSheet) AppendGameRow(_ context.Context, row []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	f.GameRows = append(f.GameRows, append([]string(nil), row...))
	if f.NoLocators {
		return 0, nil
	}
	f.nextRow++
	return f.nextRow, nil
}

func (f *FakeSheet) UpdateGameRow(_ context.Context, rowIndex int, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return ErrWriteFailed
	}
	f.GameUpdates = append(f.GameUpdates, GameUpdate{RowIndex: rowIndex, Row: append([]string(nil), row...)})
	return nil
}

func (f *FakeSheet) AppendActivationRow(_ context.Context, rec sheets.ActivationRow) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	f.Activations = append(f.Activations, rec)
	f.nextRow++
	return f.nextRow, nil
}

func (f *FakeSheet) AppendStreamEvent(_ context.Context, teamID, eventType string, payload map[string]string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	rec := map[string]string{"team_id": teamID, "event_type": eventType}
	for k, v := range payload {
		rec[k] = v
	}
	f.Streams = append(f.Streams, rec)
	f.nextRow++
	return f.nextRow, nil
}

func (f *FakeSheet) AppendDedupeRow(_ context.Context, dedupeKey, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	f.DedupeRows = append(f.DedupeRows, dedupeKey)
	f.nextRow++
	return f.nextRow, nil
}

func (f *FakeSheet) AppendTeamRow(_ context.Context, teamID, tricode, name, league string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	f.TeamRows = append(f.TeamRows, []string{teamID, tricode, name, league})
	f.nextRow++
	return f.nextRow, nil
}

func (f *FakeSheet) AppendPlayerRow(_ context.Context, playerID, teamID, role, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return 0, ErrWriteFailed
	}
	f.PlayerRows = append(f.PlayerRows, []string{playerID, teamID, role, name})
	f.nextRow++
	return f.nextRow, nil
}

// GameWriteCount is the number of writes that hit the games tab.
func (f *FakeSheet) GameWriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.GameRows) + len(f.GameUpdates)
}
