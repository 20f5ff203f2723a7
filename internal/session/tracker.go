// Package session tracks the one in-flight game each team may have and
// writes its row through to the games tab as the draft fills in.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoActiveGame is returned when a team has no session or the
	// submitted game id does not match the live one.
	ErrNoActiveGame = errors.New("no active game for team")

	// ErrAppendFailed and ErrUpdateFailed wrap row store failures so the
	// transport layer can pick the right upstream-error message.
	ErrAppendFailed = errors.New("append game row failed")
	ErrUpdateFailed = errors.New("update game row failed")
)

// RowStore is the slice of the row store adapter the tracker needs.
type RowStore interface {
	AppendGameRow(ctx context.Context, row []string) (int, error)
	UpdateGameRow(ctx context.Context, rowIndex int, row []string) error
}

type gameSession struct {
	gameID     string
	draftCount int
	rowIndex   int // sheet row locator, 0 until the first successful append
	rowData    map[string]string
	gameNumber int
	date       string
}

// Tracker holds per-team session state and the per-team, per-date game
// counters. A per-team lock is held across the whole read-persist-update
// sequence of a transition so concurrent events for the same team cannot
// interleave; the table mutex only guards map access.
type Tracker struct {
	store RowStore

	mu       sync.Mutex
	sessions map[string]*gameSession
	counters map[string]map[string]int
	locks    map[string]*sync.Mutex

	now func() time.Time
}

func NewTracker(store RowStore) *Tracker {
	return &Tracker{
		store:    store,
		sessions: make(map[string]*gameSession),
		counters: make(map[string]map[string]int),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// StartParams are the initial row fields reported at champ select start.
type StartParams struct {
	Date         string
	OppositeTeam string
	Patch        string
	TR           string
	Side         string
}

// StartResult identifies the session a start call resolved to.
type StartResult struct {
	GameID        string
	GameNumber    int
	AlreadyActive bool
}

// StartDraft opens a session for the team, or reports the existing one when
// a game is already in flight (idempotent under client reconnects; the
// counter is not advanced in that case). The day-scoped game number is
// consumed even if the append fails, so abandoned starts leave gaps.
func (t *Tracker) StartDraft(ctx context.Context, teamID string, p StartParams) (StartResult, error) {
	lk := t.teamLock(teamID)
	lk.Lock()
	defer lk.Unlock()

	if s := t.session(teamID); s != nil {
		return StartResult{GameID: s.gameID, GameNumber: s.gameNumber, AlreadyActive: true}, nil
	}

	gameID := t.newGameID()
	gameNumber := t.nextGameNumber(teamID, p.Date)
	rowData := map[string]string{
		"game_id":       gameID,
		"date":          p.Date,
		"opposite_team": p.OppositeTeam,
		"game_number":   fmt.Sprintf("%d", gameNumber),
		"patch":         p.Patch,
		"tr":            p.TR,
		"side":          p.Side,
	}
	rowIndex, err := t.store.AppendGameRow(ctx, BuildRow(rowData))
	if err != nil {
		return StartResult{}, fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}

	t.mu.Lock()
	t.sessions[teamID] = &gameSession{
		gameID:     gameID,
		rowIndex:   rowIndex,
		rowData:    rowData,
		gameNumber: gameNumber,
		date:       p.Date,
	}
	t.mu.Unlock()
	log.Info().Str("team", teamID).Str("game", gameID).Int("game_number", gameNumber).Msg("draft started")
	return StartResult{GameID: gameID, GameNumber: gameNumber}, nil
}

// CompleteDraft merges a draft payload into the session row. Payloads whose
// richness does not strictly exceed what was already recorded are dropped
// without a store write, which discards stale out-of-order submissions.
func (t *Tracker) CompleteDraft(ctx context.Context, teamID, gameID string, draft map[string]string) error {
	lk := t.teamLock(teamID)
	lk.Lock()
	defer lk.Unlock()

	s := t.session(teamID)
	if s == nil || s.gameID != gameID {
		return ErrNoActiveGame
	}
	draftCount := Richness(draft)
	if draftCount <= s.draftCount {
		return nil
	}
	log.Info().Str("team", teamID).Str("game", s.gameID).Int("draft_count", draftCount).Msg("draft updated")
	mergeRowData(s.rowData, draft)
	if err := t.persist(ctx, s); err != nil {
		return err
	}
	s.draftCount = draftCount
	return nil
}

// RecordPositions merges the reported lane assignments (position columns
// only) and re-persists the row.
func (t *Tracker) RecordPositions(ctx context.Context, teamID, gameID string, positions map[string]string) error {
	lk := t.teamLock(teamID)
	lk.Lock()
	defer lk.Unlock()

	s := t.session(teamID)
	if s == nil || s.gameID != gameID {
		return ErrNoActiveGame
	}
	filtered := make(map[string]string, len(positions))
	for key, value := range positions {
		if _, ok := positionColumns[key]; ok {
			filtered[key] = value
		}
	}
	mergeRowData(s.rowData, filtered)
	return t.persist(ctx, s)
}

// FinishGame records the outcome, persists the final row, and closes the
// session. When the session never obtained a row locator the append result
// is discarded rather than stored, since the session is deleted right after.
func (t *Tracker) FinishGame(ctx context.Context, teamID, gameID, win string) error {
	lk := t.teamLock(teamID)
	lk.Lock()
	defer lk.Unlock()

	s := t.session(teamID)
	if s == nil || s.gameID != gameID {
		return ErrNoActiveGame
	}
	mergeRowData(s.rowData, map[string]string{"win": win})
	if s.rowIndex > 0 {
		if err := t.store.UpdateGameRow(ctx, s.rowIndex, BuildRow(s.rowData)); err != nil {
			return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
		}
	} else {
		if _, err := t.store.AppendGameRow(ctx, BuildRow(s.rowData)); err != nil {
			return fmt.Errorf("%w: %v", ErrAppendFailed, err)
		}
	}
	t.mu.Lock()
	delete(t.sessions, teamID)
	t.mu.Unlock()
	log.Info().Str("team", teamID).Str("game", gameID).Str("win", win).Msg("game finished")
	return nil
}

// Heartbeat reports the team's live session, if any. Read-only.
func (t *Tracker) Heartbeat(teamID string) (string, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[teamID]
	if s == nil {
		return "", 0, false
	}
	return s.gameID, s.gameNumber, true
}

// HasActiveGame reports whether the team's live session matches gameID.
func (t *Tracker) HasActiveGame(teamID, gameID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[teamID]
	return s != nil && s.gameID == gameID
}

// persist writes the session row through: update in place once a locator is
// known, otherwise append and capture the resulting locator.
func (t *Tracker) persist(ctx context.Context, s *gameSession) error {
	if s.rowIndex > 0 {
		if err := t.store.UpdateGameRow(ctx, s.rowIndex, BuildRow(s.rowData)); err != nil {
			return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
		}
		return nil
	}
	rowIndex, err := t.store.AppendGameRow(ctx, BuildRow(s.rowData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	s.rowIndex = rowIndex
	return nil
}

func (t *Tracker) session(teamID string) *gameSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[teamID]
}

func (t *Tracker) teamLock(teamID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lk, ok := t.locks[teamID]
	if !ok {
		lk = &sync.Mutex{}
		t.locks[teamID] = lk
	}
	return lk
}

// nextGameNumber increments the team's counter for the given date. Strictly
// increasing from 1; never reclaimed.
func (t *Tracker) nextGameNumber(teamID, date string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	teamCounters, ok := t.counters[teamID]
	if !ok {
		teamCounters = make(map[string]int)
		t.counters[teamID] = teamCounters
	}
	teamCounters[date]++
	return teamCounters[date]
}

// newGameID builds a collision-resistant id: UTC minute stamp plus a random
// suffix. Uniqueness is not enforced, just astronomically likely.
func (t *Tracker) newGameID() string {
	stamp := t.now().UTC().Format("20060102_1504")
	suffix := make([]byte, 2)
	if _, err := rand.Read(suffix); err != nil {
		panic(err)
	}
	return "g_" + stamp + "_" + hex.EncodeToString(suffix)
}
