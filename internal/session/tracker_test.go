package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ionia-ingest/internal/testutil"
)

func columnIndex(t *testing.T, column string) int {
	t.Helper()
	for i, c := range GamesColumns {
		if c == column {
			return i
		}
	}
	t.Fatalf("column %q not in schema", column)
	return -1
}

func mustStart(t *testing.T, tr *Tracker, team, date string) StartResult {
	t.Helper()
	res, err := tr.StartDraft(context.Background(), team, StartParams{
		Date:         date,
		OppositeTeam: "G2",
		Patch:        "25.11",
		TR:           "scrim",
		Side:         "blue",
	})
	if err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	return res
}

func TestStartDraftCreatesSession(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	res := mustStart(t, tr, "KC", "2025-06-01")
	if res.AlreadyActive {
		t.Fatal("fresh start reported already active")
	}
	if res.GameNumber != 1 {
		t.Fatalf("GameNumber = %d, want 1", res.GameNumber)
	}
	if !strings.HasPrefix(res.GameID, "g_") {
		t.Fatalf("GameID = %q, want g_ prefix", res.GameID)
	}
	if len(fake.GameRows) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.GameRows))
	}
	row := fake.GameRows[0]
	if row[columnIndex(t, "game_id")] != res.GameID {
		t.Fatalf("row game_id = %q, want %q", row[columnIndex(t, "game_id")], res.GameID)
	}
	if row[columnIndex(t, "opposite_team")] != "G2" {
		t.Fatalf("row opposite_team = %q", row[columnIndex(t, "opposite_team")])
	}

	gameID, gameNumber, ok := tr.Heartbeat("KC")
	if !ok || gameID != res.GameID || gameNumber != 1 {
		t.Fatalf("Heartbeat = (%q, %d, %v)", gameID, gameNumber, ok)
	}
}

func TestStartDraftAlreadyActive(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	first := mustStart(t, tr, "KC", "2025-06-01")
	second := mustStart(t, tr, "KC", "2025-06-01")
	if !second.AlreadyActive {
		t.Fatal("second start did not report already active")
	}
	if second.GameID != first.GameID || second.GameNumber != first.GameNumber {
		t.Fatalf("second start = %+v, want same game as %+v", second, first)
	}
	if len(fake.GameRows) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.GameRows))
	}

	// The reconnect must not consume a game number: next real game is 2.
	if err := tr.FinishGame(context.Background(), "KC", first.GameID, "W"); err != nil {
		t.Fatalf("FinishGame() error = %v", err)
	}
	third := mustStart(t, tr, "KC", "2025-06-01")
	if third.GameNumber != 2 {
		t.Fatalf("GameNumber after finish = %d, want 2", third.GameNumber)
	}
}

func TestGameNumbersIndependentPerTeamAndDate(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	kc := mustStart(t, tr, "KC", "2025-06-01")
	g2 := mustStart(t, tr, "G2", "2025-06-01")
	if kc.GameNumber != 1 || g2.GameNumber != 1 {
		t.Fatalf("numbers = (%d, %d), want (1, 1)", kc.GameNumber, g2.GameNumber)
	}

	if err := tr.FinishGame(context.Background(), "KC", kc.GameID, "W"); err != nil {
		t.Fatalf("FinishGame() error = %v", err)
	}
	nextDay := mustStart(t, tr, "KC", "2025-06-02")
	if nextDay.GameNumber != 1 {
		t.Fatalf("new date GameNumber = %d, want 1", nextDay.GameNumber)
	}
}

func TestCompleteDraftRichnessMonotonic(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)
	ctx := context.Background()

	res := mustStart(t, tr, "KC", "2025-06-01")
	if err := tr.CompleteDraft(ctx, "KC", res.GameID, map[string]string{"BP1": "Ahri"}); err != nil {
		t.Fatalf("CompleteDraft() error = %v", err)
	}
	if fake.GameWriteCount() != 2 {
		t.Fatalf("writes = %d, want 2", fake.GameWriteCount())
	}

	// Equal richness: accepted but no write.
	if err := tr.CompleteDraft(ctx, "KC", res.GameID, map[string]string{"BP1": "Ahri"}); err != nil {
		t.Fatalf("CompleteDraft() repeat error = %v", err)
	}
	if fake.GameWriteCount() != 2 {
		t.Fatalf("writes after stale payload = %d, want 2", fake.GameWriteCount())
	}

	// Strictly richer: merged and written.
	if err := tr.CompleteDraft(ctx, "KC", res.GameID, map[string]string{"BP1": "Ahri", "BP2": "Lee Sin"}); err != nil {
		t.Fatalf("CompleteDraft() richer error = %v", err)
	}
	if fake.GameWriteCount() != 3 {
		t.Fatalf("writes after richer payload = %d, want 3", fake.GameWriteCount())
	}
	last := fake.GameUpdates[len(fake.GameUpdates)-1]
	if last.Row[columnIndex(t, "BP2")] != "Lee Sin" {
		t.Fatalf("BP2 = %q, want Lee Sin", last.Row[columnIndex(t, "BP2")])
	}
}

func TestCompleteDraftDropsUnknownColumns(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	res := mustStart(t, tr, "KC", "2025-06-01")
	err := tr.CompleteDraft(context.Background(), "KC", res.GameID, map[string]string{"BP1": "Ahri", "bogus": "x"})
	if err != nil {
		t.Fatalf("CompleteDraft() error = %v", err)
	}
	last := fake.GameUpdates[len(fake.GameUpdates)-1]
	for _, cell := range last.Row {
		if cell == "x" {
			t.Fatal("unknown column leaked into the row")
		}
	}
}

func TestCompleteDraftRequiresMatchingGame(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	if err := tr.CompleteDraft(context.Background(), "KC", "g_nope", nil); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("no session error = %v, want ErrNoActiveGame", err)
	}
	mustStart(t, tr, "KC", "2025-06-01")
	err := tr.CompleteDraft(context.Background(), "KC", "g_wrong", map[string]string{"BP1": "Ahri"})
	if !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("mismatched game error = %v, want ErrNoActiveGame", err)
	}
}

func TestRecordPositionsRestrictedToPositionColumns(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	res := mustStart(t, tr, "KC", "2025-06-01")
	err := tr.RecordPositions(context.Background(), "KC", res.GameID, map[string]string{
		"BT":  "Player1",
		"win": "W", // not a position column; must be ignored
	})
	if err != nil {
		t.Fatalf("RecordPositions() error = %v", err)
	}
	last := fake.GameUpdates[len(fake.GameUpdates)-1]
	if last.Row[columnIndex(t, "BT")] != "Player1" {
		t.Fatalf("BT = %q, want Player1", last.Row[columnIndex(t, "BT")])
	}
	if last.Row[columnIndex(t, "win")] != "" {
		t.Fatalf("win = %q, want empty", last.Row[columnIndex(t, "win")])
	}
}

func TestFinishGameRemovesSession(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)

	res := mustStart(t, tr, "KC", "2025-06-01")
	if err := tr.FinishGame(context.Background(), "KC", res.GameID, "W"); err != nil {
		t.Fatalf("FinishGame() error = %v", err)
	}
	if _, _, ok := tr.Heartbeat("KC"); ok {
		t.Fatal("session survived FinishGame")
	}
	last := fake.GameUpdates[len(fake.GameUpdates)-1]
	if last.Row[columnIndex(t, "win")] != "W" {
		t.Fatalf("win = %q, want W", last.Row[columnIndex(t, "win")])
	}
}

func TestFinishGameAppendPathWhenNoLocator(t *testing.T) {
	fake := testutil.NewFakeSheet()
	fake.NoLocators = true
	tr := NewTracker(fake)

	res := mustStart(t, tr, "KC", "2025-06-01")
	if err := tr.FinishGame(context.Background(), "KC", res.GameID, "L"); err != nil {
		t.Fatalf("FinishGame() error = %v", err)
	}
	if len(fake.GameRows) != 2 {
		t.Fatalf("appends = %d, want 2 (start + finish)", len(fake.GameRows))
	}
	if _, _, ok := tr.Heartbeat("KC"); ok {
		t.Fatal("session survived FinishGame")
	}
}

func TestPersistFailureKeepsSession(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)
	ctx := context.Background()

	res := mustStart(t, tr, "KC", "2025-06-01")
	fake.FailWrites = true

	err := tr.CompleteDraft(ctx, "KC", res.GameID, map[string]string{"BP1": "Ahri"})
	if !errors.Is(err, ErrUpdateFailed) {
		t.Fatalf("CompleteDraft() error = %v, want ErrUpdateFailed", err)
	}
	if err := tr.FinishGame(ctx, "KC", res.GameID, "W"); !errors.Is(err, ErrUpdateFailed) {
		t.Fatalf("FinishGame() error = %v, want ErrUpdateFailed", err)
	}
	if !tr.HasActiveGame("KC", res.GameID) {
		t.Fatal("session dropped despite failed persist")
	}

	// Retry after the store recovers: the draft count never advanced, so
	// the same payload persists.
	fake.FailWrites = false
	if err := tr.CompleteDraft(ctx, "KC", res.GameID, map[string]string{"BP1": "Ahri"}); err != nil {
		t.Fatalf("CompleteDraft() retry error = %v", err)
	}
}

func TestStartDraftConsumesNumberOnFailedAppend(t *testing.T) {
	fake := testutil.NewFakeSheet()
	tr := NewTracker(fake)
	ctx := context.Background()

	fake.FailWrites = true
	_, err := tr.StartDraft(ctx, "KC", StartParams{Date: "2025-06-01"})
	if !errors.Is(err, ErrAppendFailed) {
		t.Fatalf("StartDraft() error = %v, want ErrAppendFailed", err)
	}
	if _, _, ok := tr.Heartbeat("KC"); ok {
		t.Fatal("session created despite failed append")
	}

	// Numbers are never reclaimed: the failed start burned 1.
	fake.FailWrites = false
	res := mustStart(t, tr, "KC", "2025-06-01")
	if res.GameNumber != 2 {
		t.Fatalf("GameNumber after failed start = %d, want 2", res.GameNumber)
	}
}
