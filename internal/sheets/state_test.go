package sheets

import "testing"

func TestParseActivationState(t *testing.T) {
	rows := [][]string{
		{"kc_aaaa", "KC", "activation", "true", "2025-06-01T10:00:00Z", "", "vk-kc-1"},
		{"g2_bbbb", "G2", "revoked", "false", "2025-06-01T11:00:00Z", "2025-06-02T09:00:00Z", "vk-g2-1"},
		{"fnc_cccc", "FNC", "", "true"},
		{"short-row"},
		{},
	}
	state := parseActivationState(rows)

	if got := state.APIKeys["kc_aaaa"]; got != "KC" {
		t.Fatalf("APIKeys[kc_aaaa] = %q, want KC", got)
	}
	if got := state.APIKeys["fnc_cccc"]; got != "FNC" {
		t.Fatalf("APIKeys[fnc_cccc] = %q, want FNC", got)
	}
	if _, ok := state.APIKeys["g2_bbbb"]; ok {
		t.Fatal("inactive bearer resurrected")
	}
	if len(state.UsedKeys) != 2 || state.UsedKeys[0] != "vk-kc-1" || state.UsedKeys[1] != "vk-g2-1" {
		t.Fatalf("UsedKeys = %v", state.UsedKeys)
	}
	if len(state.RevokedKeys) != 1 || state.RevokedKeys[0] != "g2_bbbb" {
		t.Fatalf("RevokedKeys = %v", state.RevokedKeys)
	}
}

func TestParseValidationKeys(t *testing.T) {
	rows := [][]string{
		{"vk-kc-1", "KC"},
		{"vk-g2-1", "G2", "1767225600"},
		{"vk-fnc-1", "FNC", "", "true"},
		{"vk-bad-1", "BAD", "not-a-number"},
		{"", "KC"},
	}
	state := parseValidationKeys(rows)

	if len(state.Keys) != 4 {
		t.Fatalf("Keys = %v, want 4 entries", state.Keys)
	}
	if state.Keys["vk-kc-1"] != "KC" {
		t.Fatalf("Keys[vk-kc-1] = %q", state.Keys["vk-kc-1"])
	}
	if state.Expires["vk-g2-1"] != 1767225600 {
		t.Fatalf("Expires[vk-g2-1] = %d", state.Expires["vk-g2-1"])
	}
	if _, ok := state.Expires["vk-bad-1"]; ok {
		t.Fatal("unparseable expiry recorded")
	}
	if len(state.Revoked) != 1 || state.Revoked[0] != "vk-fnc-1" {
		t.Fatalf("Revoked = %v", state.Revoked)
	}
}

func TestParseDedupeKeys(t *testing.T) {
	rows := [][]string{
		{"game_start|KC|g_1", "2025-06-01T10:00:00Z"},
		{""},
		{},
		{"game_finished|KC|g_1"},
	}
	keys := parseDedupeKeys(rows)
	want := []string{"game_start|KC|g_1", "game_finished|KC|g_1"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
