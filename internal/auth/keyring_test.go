package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestValidateActivationConsumesKey(t *testing.T) {
	k := NewKeyring(Seed{ValidationKeys: map[string]string{"K1": "KC"}})

	teamID, err := k.ValidateActivation("K1")
	if err != nil {
		t.Fatalf("ValidateActivation() error = %v", err)
	}
	if teamID != "KC" {
		t.Fatalf("teamID = %q, want KC", teamID)
	}

	_, err = k.ValidateActivation("K1")
	if !errors.Is(err, ErrKeyUsed) {
		t.Fatalf("second ValidateActivation() error = %v, want ErrKeyUsed", err)
	}
}

func TestValidateActivationRejectionOrder(t *testing.T) {
	k := NewKeyring(Seed{
		ValidationKeys: map[string]string{"REVOKED": "KC"},
		RevokedKeys:    []string{"REVOKED"},
	})

	if _, err := k.ValidateActivation("REVOKED"); !errors.Is(err, ErrKeyRevoked) {
		t.Fatalf("revoked key error = %v, want ErrKeyRevoked", err)
	}
	if _, err := k.ValidateActivation("NOPE"); !errors.Is(err, ErrKeyUnknown) {
		t.Fatalf("unknown key error = %v, want ErrKeyUnknown", err)
	}
}

func TestValidateActivationExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	k := NewKeyring(Seed{
		ValidationKeys: map[string]string{"FRESH": "KC", "STALE": "G2"},
		KeyExpires: map[string]int64{
			"FRESH": now.Unix() + 60,
			"STALE": now.Unix(),
		},
	})
	k.now = func() time.Time { return now }

	if _, err := k.ValidateActivation("STALE"); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("at-expiry key error = %v, want ErrKeyExpired", err)
	}
	teamID, err := k.ValidateActivation("FRESH")
	if err != nil || teamID != "KC" {
		t.Fatalf("fresh key = (%q, %v), want (KC, nil)", teamID, err)
	}
}

func TestIssueOrReuseIsIdempotent(t *testing.T) {
	k := NewKeyring(Seed{})

	first := k.IssueOrReuse("KC")
	second := k.IssueOrReuse("KC")
	if first != second {
		t.Fatalf("IssueOrReuse minted a second token: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "kc_") {
		t.Fatalf("token %q missing team prefix", first)
	}
	if len(first) != len("kc_")+32 {
		t.Fatalf("token %q has unexpected length %d", first, len(first))
	}

	teamID, ok := k.ResolveTeam(first)
	if !ok || teamID != "KC" {
		t.Fatalf("ResolveTeam = (%q, %v), want (KC, true)", teamID, ok)
	}
}

func TestResolveTeamUnknownBearer(t *testing.T) {
	k := NewKeyring(Seed{APIKeys: map[string]string{"kc_abc": "KC"}})

	if _, ok := k.ResolveTeam("garbled"); ok {
		t.Fatal("ResolveTeam accepted an unknown bearer")
	}
}

func TestIsAdminBearerUnconfigured(t *testing.T) {
	k := NewKeyring(Seed{})

	if k.AdminConfigured() {
		t.Fatal("AdminConfigured() = true with no admin bearer")
	}
	if k.IsAdminBearer("anything") {
		t.Fatal("IsAdminBearer() = true with no admin bearer")
	}
}

func TestMergeValidationKeysSkipsConsumed(t *testing.T) {
	k := NewKeyring(Seed{ValidationKeys: map[string]string{"K1": "KC"}})
	if _, err := k.ValidateActivation("K1"); err != nil {
		t.Fatalf("ValidateActivation() error = %v", err)
	}

	k.MergeValidationKeys(map[string]string{"K1": "KC", "K2": "G2"}, nil, nil)

	if _, err := k.ValidateActivation("K1"); !errors.Is(err, ErrKeyUsed) {
		t.Fatalf("merged-back used key error = %v, want ErrKeyUsed", err)
	}
	if teamID, err := k.ValidateActivation("K2"); err != nil || teamID != "G2" {
		t.Fatalf("merged key = (%q, %v), want (G2, nil)", teamID, err)
	}
}

func TestValidateActivationConcurrent(t *testing.T) {
	k := NewKeyring(Seed{ValidationKeys: map[string]string{"K1": "KC"}})

	const workers = 16
	var wg sync.WaitGroup
	successes := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if teamID, err := k.ValidateActivation("K1"); err == nil {
				successes <- teamID
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Fatalf("key consumed %d times, want exactly once", count)
	}
}
