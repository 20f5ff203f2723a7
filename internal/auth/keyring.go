// Package auth holds the process-wide credential tables: one-time
// activation keys and the bearer tokens issued in exchange for them.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrKeyUsed    = errors.New("validation key already used")
	ErrKeyRevoked = errors.New("validation key revoked")
	ErrKeyUnknown = errors.New("invalid or expired validation key")
	ErrKeyExpired = errors.New("validation key expired")
)

// Keyring owns the activation and bearer tables. All methods are safe for
// concurrent use; every lookup-and-mutate sequence runs under one lock.
type Keyring struct {
	mu             sync.Mutex
	validationKeys map[string]string
	apiKeys        map[string]string
	keyExpires     map[string]int64
	revokedKeys    map[string]struct{}
	usedKeys       map[string]struct{}
	adminBearer    string

	now func() time.Time
}

// Seed is the initial table content, typically decoded from the environment.
type Seed struct {
	ValidationKeys map[string]string
	APIKeys        map[string]string
	KeyExpires     map[string]int64
	RevokedKeys    []string
	AdminBearer    string
}

func NewKeyring(seed Seed) *Keyring {
	k := &Keyring{
		validationKeys: make(map[string]string),
		apiKeys:        make(map[string]string),
		keyExpires:     make(map[string]int64),
		revokedKeys:    make(map[string]struct{}),
		usedKeys:       make(map[string]struct{}),
		adminBearer:    strings.TrimSpace(seed.AdminBearer),
		now:            time.Now,
	}
	for key, team := range seed.ValidationKeys {
		k.validationKeys[key] = team
	}
	for bearer, team := range seed.APIKeys {
		k.apiKeys[bearer] = team
	}
	for key, at := range seed.KeyExpires {
		k.keyExpires[key] = at
	}
	for _, key := range seed.RevokedKeys {
		k.revokedKeys[key] = struct{}{}
	}
	return k
}

// ValidateActivation consumes a one-time activation key and returns the
// owning team id. Rejections are checked in priority order: used, revoked,
// unknown, expired. On success the key moves into the used set and leaves
// the active table, so a second call with the same key fails with ErrKeyUsed.
func (k *Keyring) ValidateActivation(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.usedKeys[key]; ok {
		return "", ErrKeyUsed
	}
	if _, ok := k.revokedKeys[key]; ok {
		return "", ErrKeyRevoked
	}
	teamID, ok := k.validationKeys[key]
	if !ok || teamID == "" {
		return "", ErrKeyUnknown
	}
	if expiresAt, ok := k.keyExpires[key]; ok {
		if k.now().UTC().Unix() >= expiresAt {
			return "", ErrKeyExpired
		}
	}
	k.usedKeys[key] = struct{}{}
	delete(k.validationKeys, key)
	return teamID, nil
}

// IssueOrReuse returns the team's live bearer token, minting one on first
// activation. Re-activation is idempotent: at most one token per team.
func (k *Keyring) IssueOrReuse(teamID string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	for bearer, mapped := range k.apiKeys {
		if mapped == teamID {
			return bearer
		}
	}
	bearer := strings.ToLower(teamID) + "_" + randomHex(16)
	k.apiKeys[bearer] = teamID
	return bearer
}

// ResolveTeam maps a bearer token to its team id.
func (k *Keyring) ResolveTeam(bearer string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	teamID, ok := k.apiKeys[bearer]
	return teamID, ok && teamID != ""
}

// AdminConfigured reports whether an admin bearer is set at all.
func (k *Keyring) AdminConfigured() bool {
	return k.adminBearer != ""
}

// IsAdminBearer reports whether the token matches the configured admin
// bearer. Always false when none is configured.
func (k *Keyring) IsAdminBearer(bearer string) bool {
	if k.adminBearer == "" {
		return false
	}
	return bearer == k.adminBearer
}

// MergeAPIKeys folds persisted bearer->team rows into the live table
// without overwriting seeded entries. Startup rehydration only.
func (k *Keyring) MergeAPIKeys(apiKeys map[string]string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for bearer, team := range apiKeys {
		if _, ok := k.apiKeys[bearer]; !ok {
			k.apiKeys[bearer] = team
		}
	}
}

// MergeUsedKeys folds persisted consumed activation keys into the used set.
func (k *Keyring) MergeUsedKeys(keys []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		k.usedKeys[key] = struct{}{}
	}
}

// MergeValidationKeys folds persisted activation keys, expiries, and
// revocations into the live tables. Startup rehydration only.
func (k *Keyring) MergeValidationKeys(keys map[string]string, expires map[string]int64, revoked []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, team := range keys {
		if _, used := k.usedKeys[key]; used {
			continue
		}
		if _, ok := k.validationKeys[key]; !ok {
			k.validationKeys[key] = team
		}
	}
	for key, at := range expires {
		if _, ok := k.keyExpires[key]; !ok {
			k.keyExpires[key] = at
		}
	}
	for _, key := range revoked {
		k.revokedKeys[key] = struct{}{}
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
