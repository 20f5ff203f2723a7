package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ionia-ingest/internal/auth"
	"ionia-ingest/internal/config"
	"ionia-ingest/internal/dedupe"
	"ionia-ingest/internal/logging"
	"ionia-ingest/internal/session"
	"ionia-ingest/internal/sheets"
	httptransport "ionia-ingest/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}
	authCfg, err := config.LoadAuth()
	if err != nil {
		log.Fatal().Err(err).Msg("load auth config failed")
	}

	keyring := auth.NewKeyring(auth.Seed{
		ValidationKeys: authCfg.ValidationKeys(),
		APIKeys:        authCfg.APIKeys(),
		KeyExpires:     authCfg.KeyExpires(),
		RevokedKeys:    authCfg.RevokedKeys(),
		AdminBearer:    cfg.AdminBearer,
	})

	ctx := context.Background()
	store := sheets.NewClient(ctx, cfg)
	registry := dedupe.NewRegistry()
	rehydrate(ctx, store, keyring, registry)

	tracker := session.NewTracker(store)

	r := httptransport.NewRouter(keyring, tracker, registry, store)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// rehydrate reloads credential and dedupe state persisted by previous
// processes. Best effort: the sheet is the only durable copy, but a failed
// read just starts the process with the seeded tables.
func rehydrate(ctx context.Context, store *sheets.Client, keyring *auth.Keyring, registry *dedupe.Registry) {
	if !store.Enabled() {
		return
	}
	activation := store.LoadActivationState(ctx)
	keyring.MergeAPIKeys(activation.APIKeys)
	keyring.MergeUsedKeys(activation.UsedKeys)

	validation := store.LoadValidationKeys(ctx)
	keyring.MergeValidationKeys(validation.Keys, validation.Expires, validation.Revoked)

	keys := store.LoadDedupeKeys(ctx)
	registry.Load(keys)
	log.Info().
		Int("api_keys", len(activation.APIKeys)).
		Int("validation_keys", len(validation.Keys)).
		Int("dedupe_keys", len(keys)).
		Msg("state rehydrated from sheets")
}
