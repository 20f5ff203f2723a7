package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminBearer string `env:"IONIA_ADMIN_BEARER"`

	SheetID         string `env:"IONIA_GOOGLE_SHEET_ID"`
	CredentialsJSON string `env:"IONIA_GOOGLE_CREDENTIALS_JSON"`
	CredentialsFile string `env:"IONIA_GOOGLE_CREDENTIALS_FILE"`

	GamesRange          string `env:"IONIA_SHEETS_GAMES_RANGE" envDefault:"games!A:Z"`
	StreamsRange        string `env:"IONIA_SHEETS_STREAMS_RANGE" envDefault:"streams!A:Z"`
	ActivationsRange    string `env:"IONIA_SHEETS_ACTIVATIONS_RANGE" envDefault:"activations!A:Z"`
	DedupeRange         string `env:"IONIA_SHEETS_DEDUPE_RANGE" envDefault:"dedupe!A:Z"`
	ValidationKeysRange string `env:"IONIA_SHEETS_VALIDATION_KEYS_RANGE" envDefault:"validation_keys!A:Z"`
	TeamsRange          string `env:"IONIA_SHEETS_TEAMS_RANGE" envDefault:"teams!A:Z"`
	PlayersRange        string `env:"IONIA_SHEETS_PLAYERS_RANGE" envDefault:"players!A:Z"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
