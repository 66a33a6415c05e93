package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	APIURL   string `env:"API_URL" envDefault:"http://localhost:8080/api"`
	RoomID   string `env:"ROOM_ID"`
	Token    string `env:"PLAYER_TOKEN"`
	Greeting string `env:"BOT_GREETING" envDefault:"bonjour"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
