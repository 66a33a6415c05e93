package config

import "github.com/caarlos0/env/v11"

// TestConfig points integration tests at real backends. Tests skip when the
// backend they need is not configured.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN"`
	TestRedisURL    string `env:"TEST_REDIS_URL"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
