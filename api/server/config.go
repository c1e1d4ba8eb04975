package server

import (
	"time"
)

// Config for the http api.
type Config struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
	// RateLimit is the number of requests per second served across all clients. Zero disables it.
	RateLimit    float64       `mapstructure:"rate-limit"`
	Burst        int           `mapstructure:"burst"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// DefaultConfig for the http api.
func DefaultConfig() Config {
	return Config{
		Address:        "127.0.0.1:9070",
		AllowedOrigins: []string{"*"},
		RateLimit:      200,
		Burst:          400,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
	}
}
