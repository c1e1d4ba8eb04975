package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-randomness/log"
)

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = log.ConsoleEncoder
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = log.JSONEncoder
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder               LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel        string     `mapstructure:"app"`
	StateDbLoggerLevel    string     `mapstructure:"stateDb"`
	LedgerLoggerLevel     string     `mapstructure:"ledger"`
	EpochsLoggerLevel     string     `mapstructure:"epochs"`
	RandomnessLoggerLevel string     `mapstructure:"randomness"`
	OrderingLoggerLevel   string     `mapstructure:"ordering"`
	CheckpointLoggerLevel string     `mapstructure:"checkpoint"`
	APILoggerLevel        string     `mapstructure:"api"`
	EventsLoggerLevel     string     `mapstructure:"events"`
	MetricsLoggerLevel    string     `mapstructure:"metrics"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:               ConsoleLogEncoder,
		AppLoggerLevel:        defaultLoggingLevel.String(),
		StateDbLoggerLevel:    zapcore.WarnLevel.String(),
		LedgerLoggerLevel:     defaultLoggingLevel.String(),
		EpochsLoggerLevel:     defaultLoggingLevel.String(),
		RandomnessLoggerLevel: defaultLoggingLevel.String(),
		OrderingLoggerLevel:   defaultLoggingLevel.String(),
		CheckpointLoggerLevel: defaultLoggingLevel.String(),
		APILoggerLevel:        defaultLoggingLevel.String(),
		EventsLoggerLevel:     defaultLoggingLevel.String(),
		MetricsLoggerLevel:    defaultLoggingLevel.String(),
	}
}

// Levels returns the configured level of every module logger keyed by module name.
func (c *LoggerConfig) Levels() map[string]string {
	return map[string]string{
		"app":        c.AppLoggerLevel,
		"stateDb":    c.StateDbLoggerLevel,
		"ledger":     c.LedgerLoggerLevel,
		"epochs":     c.EpochsLoggerLevel,
		"randomness": c.RandomnessLoggerLevel,
		"ordering":   c.OrderingLoggerLevel,
		"checkpoint": c.CheckpointLoggerLevel,
		"api":        c.APILoggerLevel,
		"events":     c.EventsLoggerLevel,
		"metrics":    c.MetricsLoggerLevel,
	}
}

func (c *LoggerConfig) validate() error {
	var result *multierror.Error
	switch c.Encoder {
	case ConsoleLogEncoder, JSONLogEncoder:
	default:
		result = multierror.Append(result, fmt.Errorf("logging.log-encoder: unknown encoder %q", c.Encoder))
	}
	for name, level := range c.Levels() {
		if _, err := zapcore.ParseLevel(level); err != nil {
			result = multierror.Append(result, fmt.Errorf("logging.%s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}
