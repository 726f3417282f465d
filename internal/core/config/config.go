package config

import (
	redisclient "github.com/vietddude/faultline/internal/infra/redis"
	"github.com/vietddude/faultline/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Pipeline PipelineConfig     `yaml:"pipeline"`
	Handler  HandlerConfig      `yaml:"handler"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds console logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PipelineConfig holds settings for the error logging service.
// The boolean toggles default to enabled when omitted, so they are
// pointers in the file representation.
type PipelineConfig struct {
	Environment            string `yaml:"environment"`
	Component              string `yaml:"component"`
	MaxBufferSize          int    `yaml:"max_buffer_size"`
	MaxRetentionDays       int    `yaml:"max_retention_days"`
	EnableLocalPersistence *bool  `yaml:"enable_local_persistence"`
	EnableConsoleLogging   *bool  `yaml:"enable_console_logging"`
}

// PersistenceEnabled reports whether captured events should be written
// to the key-value store. Defaults to true.
func (c PipelineConfig) PersistenceEnabled() bool {
	return c.EnableLocalPersistence == nil || *c.EnableLocalPersistence
}

// ConsoleLoggingEnabled reports whether captured events are mirrored
// to the console sink. When the toggle is omitted the environment
// decides: on for development and test, off elsewhere.
func (c PipelineConfig) ConsoleLoggingEnabled() bool {
	if c.EnableConsoleLogging != nil {
		return *c.EnableConsoleLogging
	}
	return c.Environment == "development" || c.Environment == "test"
}

// HandlerConfig holds settings for the global error handler.
type HandlerConfig struct {
	EnableRecovery          *bool `yaml:"enable_recovery"`
	EnableUserNotifications *bool `yaml:"enable_user_notifications"`
}

// RecoveryEnabled reports whether automatic recovery runs for
// recoverable error types. Defaults to true.
func (c HandlerConfig) RecoveryEnabled() bool {
	return c.EnableRecovery == nil || *c.EnableRecovery
}

// UserNotificationsEnabled reports whether handled errors surface a
// user-facing notification. Defaults to true.
func (c HandlerConfig) UserNotificationsEnabled() bool {
	return c.EnableUserNotifications == nil || *c.EnableUserNotifications
}
