package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidBackends returns the supported snapshot backends.
func ValidBackends() []string {
	return []string{"memory", "file", "redis", "sqlite"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks c and returns every problem found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if !slices.Contains(ValidBackends(), c.Store.Backend) {
		add("store.backend", c.Store.Backend, "must be one of "+strings.Join(ValidBackends(), ", "))
	}
	if (c.Store.Backend == "file" || c.Store.Backend == "sqlite") && c.Store.Path == "" {
		add("store.path", c.Store.Path, "is required for the "+c.Store.Backend+" backend")
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		add("store.redis.addr", c.Store.Redis.Addr, "is required for the redis backend")
	}
	if c.Store.Redis.TTL < 0 {
		add("store.redis.ttl", c.Store.Redis.TTL, "must not be negative")
	}
	if _, err := c.Store.Key(); err != nil {
		add("store.encryption_key", "<redacted>", err.Error())
	}
	if _, err := c.Store.FallbackKeys(); err != nil {
		add("store.previous_keys", "<redacted>", err.Error())
	}
	if len(c.Store.PreviousKeys) > 0 && c.Store.EncryptionKey == "" {
		add("store.previous_keys", len(c.Store.PreviousKeys), "require store.encryption_key")
	}
	for _, pattern := range c.Store.Redact {
		if _, err := regexp.Compile(pattern); err != nil {
			add("store.redact", pattern, "is not a valid regular expression")
		}
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		add("log.level", c.Log.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		add("log.format", c.Log.Format, "must be one of "+strings.Join(ValidLogFormats(), ", "))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", c.Server.Port, "must be between 1 and 65535")
	}
	if c.Submit.Timeout < 0 {
		add("submit.timeout", c.Submit.Timeout, "must not be negative")
	}
	if c.Submit.Endpoint != "" && !strings.HasPrefix(c.Submit.Endpoint, "http://") && !strings.HasPrefix(c.Submit.Endpoint, "https://") {
		add("submit.endpoint", c.Submit.Endpoint, "must be an http or https URL")
	}
	return errs
}
