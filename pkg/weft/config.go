package weft

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// StrictScope controls how far a strict-mode failure propagates.
type StrictScope int

const (
	// StrictScopeInvocation aborts the whole render invocation on the
	// first fatal error.
	StrictScopeInvocation StrictScope = iota
	// StrictScopeUnit aborts only the failing content unit; remaining
	// units keep rendering.
	StrictScopeUnit
)

func (s StrictScope) String() string {
	if s == StrictScopeUnit {
		return "unit"
	}
	return "invocation"
}

// Config contains all configuration options for the weft engine.
type Config struct {
	// Strict escalates recoverable errors to fatal ones.
	Strict bool
	// StrictScope selects unit-fatal or invocation-fatal behavior when
	// Strict is set.
	StrictScope StrictScope
	// Concurrency bounds the number of content units rendered in
	// parallel. Defaults to GOMAXPROCS.
	Concurrency int
	// LogLevel controls logging verbosity (trace, debug, info, warn,
	// error, disabled).
	LogLevel string
	// NullValue is the lenient-mode substitute for unresolvable
	// placeholders.
	NullValue string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Strict:      false,
		StrictScope: StrictScopeInvocation,
		Concurrency: runtime.GOMAXPROCS(0),
		LogLevel:    "info",
		NullValue:   "",
	}
}

// ConfigFromEnvironment creates a configuration from WEFT_* environment
// variables, falling back to defaults for anything unset.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("WEFT_STRICT"); val != "" {
		config.Strict = parseBool(val)
	}
	if val := os.Getenv("WEFT_STRICT_SCOPE"); val != "" {
		if strings.EqualFold(val, "unit") {
			config.StrictScope = StrictScopeUnit
		}
	}
	if val := os.Getenv("WEFT_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.Concurrency = n
		}
	}
	if val := os.Getenv("WEFT_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
	if val := os.Getenv("WEFT_NULL_VALUE"); val != "" {
		config.NullValue = val
	}

	return config
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// nullGetter returns the NullGetter implied by the configuration.
func (c *Config) nullGetter() NullGetter {
	value := c.NullValue
	return func() string { return value }
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
