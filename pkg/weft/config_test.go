package weft

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.False(t, config.Strict)
	assert.Equal(t, StrictScopeInvocation, config.StrictScope)
	assert.Equal(t, runtime.GOMAXPROCS(0), config.Concurrency)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "", config.NullValue)
	require.NoError(t, config.Validate())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("WEFT_STRICT", "yes")
	t.Setenv("WEFT_STRICT_SCOPE", "unit")
	t.Setenv("WEFT_CONCURRENCY", "3")
	t.Setenv("WEFT_LOG_LEVEL", "debug")
	t.Setenv("WEFT_NULL_VALUE", "N/A")

	config := ConfigFromEnvironment()
	assert.True(t, config.Strict)
	assert.Equal(t, StrictScopeUnit, config.StrictScope)
	assert.Equal(t, 3, config.Concurrency)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "N/A", config.NullValue)
}

func TestConfigFromEnvironmentIgnoresInvalidValues(t *testing.T) {
	t.Setenv("WEFT_CONCURRENCY", "zero")
	t.Setenv("WEFT_STRICT_SCOPE", "galaxy")

	config := ConfigFromEnvironment()
	assert.Equal(t, runtime.GOMAXPROCS(0), config.Concurrency)
	assert.Equal(t, StrictScopeInvocation, config.StrictScope)
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	config.LogLevel = "shouting"
	require.Error(t, config.Validate())

	config = DefaultConfig()
	config.Concurrency = 0
	require.Error(t, config.Validate())
}

func TestStrictScopeString(t *testing.T) {
	assert.Equal(t, "invocation", StrictScopeInvocation.String())
	assert.Equal(t, "unit", StrictScopeUnit.String())
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "yes", "on", " true "} {
		assert.True(t, parseBool(s), s)
	}
	for _, s := range []string{"false", "0", "no", "off", "", "maybe"} {
		assert.False(t, parseBool(s), s)
	}
}
