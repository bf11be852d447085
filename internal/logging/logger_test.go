package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("hidden")
	Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "chatty", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Debug().Msg("dbg")
	Info().Msg("inf")

	out := buf.String()
	assert.False(t, strings.Contains(out, `"message":"dbg"`))
	assert.Contains(t, out, `"message":"inf"`)
}

func TestInit_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	l := Logger()
	l.Debug().Msg("pretty")

	out := buf.String()
	assert.Contains(t, out, "pretty")
	assert.NotContains(t, out, `"message"`)
}
