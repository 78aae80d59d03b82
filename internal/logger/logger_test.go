package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level     string
		infoShown bool
		warnShown bool
	}{
		{"debug", true, true},
		{"INFO", true, true},
		{"warn", false, true},
		{"", false, true},
		{"bogus", false, true},
		{"disabled", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Output: &buf})

			log.Info().Msg("info line")
			assert.Equal(t, tt.infoShown, bytes.Contains(buf.Bytes(), []byte("info line")))

			log.Warn().Msg("warn line")
			assert.Equal(t, tt.warnShown, bytes.Contains(buf.Bytes(), []byte("warn line")))
		})
	}
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Pretty: true, Output: &buf})
	log.Info().Str("k", "v").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, `"message"`)
}
