package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info().Msg("quiet")
	logger.Warn().Str("client_id", "abc").Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "client_id=abc") {
		t.Fatalf("expected warn message with field, got %q", out)
	}
}
