package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"Info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSetup_WritesToFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("logLevel", "debug")
	viper.Set("graylog.enabled", false)

	var buf bytes.Buffer
	logger := Setup(&buf)
	logger.Debug().Msg("engine check")

	if !strings.Contains(buf.String(), "engine check") {
		t.Errorf("expected log line in file writer, got %q", buf.String())
	}
}
