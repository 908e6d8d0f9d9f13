package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// restoreGlobals puts the global logger and level back after a test calls Setup.
func restoreGlobals(t *testing.T) {
	t.Helper()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: " error ", want: LevelError},
		{in: "verbose", wantErr: true},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLevel(%q) = %q, want error", tt.in, got)
				}
				if !strings.Contains(err.Error(), tt.in) {
					t.Errorf("error %q does not name the level %q", err, tt.in)
				}
				if got != "" {
					t.Errorf("ParseLevel(%q) returned %q alongside the error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Every level a config file may name must parse and select a distinct threshold.
func TestParseLevel_ConfigValues(t *testing.T) {
	want := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for name, level := range want {
		parsed, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", name, err)
			continue
		}
		if got := toZerolog(parsed); got != level {
			t.Errorf("%q maps to %v, want %v", name, got, level)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelWarn, Output: &buf})

	logger.Info().Msg("dropped")
	logger.Warn().Str("namespace", "venue").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["level"] != "warn" || entry["message"] != "kept" {
		t.Errorf("entry = %v", entry)
	}
	if entry["namespace"] != "venue" {
		t.Errorf("namespace = %v, want venue", entry["namespace"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetup_Pretty(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: &buf})
	logger.Info().Str("method", "getInfo").Msg("console line")

	out := buf.String()
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("pretty output is JSON: %s", out)
	}
	if !strings.Contains(out, "console line") || !strings.Contains(out, "method=") {
		t.Errorf("pretty output = %q", out)
	}
}

func TestSetup_ReplacesGlobalLogger(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	Setup(Config{Level: LevelDebug, Output: &buf})

	proxyLog := NewLogger("proxy")
	proxyLog.Debug().Msg("from component")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("component logger did not write to the configured output: %q", buf.String())
	}
	if entry["component"] != "proxy" {
		t.Errorf("component = %v, want proxy", entry["component"])
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo || cfg.Pretty || cfg.Output == nil {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
