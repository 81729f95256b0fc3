package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"DBG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"err", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "text", &buf)

	log.Info("hidden info")
	log.Debugf("hidden %s", "debug")
	log.Warnf("visible %s", "warning")
	log.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered messages: %s", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("output missing warning: %s", out)
	}
	if !strings.Contains(out, "visible error") {
		t.Errorf("output missing error: %s", out)
	}
}

func TestJSONFormatWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf).With("component", "forms")

	log.Infof("loaded %d forms", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "loaded 3 forms" {
		t.Errorf("msg = %v, want %q", entry["msg"], "loaded 3 forms")
	}
	if entry["component"] != "forms" {
		t.Errorf("component = %v, want %q", entry["component"], "forms")
	}
}

func TestNoopLogger(t *testing.T) {
	log := NewNoopLogger()
	log.Info("nothing")
	log.With("k", "v").Errorf("still %s", "nothing")
}

type countingStringer struct{ n *int }

func (c countingStringer) String() string {
	*c.n++
	return "built"
}

func TestDisabledLevelSkipsFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "text", &buf)

	var calls int
	log.Debug(countingStringer{&calls})
	log.Debugf("%s", countingStringer{&calls})
	if calls != 0 {
		t.Errorf("disabled debug formatted its arguments %d times", calls)
	}

	log.Info(countingStringer{&calls})
	if calls != 1 || !strings.Contains(buf.String(), "built") {
		t.Errorf("calls = %d, output = %q", calls, buf.String())
	}
}
