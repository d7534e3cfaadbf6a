package logger

import (
	"bytes"
	"strings"
	"testing"

	"freeproxy_pool/internal/shared/types"
)

func TestWithComponent_TagsOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(types.LogConf{Level: "debug"}, &buf); err != nil {
		t.Fatalf("InitWithWriter() returned an error: %v", err)
	}

	l := WithComponent("ProxyPool/Test")
	l.Info().Str("proxy", "http://1.2.3.4:8080").Msg("probe finished")

	out := buf.String()
	if !strings.Contains(out, "ProxyPool/Test") {
		t.Errorf("Expected component name in output, got: %s", out)
	}
	if !strings.Contains(out, "http://1.2.3.4:8080") {
		t.Errorf("Expected proxy field in output, got: %s", out)
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(types.LogConf{Level: "warn"}, &buf); err != nil {
		t.Fatalf("InitWithWriter() returned an error: %v", err)
	}
	buf.Reset()

	Debug().Msg("hidden")
	Warn().Str("k", "v").Msgf("visible %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "visible 1") {
		t.Errorf("Expected warn message, got: %s", out)
	}
}
