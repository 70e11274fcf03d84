package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/propdesk/internal/config"
)

func TestBuildLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		logger, err := Build(config.Observability{LogLevel: tc.level, LogEncoding: "json", ServiceName: "propdesk"})
		if err != nil {
			t.Fatalf("Build(%q): %v", tc.level, err)
		}
		if !logger.Core().Enabled(tc.want) {
			t.Errorf("%q: level %s should be enabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
			t.Errorf("%q: level %s should be disabled", tc.level, tc.want-1)
		}
	}
}

func TestBuildConsole(t *testing.T) {
	if _, err := Build(config.Observability{LogLevel: "info", LogEncoding: "console"}); err != nil {
		t.Fatalf("Build console: %v", err)
	}
}
