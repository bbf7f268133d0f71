package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, enc := range []string{"", "json", "console"} {
		log, err := New("debug", enc)
		if err != nil {
			t.Fatalf("encoding %q: %v", enc, err)
		}
		if !log.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("encoding %q: debug not enabled", enc)
		}
	}
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected an invalid level to be rejected")
	}
}
