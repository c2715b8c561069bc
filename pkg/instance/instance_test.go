package instance

import (
	"strings"
	"testing"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(envKey, "ledger-7")
	if got := GetID(); got != "ledger-7" {
		t.Fatalf("expected ledger-7, got %s", got)
	}
}

func TestGetIDFallsBackToHost(t *testing.T) {
	t.Setenv(envKey, "")
	if got := GetID(); got == "" || !strings.Contains(got, "-") {
		t.Fatalf("unexpected fallback id %q", got)
	}
}
