package env

import "testing"

func TestGetFallsBackWhenUnsetOrEmpty(t *testing.T) {
	if got := Get("LOKAPASAR_ENV_TEST_MISSING", "dev"); got != "dev" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("LOKAPASAR_ENV_TEST_EMPTY", "")
	if got := Get("LOKAPASAR_ENV_TEST_EMPTY", "dev"); got != "dev" {
		t.Fatalf("expected fallback for empty value, got %q", got)
	}

	t.Setenv("LOKAPASAR_ENV_TEST_SET", "production")
	if got := Get("LOKAPASAR_ENV_TEST_SET", "dev"); got != "production" {
		t.Fatalf("expected set value, got %q", got)
	}
}
