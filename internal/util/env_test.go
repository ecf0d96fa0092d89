package util

import "testing"

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "value")
	if got := GetEnvString("TEST_ENV_STRING", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := GetEnvString("TEST_ENV_STRING_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetEnvNumeric(t *testing.T) {
	t.Setenv("TEST_ENV_NUMERIC", "2.5")
	if got := GetEnvNumeric("TEST_ENV_NUMERIC", 4); got != 2.5 {
		t.Fatalf("expected 2.5, got %g", got)
	}
	t.Setenv("TEST_ENV_NUMERIC", "not-a-number")
	if got := GetEnvNumeric("TEST_ENV_NUMERIC", 4); got != 4 {
		t.Fatalf("expected fallback 4, got %g", got)
	}
	if got := GetEnvNumeric("TEST_ENV_NUMERIC_UNSET", 4); got != 4 {
		t.Fatalf("expected fallback 4, got %g", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL", "true")
	if !GetEnvBool("TEST_ENV_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_ENV_BOOL", "yes")
	if GetEnvBool("TEST_ENV_BOOL", false) {
		t.Fatal("non-boolean value must fall back to the default")
	}
	if !GetEnvBool("TEST_ENV_BOOL_UNSET", true) {
		t.Fatal("unset variable must fall back to the default")
	}
}
