package app

import (
	"testing"
	"time"
)

func TestEnvStrings(t *testing.T) {
	t.Setenv("TALLY_TEST_LIST", " a, b ,,c ")
	got := EnvStrings("TALLY_TEST_LIST", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("EnvStrings=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EnvStrings=%v want=%v", got, want)
		}
	}

	if got := EnvStrings("TALLY_TEST_LIST_UNSET", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("default not applied: %v", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TALLY_TEST_DUR", "250ms")
	if got := EnvDuration("TALLY_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("EnvDuration=%v", got)
	}

	t.Setenv("TALLY_TEST_DUR", "garbage")
	if got := EnvDuration("TALLY_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("invalid value should fall back: %v", got)
	}

	t.Setenv("TALLY_TEST_DUR", "-5s")
	if got := EnvDuration("TALLY_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("non-positive value should fall back: %v", got)
	}
}

func TestEnvInt32(t *testing.T) {
	t.Setenv("TALLY_TEST_I32", "25")
	if got := EnvInt32("TALLY_TEST_I32", 10); got != 25 {
		t.Fatalf("EnvInt32=%d", got)
	}

	t.Setenv("TALLY_TEST_I32", "-3")
	if got := EnvInt32("TALLY_TEST_I32", 10); got != 10 {
		t.Fatalf("negative value should fall back: %d", got)
	}
}
