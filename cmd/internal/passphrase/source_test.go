package passphrase

import "testing"

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv("QUARK_TEST_PASS", "hunter2")
	src := NewSource("QUARK_TEST_PASS", "signer keystore")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("unexpected passphrase %q", got)
	}
	t.Setenv("QUARK_TEST_PASS", "changed")
	if again, _ := src.Get(); again != "hunter2" {
		t.Fatalf("passphrase not cached")
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("QUARK_TEST_PASS", "  ")
	if _, err := NewSource("QUARK_TEST_PASS", "").Get(); err == nil {
		t.Fatalf("expected error for blank passphrase")
	}
}
