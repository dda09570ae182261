package credentials

import (
	"errors"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")
	s := openStore(t, path)

	token, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "" {
		t.Errorf("fresh store token = %q, want empty", token)
	}

	if err := s.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	s.Close()

	// The token survives reopening
	s2 := openStore(t, path)
	token, err = s2.Token()
	if err != nil {
		t.Fatalf("Token after reopen: %v", err)
	}
	if token != "abc123" {
		t.Errorf("token = %q, want abc123", token)
	}
}

func TestClearToken(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := s.ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}

	token, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "" {
		t.Errorf("token after clear = %q, want empty", token)
	}
}

func TestSetTokenOverwrites(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.SetToken("first"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetToken("second"); err != nil {
		t.Fatal(err)
	}

	token, _ := s.Token()
	if token != "second" {
		t.Errorf("token = %q, want second", token)
	}
}

func TestPassphraseLocksStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")

	s := openStore(t, path)
	if s.Locked() {
		t.Fatal("fresh store is locked")
	}
	if err := s.SetToken("secret-token"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPassphrase("hunter2"); err != nil {
		t.Fatalf("SetPassphrase: %v", err)
	}
	s.Close()

	s2 := openStore(t, path)
	if !s2.Locked() {
		t.Fatal("store with passphrase opened unlocked")
	}

	if _, err := s2.Token(); !errors.Is(err, ErrLocked) {
		t.Errorf("Token on locked store: err = %v, want ErrLocked", err)
	}
	if err := s2.SetToken("x"); !errors.Is(err, ErrLocked) {
		t.Errorf("SetToken on locked store: err = %v, want ErrLocked", err)
	}

	if s2.Unlock("wrong") {
		t.Error("Unlock accepted a wrong passphrase")
	}
	if !s2.Unlock("hunter2") {
		t.Fatal("Unlock rejected the correct passphrase")
	}

	token, err := s2.Token()
	if err != nil {
		t.Fatalf("Token after unlock: %v", err)
	}
	if token != "secret-token" {
		t.Errorf("token = %q, want secret-token", token)
	}
}
