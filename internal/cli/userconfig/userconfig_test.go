package userconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRememberLogin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	current, err := CurrentBackend()
	if err != nil {
		t.Fatalf("CurrentBackend on missing file: %v", err)
	}
	if current != "" {
		t.Errorf("expected no current backend, got %q", current)
	}

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := RememberLogin("https://api.example.com", "a@example.com", at); err != nil {
		t.Fatalf("RememberLogin: %v", err)
	}
	if err := RememberLogin("http://localhost:5000", "dev@example.com", at.Add(time.Hour)); err != nil {
		t.Fatalf("RememberLogin: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "voyago", "state.json")); err != nil {
		t.Fatalf("expected state file to exist: %v", err)
	}

	current, _ = CurrentBackend()
	if current != "http://localhost:5000" {
		t.Errorf("expected last sign-in to be current, got %q", current)
	}

	email, _ := LastEmail("https://api.example.com")
	if email != "a@example.com" {
		t.Errorf("expected remembered email per backend, got %q", email)
	}

	st, err := Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	acct, ok := st.Account("https://api.example.com")
	if !ok || !acct.LastLogin.Equal(at) {
		t.Errorf("expected last login %v, got %+v", at, acct)
	}
	if _, ok := st.Account("https://unknown.example.com"); ok {
		t.Error("expected no account for an unknown backend")
	}
}

func TestRead_CorruptFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "voyago")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(); err == nil {
		t.Error("expected parse error for corrupt state")
	}
	if err := RememberLogin("http://localhost:5000", "a@example.com", time.Now()); err == nil {
		t.Error("expected RememberLogin to refuse to overwrite a corrupt state file")
	}
}
