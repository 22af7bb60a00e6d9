// Package userconfig keeps what the CLI remembers between runs: the backend
// it last signed in to and, per backend, the account used there.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Account is what the CLI remembers about one backend
type Account struct {
	Email     string    `json:"email,omitempty"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// State is the content of ~/.config/voyago/state.json
type State struct {
	CurrentBackend string             `json:"current_backend,omitempty"`
	Accounts       map[string]Account `json:"accounts,omitempty"`
}

// Path returns the location of the state file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "voyago", "state.json"), nil
}

// Read loads the state file. A missing file is an empty state.
func Read() (*State, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CLI state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse CLI state %s: %w", path, err)
	}
	return &st, nil
}

// Write replaces the state file through a rename so a crash never leaves it half written
func (st *State) Write() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode CLI state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write CLI state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write CLI state: %w", err)
	}
	return nil
}

// Account returns the remembered account for backendURL, if any
func (st *State) Account(backendURL string) (Account, bool) {
	acct, ok := st.Accounts[backendURL]
	return acct, ok
}

// RememberLogin makes backendURL the current backend and records who signed in and when
func RememberLogin(backendURL, email string, at time.Time) error {
	st, err := Read()
	if err != nil {
		return err
	}

	if st.Accounts == nil {
		st.Accounts = make(map[string]Account)
	}
	st.CurrentBackend = backendURL
	st.Accounts[backendURL] = Account{Email: email, LastLogin: at.UTC()}
	return st.Write()
}

// CurrentBackend returns the backend of the last sign-in, or "" if none
func CurrentBackend() (string, error) {
	st, err := Read()
	if err != nil {
		return "", err
	}
	return st.CurrentBackend, nil
}

// LastEmail returns the email last used on backendURL, or "" if none
func LastEmail(backendURL string) (string, error) {
	st, err := Read()
	if err != nil {
		return "", err
	}
	acct, _ := st.Account(backendURL)
	return acct.Email, nil
}
