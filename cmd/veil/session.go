package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/veil-sh/veil/internal/ops"
)

// sessionPath returns the location of the persisted CLI session.
func sessionPath(baseDir string) string {
	return filepath.Join(baseDir, "session.json")
}

// loadSession reads the persisted session. A missing file means nobody is
// logged in and returns the zero session.
func loadSession(baseDir string) (ops.Session, error) {
	data, err := os.ReadFile(sessionPath(baseDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ops.Session{}, nil
		}
		return ops.Session{}, err
	}

	var s ops.Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt session file is treated as logged out.
		return ops.Session{}, nil
	}
	return s, nil
}

// saveSession persists the session for subsequent CLI invocations.
func saveSession(baseDir string, s ops.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(sessionPath(baseDir), data, 0600)
}

// clearSession removes the persisted session.
func clearSession(baseDir string) error {
	err := os.Remove(sessionPath(baseDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
