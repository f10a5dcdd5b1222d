// Package ops implements the veil operations: account and project
// management, known-name lists, and the obscure/restore pipeline. Each
// operation is a plain function taking the database handle, the caller's
// session, and an input struct; surfaces (CLI, MCP, web) stay thin.
package ops

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

// Session identifies the caller. UserID 0 means not logged in; ProjectID 0
// means no project selected.
type Session struct {
	UserID    int64 `json:"user_id"`
	ProjectID int64 `json:"project_id"`
}

// requireUser rejects unauthenticated sessions.
func requireUser(s Session) error {
	if s.UserID == 0 {
		return errors.NewNotAuthenticated()
	}
	return nil
}

// requireProject loads the session's active project and enforces ownership.
func requireProject(database *sql.DB, s Session) (*db.Project, error) {
	if err := requireUser(s); err != nil {
		return nil, err
	}
	if s.ProjectID == 0 {
		return nil, errors.NewNoActiveProject()
	}
	project, err := db.GetProject(database, s.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerUserID != s.UserID {
		return nil, errors.NewAccessDenied(s.ProjectID)
	}
	return project, nil
}

// hashContent returns the hex SHA-256 of document content, used for
// history rows and file identity.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// hashPath returns the hex SHA-256 of an absolute file path. Paths are
// hashed rather than stored so the database does not leak directory
// structure.
func hashPath(path string) string {
	return hashContent(path)
}

// splitNameList parses a comma- or newline-separated list of names,
// trimming whitespace and dropping empties.
func splitNameList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
