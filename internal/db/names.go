package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/veil-sh/veil/internal/errors"
)

// Forced-redaction name lists. Names are stored trimmed and matched
// case-sensitively; uniqueness is per scope (user or project).

// AddUserKnownName adds a string to the user's global always-redact list.
// Re-adding an existing name is a no-op.
func AddUserKnownName(db *sql.DB, userID int64, nameText string) error {
	return addKnownName(db,
		`INSERT OR IGNORE INTO user_known_name (user_id, name_text, created_at) VALUES (?, ?, ?)`,
		userID, nameText)
}

// ListUserKnownNames returns the user's forced-redaction strings.
func ListUserKnownNames(db *sql.DB, userID int64) ([]string, error) {
	return listKnownNames(db,
		`SELECT name_text FROM user_known_name WHERE user_id = ? ORDER BY name_text COLLATE NOCASE ASC`,
		userID)
}

// DeleteUserKnownName removes a string from the user's list.
func DeleteUserKnownName(db *sql.DB, userID int64, nameText string) error {
	_, err := db.Exec(
		`DELETE FROM user_known_name WHERE user_id = ? AND name_text = ?`,
		userID, nameText,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AddProjectKnownName adds a string to the project's forced-redaction list.
// Re-adding an existing name is a no-op.
func AddProjectKnownName(db *sql.DB, projectID int64, nameText string) error {
	return addKnownName(db,
		`INSERT OR IGNORE INTO project_known_name (project_id, name_text, created_at) VALUES (?, ?, ?)`,
		projectID, nameText)
}

// ListProjectKnownNames returns the project's forced-redaction strings.
func ListProjectKnownNames(db *sql.DB, projectID int64) ([]string, error) {
	return listKnownNames(db,
		`SELECT name_text FROM project_known_name WHERE project_id = ? ORDER BY name_text COLLATE NOCASE ASC`,
		projectID)
}

// DeleteProjectKnownName removes a string from the project's list.
func DeleteProjectKnownName(db *sql.DB, projectID int64, nameText string) error {
	_, err := db.Exec(
		`DELETE FROM project_known_name WHERE project_id = ? AND name_text = ?`,
		projectID, nameText,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func addKnownName(db *sql.DB, query string, scopeID int64, nameText string) error {
	nameText = strings.TrimSpace(nameText)
	if nameText == "" {
		return errors.NewInvalidRequest("name text must not be empty")
	}
	if _, err := db.Exec(query, scopeID, nameText, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func listKnownNames(db *sql.DB, query string, scopeID int64) ([]string, error) {
	rows, err := db.Query(query, scopeID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.NewInternal(err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return names, nil
}
