package db

import (
	"database/sql"
	"time"

	"github.com/veil-sh/veil/internal/errors"
)

// ProjectFile is one project_file row. A source file is identified by the
// SHA-256 of its absolute path, not its content, so renames register as new
// files but edits do not.
type ProjectFile struct {
	ID               int64   `json:"id"`
	ProjectID        int64   `json:"project_id"`
	FilePathHash     string  `json:"file_path_hash"`
	DisplayName      string  `json:"display_name"`
	LastUsedAt       int64   `json:"last_used_at"`
	LastObscuredPath *string `json:"last_obscured_path,omitempty"`
}

// UpsertProjectFile inserts or refreshes the record for
// (projectID, filePathHash). last_used_at is always bumped; obscuredPath,
// when non-nil, replaces last_obscured_path.
func UpsertProjectFile(db *sql.DB, projectID int64, filePathHash, displayName string, obscuredPath *string) error {
	now := time.Now().Unix()

	var obscured sql.NullString
	if obscuredPath != nil {
		obscured = sql.NullString{String: *obscuredPath, Valid: true}
	}

	// ON CONFLICT keeps the stored last_obscured_path when none is supplied.
	_, err := db.Exec(
		`INSERT INTO project_file (project_id, file_path_hash, display_name, last_used_at, last_obscured_path)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, file_path_hash) DO UPDATE SET
		   display_name = excluded.display_name,
		   last_used_at = excluded.last_used_at,
		   last_obscured_path = COALESCE(excluded.last_obscured_path, project_file.last_obscured_path)`,
		projectID, filePathHash, displayName, now, obscured,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListProjectFiles returns the files associated with a project, newest
// activity first.
func ListProjectFiles(db *sql.DB, projectID int64) ([]ProjectFile, error) {
	rows, err := db.Query(
		`SELECT id, project_id, file_path_hash, display_name, last_used_at, last_obscured_path
		 FROM project_file WHERE project_id = ? ORDER BY last_used_at DESC, id DESC`,
		projectID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var files []ProjectFile
	for rows.Next() {
		var (
			f        ProjectFile
			obscured sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FilePathHash, &f.DisplayName, &f.LastUsedAt, &obscured); err != nil {
			return nil, errors.NewInternal(err)
		}
		if obscured.Valid {
			f.LastObscuredPath = &obscured.String
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return files, nil
}
