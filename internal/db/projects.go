package db

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/veil-sh/veil/internal/errors"
)

// Project is one project row.
type Project struct {
	ID          int64  `json:"id"`
	OwnerUserID int64  `json:"owner_user_id"`
	Name        string `json:"name"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// CreateProject inserts a new project for the owner and returns its id.
// A duplicate (owner, name) yields ErrUniqueConstraint.
func CreateProject(db *sql.DB, ownerUserID int64, name, notes string) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO project (owner_user_id, name, notes, created_at)
		 VALUES (?, ?, ?, ?)`,
		ownerUserID, name, notes, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrUniqueConstraint
		}
		return 0, errors.NewInternal(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return id, nil
}

// GetProject retrieves a project by id.
func GetProject(db *sql.DB, id int64) (*Project, error) {
	row := db.QueryRow(
		`SELECT id, owner_user_id, name, notes, created_at FROM project WHERE id = ?`,
		id,
	)

	var (
		p     Project
		notes sql.NullString
	)
	err := row.Scan(&p.ID, &p.OwnerUserID, &p.Name, &notes, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if notes.Valid {
		p.Notes = notes.String
	}
	return &p, nil
}

// GetProjectOwner returns the owner user id for a project.
func GetProjectOwner(db *sql.DB, projectID int64) (int64, error) {
	var owner int64
	err := db.QueryRow(
		`SELECT owner_user_id FROM project WHERE id = ?`, projectID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, errors.NewNotFound("project", strconv.FormatInt(projectID, 10))
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return owner, nil
}

// ListProjects returns all projects owned by the user, oldest first.
func ListProjects(db *sql.DB, ownerUserID int64) ([]Project, error) {
	rows, err := db.Query(
		`SELECT id, owner_user_id, name, notes, created_at
		 FROM project WHERE owner_user_id = ? ORDER BY created_at ASC, id ASC`,
		ownerUserID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var (
			p     Project
			notes sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.OwnerUserID, &p.Name, &notes, &p.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		if notes.Valid {
			p.Notes = notes.String
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return projects, nil
}
