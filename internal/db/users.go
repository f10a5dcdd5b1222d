package db

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/veil-sh/veil/internal/errors"
)

// User is one user_account row.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	PasswordHash  string `json:"-"`
	CreatedAt     int64  `json:"created_at"`
	LastProjectID *int64 `json:"last_project_id,omitempty"`
}

// CreateUser inserts a new user with an already-hashed password and returns
// its id. A duplicate username yields ErrUniqueConstraint.
func CreateUser(db *sql.DB, username, passwordHash string) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO user_account (username, password_hash, created_at, last_project_id)
		 VALUES (?, ?, ?, NULL)`,
		username, passwordHash, time.Now().Unix(),
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

// GetUserByUsername retrieves a user (including the password hash) by name.
func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(
		`SELECT id, username, password_hash, created_at, last_project_id
		 FROM user_account WHERE username = ?`,
		username,
	)
	return scanUser(row, username)
}

// GetUserByID retrieves a user by id.
func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(
		`SELECT id, username, password_hash, created_at, last_project_id
		 FROM user_account WHERE id = ?`,
		id,
	)
	return scanUser(row, strconv.FormatInt(id, 10))
}

// SetLastProject updates the user's last active project pointer.
// A nil projectID clears it.
func SetLastProject(db *sql.DB, userID int64, projectID *int64) error {
	var val sql.NullInt64
	if projectID != nil {
		val = sql.NullInt64{Int64: *projectID, Valid: true}
	}
	res, err := db.Exec(
		`UPDATE user_account SET last_project_id = ? WHERE id = ?`,
		val, userID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound("user", strconv.FormatInt(userID, 10))
	}
	return nil
}

func scanUser(row *sql.Row, identifier string) (*User, error) {
	var (
		u           User
		lastProject sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &lastProject)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("user", identifier)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if lastProject.Valid {
		u.LastProjectID = &lastProject.Int64
	}
	return &u, nil
}
