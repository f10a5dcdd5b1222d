package ops

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

const minPasswordLength = 8

// RegisterInput contains parameters for the Register operation.
type RegisterInput struct {
	Username string
	Password string
}

// RegisterOutput contains the result of the Register operation.
type RegisterOutput struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Register creates a new account. The password is bcrypt-hashed before it
// touches the database.
func Register(database *sql.DB, input RegisterInput) (*RegisterOutput, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, errors.NewInvalidRequest("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, errors.NewInvalidRequest("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	id, err := db.CreateUser(database, username, string(hash))
	if err != nil {
		if stderrors.Is(err, db.ErrUniqueConstraint) {
			return nil, errors.NewInvalidRequest("username already taken")
		}
		return nil, err
	}

	return &RegisterOutput{UserID: id, Username: username}, nil
}

// LoginInput contains parameters for the Login operation.
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput contains the result of the Login operation.
type LoginOutput struct {
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	LastProjectID *int64 `json:"last_project_id,omitempty"`
}

// Login verifies credentials and returns the account plus the last project
// the user had selected, so surfaces can restore it as the active project.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func Login(database *sql.DB, input LoginInput) (*LoginOutput, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, errors.NewInvalidRequest("username and password are required")
	}

	user, err := db.GetUserByUsername(database, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNotAuthenticated()
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, errors.NewNotAuthenticated()
	}

	out := &LoginOutput{UserID: user.ID, Username: user.Username, LastProjectID: user.LastProjectID}

	// A stale last-project pointer (project since removed or reassigned)
	// is dropped rather than surfaced.
	if out.LastProjectID != nil {
		owner, err := db.GetProjectOwner(database, *out.LastProjectID)
		if err != nil || owner != user.ID {
			out.LastProjectID = nil
		}
	}

	return out, nil
}
