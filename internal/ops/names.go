package ops

import (
	"database/sql"
	"os"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

// NameScope selects which known-name list an operation targets.
type NameScope string

const (
	// ScopeUser names follow the user into every project.
	ScopeUser NameScope = "user"
	// ScopeProject names apply only within the active project.
	ScopeProject NameScope = "project"
)

// AddNamesInput contains parameters for the AddNames operation. Names and
// FromFile may be combined; the file holds comma- or newline-separated
// entries.
type AddNamesInput struct {
	Scope    NameScope
	Names    []string
	FromFile string
}

// AddNamesOutput contains the result of the AddNames operation.
type AddNamesOutput struct {
	Added int      `json:"added"`
	Names []string `json:"names"`
}

// AddNames appends names to the user or project known-name list.
// Duplicates are silently skipped.
func AddNames(database *sql.DB, s Session, input AddNamesInput) (*AddNamesOutput, error) {
	scopeID, err := resolveScope(database, s, input.Scope)
	if err != nil {
		return nil, err
	}

	names := append([]string(nil), input.Names...)
	if input.FromFile != "" {
		raw, err := os.ReadFile(input.FromFile)
		if err != nil {
			return nil, errors.NewInvalidRequest("cannot read names file: " + err.Error())
		}
		names = append(names, splitNameList(string(raw))...)
	}
	if len(names) == 0 {
		return nil, errors.NewInvalidRequest("no names given")
	}

	out := &AddNamesOutput{}
	for _, name := range names {
		var err error
		if input.Scope == ScopeUser {
			err = db.AddUserKnownName(database, scopeID, name)
		} else {
			err = db.AddProjectKnownName(database, scopeID, name)
		}
		if err != nil {
			return nil, err
		}
		out.Added++
		out.Names = append(out.Names, name)
	}
	return out, nil
}

// ListNamesOutput contains the result of the ListNames operation.
type ListNamesOutput struct {
	Names []string `json:"names"`
}

// ListNames returns one known-name list, sorted case-insensitively.
func ListNames(database *sql.DB, s Session, scope NameScope) (*ListNamesOutput, error) {
	scopeID, err := resolveScope(database, s, scope)
	if err != nil {
		return nil, err
	}

	var names []string
	if scope == ScopeUser {
		names, err = db.ListUserKnownNames(database, scopeID)
	} else {
		names, err = db.ListProjectKnownNames(database, scopeID)
	}
	if err != nil {
		return nil, err
	}
	return &ListNamesOutput{Names: names}, nil
}

// DeleteNameInput contains parameters for the DeleteName operation.
type DeleteNameInput struct {
	Scope NameScope
	Name  string
}

// DeleteName removes one entry from a known-name list. Removing a name
// never touches existing mappings; documents already obscured with it
// still restore.
func DeleteName(database *sql.DB, s Session, input DeleteNameInput) error {
	scopeID, err := resolveScope(database, s, input.Scope)
	if err != nil {
		return err
	}
	if input.Scope == ScopeUser {
		return db.DeleteUserKnownName(database, scopeID, input.Name)
	}
	return db.DeleteProjectKnownName(database, scopeID, input.Name)
}

// forcedNames returns the union of the user's and active project's
// known-name lists for the obscure pipeline.
func forcedNames(database *sql.DB, userID, projectID int64) ([]string, error) {
	userNames, err := db.ListUserKnownNames(database, userID)
	if err != nil {
		return nil, err
	}
	projectNames, err := db.ListProjectKnownNames(database, projectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(userNames)+len(projectNames))
	var out []string
	for _, n := range append(userNames, projectNames...) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func resolveScope(database *sql.DB, s Session, scope NameScope) (int64, error) {
	switch scope {
	case ScopeUser:
		if err := requireUser(s); err != nil {
			return 0, err
		}
		return s.UserID, nil
	case ScopeProject:
		project, err := requireProject(database, s)
		if err != nil {
			return 0, err
		}
		return project.ID, nil
	default:
		return 0, errors.NewInvalidRequest("scope must be one of: user, project")
	}
}
