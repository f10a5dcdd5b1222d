package ops

import (
	"database/sql"
	stderrors "errors"
	"path/filepath"
	"strings"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

// CreateProjectInput contains parameters for the CreateProject operation.
type CreateProjectInput struct {
	Name  string
	Notes string
}

// CreateProjectOutput contains the result of the CreateProject operation.
type CreateProjectOutput struct {
	Project db.Project `json:"project"`
}

// CreateProject creates a project owned by the session user and records it
// as the user's last-selected project. Project names are unique per owner.
func CreateProject(database *sql.DB, s Session, input CreateProjectInput) (*CreateProjectOutput, error) {
	if err := requireUser(s); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("project name is required")
	}

	id, err := db.CreateProject(database, s.UserID, name, strings.TrimSpace(input.Notes))
	if err != nil {
		if stderrors.Is(err, db.ErrUniqueConstraint) {
			return nil, errors.NewInvalidRequest("a project with that name already exists")
		}
		return nil, err
	}

	if err := db.SetLastProject(database, s.UserID, &id); err != nil {
		return nil, err
	}

	project, err := db.GetProject(database, id)
	if err != nil {
		return nil, err
	}
	return &CreateProjectOutput{Project: *project}, nil
}

// SelectProjectInput contains parameters for the SelectProject operation.
// Exactly one of ProjectID or Name addresses the project; Name resolves
// among the session user's own projects.
type SelectProjectInput struct {
	ProjectID int64
	Name      string
}

// SelectProjectOutput contains the result of the SelectProject operation.
type SelectProjectOutput struct {
	Project db.Project `json:"project"`
}

// SelectProject switches the session's active project after an ownership
// check and persists the choice for the next login.
func SelectProject(database *sql.DB, s Session, input SelectProjectInput) (*SelectProjectOutput, error) {
	if err := requireUser(s); err != nil {
		return nil, err
	}

	var project *db.Project
	switch {
	case input.ProjectID != 0 && strings.TrimSpace(input.Name) != "":
		return nil, errors.NewInvalidRequest("specify either project id or name, not both")
	case input.ProjectID != 0:
		p, err := db.GetProject(database, input.ProjectID)
		if err != nil {
			return nil, err
		}
		if p.OwnerUserID != s.UserID {
			return nil, errors.NewAccessDenied(input.ProjectID)
		}
		project = p
	case strings.TrimSpace(input.Name) != "":
		name := strings.TrimSpace(input.Name)
		list, err := db.ListProjects(database, s.UserID)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if list[i].Name == name {
				project = &list[i]
				break
			}
		}
		if project == nil {
			return nil, errors.NewNotFound("project", name)
		}
	default:
		return nil, errors.NewInvalidRequest("project id or name is required")
	}

	if err := db.SetLastProject(database, s.UserID, &project.ID); err != nil {
		return nil, err
	}
	return &SelectProjectOutput{Project: *project}, nil
}

// ListProjectsOutput contains the result of the ListProjects operation.
type ListProjectsOutput struct {
	Projects []db.Project `json:"projects"`
}

// ListProjects returns the session user's projects, oldest first.
func ListProjects(database *sql.DB, s Session) (*ListProjectsOutput, error) {
	if err := requireUser(s); err != nil {
		return nil, err
	}
	projects, err := db.ListProjects(database, s.UserID)
	if err != nil {
		return nil, err
	}
	return &ListProjectsOutput{Projects: projects}, nil
}

// AddFilesInput contains parameters for the AddFiles operation.
type AddFilesInput struct {
	Paths []string
}

// AddFilesOutput contains the result of the AddFiles operation.
type AddFilesOutput struct {
	Added int `json:"added"`
}

// AddFiles registers file paths with the active project. Only the path
// hash and the base name are stored.
func AddFiles(database *sql.DB, s Session, input AddFilesInput) (*AddFilesOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	if len(input.Paths) == 0 {
		return nil, errors.NewInvalidRequest("at least one file path is required")
	}

	added := 0
	for _, path := range input.Paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.NewInvalidRequest("invalid path: " + path)
		}
		if err := db.UpsertProjectFile(database, project.ID, hashPath(abs), filepath.Base(abs), nil); err != nil {
			return nil, err
		}
		added++
	}
	return &AddFilesOutput{Added: added}, nil
}

// ListFilesOutput contains the result of the ListFiles operation.
type ListFilesOutput struct {
	Files []db.ProjectFile `json:"files"`
}

// ListFiles returns the active project's registered files, most recently
// used first.
func ListFiles(database *sql.DB, s Session) (*ListFilesOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	files, err := db.ListProjectFiles(database, project.ID)
	if err != nil {
		return nil, err
	}
	return &ListFilesOutput{Files: files}, nil
}
