package ops

import (
	"testing"

	"github.com/veil-sh/veil/internal/errors"
)

func TestCreateProjectSelectsIt(t *testing.T) {
	database, s := newTestEnv(t)

	login, err := Login(database, LoginInput{Username: "tester", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if login.LastProjectID == nil || *login.LastProjectID != s.ProjectID {
		t.Errorf("create did not persist project selection")
	}
}

func TestCreateProjectDuplicateName(t *testing.T) {
	database, s := newTestEnv(t)

	if _, err := CreateProject(database, s, CreateProjectInput{Name: "acme-review"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("duplicate project name: %v", err)
	}
}

func TestSelectProjectByIDAndName(t *testing.T) {
	database, s := newTestEnv(t)

	second, err := CreateProject(database, s, CreateProjectInput{Name: "beta-deal"})
	if err != nil {
		t.Fatal(err)
	}

	byID, err := SelectProject(database, s, SelectProjectInput{ProjectID: s.ProjectID})
	if err != nil {
		t.Fatal(err)
	}
	if byID.Project.ID != s.ProjectID {
		t.Errorf("selected %d, want %d", byID.Project.ID, s.ProjectID)
	}

	byName, err := SelectProject(database, s, SelectProjectInput{Name: "beta-deal"})
	if err != nil {
		t.Fatal(err)
	}
	if byName.Project.ID != second.Project.ID {
		t.Errorf("selected %d, want %d", byName.Project.ID, second.Project.ID)
	}

	if _, err := SelectProject(database, s, SelectProjectInput{Name: "no-such"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown name: %v", err)
	}
	if _, err := SelectProject(database, s, SelectProjectInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("no address: %v", err)
	}
}

func TestSelectProjectDeniesForeign(t *testing.T) {
	database, s := newTestEnv(t)

	other, err := Register(database, RegisterInput{Username: "intruder", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := SelectProject(database, Session{UserID: other.UserID}, SelectProjectInput{ProjectID: s.ProjectID}); !errors.Is(err, errors.ErrAccessDenied) {
		t.Errorf("foreign select: %v", err)
	}
}

func TestOpsRequireSession(t *testing.T) {
	database, s := newTestEnv(t)

	if _, err := ListProjects(database, Session{}); !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("no user: %v", err)
	}
	if _, err := ListMappings(database, Session{UserID: s.UserID}); !errors.Is(err, errors.ErrNoActiveProject) {
		t.Errorf("no project: %v", err)
	}
}

func TestAddAndListFiles(t *testing.T) {
	database, s := newTestEnv(t)

	added, err := AddFiles(database, s, AddFilesInput{Paths: []string{"/tmp/memo.txt", "/tmp/deal.csv"}})
	if err != nil {
		t.Fatal(err)
	}
	if added.Added != 2 {
		t.Errorf("added = %d", added.Added)
	}

	files, err := ListFiles(database, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(files.Files) != 2 {
		t.Fatalf("files = %+v", files.Files)
	}
	names := map[string]bool{}
	for _, f := range files.Files {
		names[f.DisplayName] = true
		if f.FilePathHash == "" || f.FilePathHash == f.DisplayName {
			t.Errorf("path not hashed: %+v", f)
		}
	}
	if !names["memo.txt"] || !names["deal.csv"] {
		t.Errorf("display names = %v", names)
	}
}
