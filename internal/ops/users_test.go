package ops

import (
	"testing"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

func TestRegisterAndLogin(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	reg, err := Register(database, RegisterInput{Username: "alex", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	if reg.UserID == 0 || reg.Username != "alex" {
		t.Fatalf("register output = %+v", reg)
	}

	login, err := Login(database, LoginInput{Username: "alex", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	if login.UserID != reg.UserID {
		t.Errorf("login user id = %d, want %d", login.UserID, reg.UserID)
	}
	if login.LastProjectID != nil {
		t.Errorf("fresh account has last project %v", *login.LastProjectID)
	}
}

func TestRegisterValidation(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if _, err := Register(database, RegisterInput{Username: "", Password: "password123"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty username: %v", err)
	}
	if _, err := Register(database, RegisterInput{Username: "alex", Password: "short"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("short password: %v", err)
	}

	if _, err := Register(database, RegisterInput{Username: "alex", Password: "password123"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Register(database, RegisterInput{Username: "alex", Password: "password456"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("duplicate username: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if _, err := Register(database, RegisterInput{Username: "alex", Password: "password123"}); err != nil {
		t.Fatal(err)
	}

	// Wrong password and unknown user fail identically.
	if _, err := Login(database, LoginInput{Username: "alex", Password: "wrong-password"}); !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := Login(database, LoginInput{Username: "nobody", Password: "password123"}); !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestLoginRestoresLastProject(t *testing.T) {
	database, s := newTestEnv(t)

	login, err := Login(database, LoginInput{Username: "tester", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if login.LastProjectID == nil || *login.LastProjectID != s.ProjectID {
		t.Errorf("last project = %v, want %d", login.LastProjectID, s.ProjectID)
	}
}

func TestLoginDropsStaleLastProject(t *testing.T) {
	database, s := newTestEnv(t)

	// Point a second account's last-project at a project it does not own.
	other, err := Register(database, RegisterInput{Username: "other", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetLastProject(database, other.UserID, &s.ProjectID); err != nil {
		t.Fatal(err)
	}

	login, err := Login(database, LoginInput{Username: "other", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if login.LastProjectID != nil {
		t.Errorf("foreign last project surfaced: %d", *login.LastProjectID)
	}

	t.Run("missing project", func(t *testing.T) {
		missing := s.ProjectID + 100
		if err := db.SetLastProject(database, other.UserID, &missing); err != nil {
			t.Fatal(err)
		}
		login, err := Login(database, LoginInput{Username: "other", Password: "password123"})
		if err != nil {
			t.Fatal(err)
		}
		if login.LastProjectID != nil {
			t.Errorf("missing last project surfaced: %d", *login.LastProjectID)
		}
	})
}
