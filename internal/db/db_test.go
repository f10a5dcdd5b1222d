package db

import (
	"path/filepath"
	"testing"

	"github.com/veil-sh/veil/internal/errors"
)

func TestInitCreatesSchema(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	version, err := GetUserVersion(database)
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}

	// All tables must exist.
	tables := []string{
		"user_account", "project", "project_file", "entity_mapping",
		"category_counter", "replacement_history", "user_known_name",
		"project_known_name",
	}
	for _, table := range tables {
		var name string
		err := database.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	if _, err := filepath.Glob(filepath.Join(tmpDir, "veil.db*")); err != nil {
		t.Fatal(err)
	}
}

func TestInitIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	first, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	first.Close()

	second, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer second.Close()

	version, err := GetUserVersion(second)
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d after re-init", version)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if _, err := CreateUser(database, "alice", "hash1"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	_, err = CreateUser(database, "alice", "hash2")
	if err != ErrUniqueConstraint {
		t.Errorf("duplicate CreateUser = %v, want ErrUniqueConstraint", err)
	}
}

func TestUserLastProject(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	uid, err := CreateUser(database, "alice", "hash")
	if err != nil {
		t.Fatal(err)
	}
	pid, err := CreateProject(database, uid, "deal-room", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := SetLastProject(database, uid, &pid); err != nil {
		t.Fatalf("SetLastProject failed: %v", err)
	}
	u, err := GetUserByID(database, uid)
	if err != nil {
		t.Fatal(err)
	}
	if u.LastProjectID == nil || *u.LastProjectID != pid {
		t.Errorf("LastProjectID = %v, want %d", u.LastProjectID, pid)
	}

	if err := SetLastProject(database, uid, nil); err != nil {
		t.Fatal(err)
	}
	u, err = GetUserByID(database, uid)
	if err != nil {
		t.Fatal(err)
	}
	if u.LastProjectID != nil {
		t.Errorf("LastProjectID = %v after clear, want nil", u.LastProjectID)
	}

	if err := SetLastProject(database, 999, nil); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("SetLastProject for missing user = %v, want NOT_FOUND", err)
	}
}

func TestProjectUniquePerOwner(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	alice, _ := CreateUser(database, "alice", "h")
	bob, _ := CreateUser(database, "bob", "h")

	if _, err := CreateProject(database, alice, "atlas", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateProject(database, alice, "atlas", ""); err != ErrUniqueConstraint {
		t.Errorf("duplicate project = %v, want ErrUniqueConstraint", err)
	}
	// Same name under a different owner is fine.
	if _, err := CreateProject(database, bob, "atlas", ""); err != nil {
		t.Errorf("same name, other owner = %v", err)
	}
}

func TestProjectFileUpsert(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	uid, _ := CreateUser(database, "alice", "h")
	pid, _ := CreateProject(database, uid, "atlas", "")

	if err := UpsertProjectFile(database, pid, "hash-a", "/tmp/doc.txt", nil); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	obscured := "/tmp/Obscured_doc.txt"
	if err := UpsertProjectFile(database, pid, "hash-a", "/tmp/doc.txt", &obscured); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	files, err := ListProjectFiles(database, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1 (upsert, not insert)", len(files))
	}
	if files[0].LastObscuredPath == nil || *files[0].LastObscuredPath != obscured {
		t.Errorf("LastObscuredPath = %v", files[0].LastObscuredPath)
	}

	// Upsert without an obscured path must keep the stored one.
	if err := UpsertProjectFile(database, pid, "hash-a", "/tmp/doc.txt", nil); err != nil {
		t.Fatal(err)
	}
	files, _ = ListProjectFiles(database, pid)
	if files[0].LastObscuredPath == nil || *files[0].LastObscuredPath != obscured {
		t.Errorf("LastObscuredPath lost on refresh: %v", files[0].LastObscuredPath)
	}
}
