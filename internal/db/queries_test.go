package db

import (
	"database/sql"
	"testing"

	"github.com/veil-sh/veil/internal/entity"
)

func testProject(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	uid, err := CreateUser(database, "owner", "hash")
	if err != nil {
		t.Fatal(err)
	}
	pid, err := CreateProject(database, uid, "proj", "")
	if err != nil {
		t.Fatal(err)
	}
	return database, pid
}

func TestMappingRoundTrip(t *testing.T) {
	database, pid := testProject(t)

	m := &Mapping{
		ID:            "01JMAPPING0000000000000000",
		ProjectID:     pid,
		Category:      entity.CategoryPerson,
		OriginalValue: "Ryan Jacobson",
		Pseudonym:     "Person_001",
	}
	if err := InsertMapping(database, m); err != nil {
		t.Fatalf("InsertMapping failed: %v", err)
	}

	got, err := GetMapping(database, pid, "Ryan Jacobson")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("mapping not found")
	}
	if got.Pseudonym != "Person_001" || got.Category != entity.CategoryPerson {
		t.Errorf("got %+v", got)
	}
	if got.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}
}

func TestMappingMissingIsNil(t *testing.T) {
	database, pid := testProject(t)

	got, err := GetMapping(database, pid, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestMappingUniquePerProjectValue(t *testing.T) {
	database, pid := testProject(t)

	first := &Mapping{ID: "id-1", ProjectID: pid, Category: entity.CategoryOrg,
		OriginalValue: "Acme Corp", Pseudonym: "Org_001"}
	if err := InsertMapping(database, first); err != nil {
		t.Fatal(err)
	}

	dup := &Mapping{ID: "id-2", ProjectID: pid, Category: entity.CategoryOrg,
		OriginalValue: "Acme Corp", Pseudonym: "Org_002"}
	if err := InsertMapping(database, dup); err != ErrUniqueConstraint {
		t.Errorf("duplicate insert = %v, want ErrUniqueConstraint", err)
	}
}

func TestCounterDefaultsAndUpdates(t *testing.T) {
	database, pid := testProject(t)

	last, err := GetLastIndex(database, pid, entity.CategoryPatent)
	if err != nil {
		t.Fatal(err)
	}
	if last != 0 {
		t.Errorf("fresh counter = %d, want 0", last)
	}

	if err := SetLastIndex(database, pid, entity.CategoryPatent, 1); err != nil {
		t.Fatal(err)
	}
	if err := SetLastIndex(database, pid, entity.CategoryPatent, 2); err != nil {
		t.Fatal(err)
	}

	last, err = GetLastIndex(database, pid, entity.CategoryPatent)
	if err != nil {
		t.Fatal(err)
	}
	if last != 2 {
		t.Errorf("counter = %d, want 2", last)
	}

	// Other categories are independent.
	last, _ = GetLastIndex(database, pid, entity.CategoryPerson)
	if last != 0 {
		t.Errorf("person counter = %d, want 0", last)
	}
}

func TestCounterInsideTransaction(t *testing.T) {
	database, pid := testProject(t)

	err := WithTx(database, func(tx *sql.Tx) error {
		if err := SetLastIndex(tx, pid, entity.CategoryOther, 5); err != nil {
			return err
		}
		return InsertMapping(tx, &Mapping{
			ID: "tx-1", ProjectID: pid, Category: entity.CategoryOther,
			OriginalValue: "ryan@acme.com", Pseudonym: "Other_005",
		})
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	last, _ := GetLastIndex(database, pid, entity.CategoryOther)
	if last != 5 {
		t.Errorf("counter = %d after commit, want 5", last)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	database, pid := testProject(t)

	seed := &Mapping{ID: "seed", ProjectID: pid, Category: entity.CategoryOther,
		OriginalValue: "dup@acme.com", Pseudonym: "Other_001"}
	if err := InsertMapping(database, seed); err != nil {
		t.Fatal(err)
	}

	err := WithTx(database, func(tx *sql.Tx) error {
		if err := SetLastIndex(tx, pid, entity.CategoryOther, 99); err != nil {
			return err
		}
		// Fails on the unique constraint; counter bump must roll back too.
		return InsertMapping(tx, &Mapping{
			ID: "loser", ProjectID: pid, Category: entity.CategoryOther,
			OriginalValue: "dup@acme.com", Pseudonym: "Other_099",
		})
	})
	if err != ErrUniqueConstraint {
		t.Fatalf("WithTx = %v, want ErrUniqueConstraint", err)
	}

	last, _ := GetLastIndex(database, pid, entity.CategoryOther)
	if last != 0 {
		t.Errorf("counter = %d after rollback, want 0", last)
	}
}

func TestKnownNamesDedupe(t *testing.T) {
	database, pid := testProject(t)

	for _, n := range []string{"Acme Corp", "Acme Corp", "  Acme Corp  "} {
		if err := AddProjectKnownName(database, pid, n); err != nil {
			t.Fatal(err)
		}
	}
	names, err := ListProjectKnownNames(database, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "Acme Corp" {
		t.Errorf("names = %v", names)
	}

	// Case-sensitive uniqueness: a different casing is a distinct entry.
	if err := AddProjectKnownName(database, pid, "ACME CORP"); err != nil {
		t.Fatal(err)
	}
	names, _ = ListProjectKnownNames(database, pid)
	if len(names) != 2 {
		t.Errorf("names = %v, want 2 entries", names)
	}

	if err := DeleteProjectKnownName(database, pid, "Acme Corp"); err != nil {
		t.Fatal(err)
	}
	names, _ = ListProjectKnownNames(database, pid)
	if len(names) != 1 || names[0] != "ACME CORP" {
		t.Errorf("names after delete = %v", names)
	}
}

func TestKnownNamesRejectEmpty(t *testing.T) {
	database, pid := testProject(t)
	if err := AddProjectKnownName(database, pid, "   "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestHistoryAppendOnly(t *testing.T) {
	database, pid := testProject(t)

	if err := RecordHistory(database, pid, "run-1", "in-a", "out-a"); err != nil {
		t.Fatal(err)
	}
	if err := RecordHistory(database, pid, "run-2", "in-b", "out-b"); err != nil {
		t.Fatal(err)
	}

	entries, err := ListHistory(database, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].RunID != "run-2" {
		t.Errorf("first entry = %q, want run-2", entries[0].RunID)
	}
	if entries[0].InputHash != "in-b" || entries[0].OutputHash != "out-b" {
		t.Errorf("entry = %+v", entries[0])
	}
}
