package ops

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/entity"
	"github.com/veil-sh/veil/internal/errors"
)

// formatPseudonym renders the stable replacement token for a category and
// per-category index, e.g. Person_001.
func formatPseudonym(category entity.Category, index int) string {
	return fmt.Sprintf("%s_%03d", category.Prefix(), index)
}

// getOrCreatePseudonym returns the pseudonym for (project, originalValue),
// allocating the next per-category index when the value is new. created
// reports whether this call minted the mapping.
//
// Allocation reads the counter, inserts the mapping, and bumps the counter
// in one transaction, so a crash can never leave a pseudonym pointing at
// nothing or two values sharing an index. When two callers race on the
// same value, the UNIQUE(project_id, original_value) constraint picks a
// winner and the loser re-reads the winner's row.
func getOrCreatePseudonym(database *sql.DB, projectID int64, category entity.Category, originalValue string) (pseudonym string, created bool, err error) {
	existing, err := db.GetMapping(database, projectID, originalValue)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.Pseudonym, false, nil
	}

	err = db.WithTx(database, func(tx *sql.Tx) error {
		again, err := db.GetMapping(tx, projectID, originalValue)
		if err != nil {
			return err
		}
		if again != nil {
			pseudonym = again.Pseudonym
			return nil
		}

		last, err := db.GetLastIndex(tx, projectID, category)
		if err != nil {
			return err
		}
		next := last + 1
		pseudonym = formatPseudonym(category, next)

		if err := db.InsertMapping(tx, &db.Mapping{
			ID:            ulid.Make().String(),
			ProjectID:     projectID,
			Category:      category,
			OriginalValue: originalValue,
			Pseudonym:     pseudonym,
			CreatedAt:     time.Now().Unix(),
		}); err != nil {
			return err
		}
		created = true
		return db.SetLastIndex(tx, projectID, category, next)
	})
	if err == nil {
		return pseudonym, created, nil
	}

	if stderrors.Is(err, db.ErrUniqueConstraint) {
		winner, rerr := db.GetMapping(database, projectID, originalValue)
		if rerr != nil {
			return "", false, rerr
		}
		if winner == nil {
			return "", false, errors.NewInternal(fmt.Errorf("mapping for %q vanished after unique violation", originalValue))
		}
		return winner.Pseudonym, false, nil
	}
	return "", false, err
}

// ListMappingsOutput contains the result of the ListMappings operation.
type ListMappingsOutput struct {
	Mappings []db.Mapping `json:"mappings"`
}

// ListMappings returns the active project's mapping table, oldest first.
func ListMappings(database *sql.DB, s Session) (*ListMappingsOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	mappings, err := db.ListMappings(database, project.ID)
	if err != nil {
		return nil, err
	}
	return &ListMappingsOutput{Mappings: mappings}, nil
}
