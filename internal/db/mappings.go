package db

import (
	"database/sql"
	"time"

	"github.com/veil-sh/veil/internal/entity"
	"github.com/veil-sh/veil/internal/errors"
)

// Mapping is one entity_mapping row. Rows are immutable once written: the
// restore pipeline depends on every pseudonym ever issued staying resolvable.
type Mapping struct {
	ID            string          `json:"id"`
	ProjectID     int64           `json:"project_id"`
	Category      entity.Category `json:"category"`
	OriginalValue string          `json:"original_value"`
	Pseudonym     string          `json:"pseudonym"`
	CreatedAt     int64           `json:"created_at"`
}

// querier covers both *sql.DB and *sql.Tx so mapping reads can participate
// in the pseudonym-allocation transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// GetMapping fetches the mapping for (projectID, originalValue), or nil if
// this project has never seen that literal string.
func GetMapping(q querier, projectID int64, originalValue string) (*Mapping, error) {
	row := q.QueryRow(
		`SELECT id, project_id, category, original_value, pseudonym, created_at
		 FROM entity_mapping WHERE project_id = ? AND original_value = ?`,
		projectID, originalValue,
	)

	var m Mapping
	err := row.Scan(&m.ID, &m.ProjectID, &m.Category, &m.OriginalValue, &m.Pseudonym, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &m, nil
}

// InsertMapping creates a new immutable mapping row. A duplicate
// (project_id, original_value) yields ErrUniqueConstraint.
func InsertMapping(q querier, m *Mapping) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	_, err := q.Exec(
		`INSERT INTO entity_mapping (id, project_id, category, original_value, pseudonym, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, string(m.Category), m.OriginalValue, m.Pseudonym, m.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListMappings returns every mapping row for a project, oldest first.
func ListMappings(db *sql.DB, projectID int64) ([]Mapping, error) {
	rows, err := db.Query(
		`SELECT id, project_id, category, original_value, pseudonym, created_at
		 FROM entity_mapping WHERE project_id = ? ORDER BY created_at ASC, id ASC`,
		projectID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Category, &m.OriginalValue, &m.Pseudonym, &m.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return mappings, nil
}

// GetLastIndex returns the last issued counter value for this category in
// this project, defaulting to 0.
func GetLastIndex(q querier, projectID int64, category entity.Category) (int, error) {
	var last int
	err := q.QueryRow(
		`SELECT last_index FROM category_counter WHERE project_id = ? AND category = ?`,
		projectID, string(category),
	).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return last, nil
}

// SetLastIndex updates or inserts the counter for this category. Counters
// only move forward; numbers are never reissued.
func SetLastIndex(q querier, projectID int64, category entity.Category, newIndex int) error {
	_, err := q.Exec(
		`INSERT INTO category_counter (project_id, category, last_index)
		 VALUES (?, ?, ?)
		 ON CONFLICT(project_id, category) DO UPDATE SET last_index = excluded.last_index`,
		projectID, string(category), newIndex,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
