package db

import (
	"database/sql"
	"time"

	"github.com/veil-sh/veil/internal/errors"
)

// HistoryEntry is one replacement_history row: the append-only audit trail
// of obscure runs. Only content hashes are stored, never text.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	RunID      string `json:"run_id"`
	InputHash  string `json:"input_hash"`
	OutputHash string `json:"output_hash"`
	CreatedAt  int64  `json:"created_at"`
}

// RecordHistory appends an audit row for one obscure run.
func RecordHistory(db *sql.DB, projectID int64, runID, inputHash, outputHash string) error {
	_, err := db.Exec(
		`INSERT INTO replacement_history (project_id, run_id, input_hash, output_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		projectID, runID, inputHash, outputHash, time.Now().Unix(),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListHistory returns the audit trail for a project, newest first.
func ListHistory(db *sql.DB, projectID int64) ([]HistoryEntry, error) {
	rows, err := db.Query(
		`SELECT id, project_id, run_id, input_hash, output_hash, created_at
		 FROM replacement_history WHERE project_id = ? ORDER BY created_at DESC, id DESC`,
		projectID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.RunID, &h.InputHash, &h.OutputHash, &h.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}
