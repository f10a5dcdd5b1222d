package ops

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/detect"
	"github.com/veil-sh/veil/internal/entity"
	"github.com/veil-sh/veil/internal/errors"
)

// ObscureCounters summarizes one obscure run.
type ObscureCounters struct {
	Replacements    int `json:"replacements"`
	NewMappings     int `json:"new_mappings"`
	ReusedMappings  int `json:"reused_mappings"`
	SkippedTemporal int `json:"skipped_temporal"`
}

// ObscureTextInput contains parameters for the ObscureText operation.
type ObscureTextInput struct {
	Text string
}

// ObscureTextOutput contains the result of the ObscureText operation.
type ObscureTextOutput struct {
	Text     string          `json:"text"`
	RunID    string          `json:"run_id"`
	Counters ObscureCounters `json:"counters"`
}

// ObscureText replaces every detected or known-name span in the text with
// its project-stable pseudonym and records the run in the replacement
// history. Re-running on the same text reuses the same pseudonyms and
// yields the same output.
func ObscureText(database *sql.DB, det *detect.Detector, s Session, input ObscureTextInput) (*ObscureTextOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}

	res, err := det.Detect(input.Text)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	known, err := forcedNames(database, s.UserID, project.ID)
	if err != nil {
		return nil, err
	}
	spans := entity.Resolve(append(res.Spans, detect.MatchForced(input.Text, known)...))

	counters := ObscureCounters{SkippedTemporal: res.SkippedTemporal}

	// One pseudonym lookup per distinct value per run; repeats hit the
	// in-memory map instead of the database.
	cache := make(map[string]string)
	out := input.Text
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		pseudonym, ok := cache[span.Text]
		if !ok {
			var created bool
			pseudonym, created, err = getOrCreatePseudonym(database, project.ID, span.Category, span.Text)
			if err != nil {
				return nil, err
			}
			cache[span.Text] = pseudonym
			if created {
				counters.NewMappings++
			} else {
				counters.ReusedMappings++
			}
		}
		out = out[:span.Start] + pseudonym + out[span.End:]
		counters.Replacements++
	}

	runID := uuid.NewString()
	if err := db.RecordHistory(database, project.ID, runID, hashContent(input.Text), hashContent(out)); err != nil {
		return nil, err
	}

	return &ObscureTextOutput{Text: out, RunID: runID, Counters: counters}, nil
}

// ListHistoryOutput contains the result of the ListHistory operation.
type ListHistoryOutput struct {
	Entries []db.HistoryEntry `json:"entries"`
}

// ListHistory returns the active project's obscure runs, newest first.
func ListHistory(database *sql.DB, s Session) (*ListHistoryOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	entries, err := db.ListHistory(database, project.ID)
	if err != nil {
		return nil, err
	}
	return &ListHistoryOutput{Entries: entries}, nil
}
