package ops

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
)

// RestoreTextInput contains parameters for the RestoreText operation.
type RestoreTextInput struct {
	Text string
}

// RestoreTextOutput contains the result of the RestoreText operation.
type RestoreTextOutput struct {
	Text     string `json:"text"`
	Replaced int    `json:"replaced"`
}

// RestoreText reverses obscuring by replacing every pseudonym found in the
// text with the original value from the active project's mapping table.
// Longer pseudonyms are replaced first so Person_012 is never clipped by
// Person_01.
func RestoreText(database *sql.DB, s Session, input RestoreTextInput) (*RestoreTextOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}

	mappings, err := db.ListMappings(database, project.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return len(mappings[i].Pseudonym) > len(mappings[j].Pseudonym)
	})

	out := input.Text
	replaced := 0
	for _, m := range mappings {
		n := strings.Count(out, m.Pseudonym)
		if n == 0 {
			continue
		}
		out = strings.ReplaceAll(out, m.Pseudonym, m.OriginalValue)
		replaced += n
	}

	return &RestoreTextOutput{Text: out, Replaced: replaced}, nil
}
