package ops

import (
	"database/sql"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/detect"
	"github.com/veil-sh/veil/internal/errors"
)

// FileResult reports the outcome for one file in a batch. Error is empty
// on success.
type FileResult struct {
	Path       string          `json:"path"`
	OutputPath string          `json:"output_path,omitempty"`
	Error      string          `json:"error,omitempty"`
	Counters   ObscureCounters `json:"counters,omitempty"`
	Replaced   int             `json:"replaced,omitempty"`
}

// ObscureFilesInput contains parameters for the ObscureFiles operation.
type ObscureFilesInput struct {
	Paths []string
}

// ObscureFilesOutput contains the result of the ObscureFiles operation.
type ObscureFilesOutput struct {
	Results   []FileResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// ObscureFiles obscures each file in order, writing Obscured_<name> next
// to the source and registering both with the active project. A failing
// file is reported in its result and does not stop the rest of the batch.
func ObscureFiles(database *sql.DB, det *detect.Detector, s Session, input ObscureFilesInput) (*ObscureFilesOutput, error) {
	project, err := requireProject(database, s)
	if err != nil {
		return nil, err
	}
	if len(input.Paths) == 0 {
		return nil, errors.NewInvalidRequest("at least one file path is required")
	}

	out := &ObscureFilesOutput{}
	for _, path := range input.Paths {
		result := FileResult{Path: path}

		text, err := readTextFile(path)
		if err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		obscured, err := ObscureText(database, det, s, ObscureTextInput{Text: text})
		if err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		outPath := ObscuredPath(path)
		if err := os.WriteFile(outPath, []byte(obscured.Text), 0644); err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		abs, err := filepath.Abs(path)
		if err == nil {
			absOut, _ := filepath.Abs(outPath)
			_ = db.UpsertProjectFile(database, project.ID, hashPath(abs), filepath.Base(abs), &absOut)
		}

		result.OutputPath = outPath
		result.Counters = obscured.Counters
		out.Results = append(out.Results, result)
		out.Succeeded++
	}
	return out, nil
}

// RestoreFilesInput contains parameters for the RestoreFiles operation.
type RestoreFilesInput struct {
	Paths []string
}

// RestoreFilesOutput contains the result of the RestoreFiles operation.
type RestoreFilesOutput struct {
	Results   []FileResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// RestoreFiles restores each file in order, writing Restored_<name> next
// to the source. Failures are per-file, like ObscureFiles.
func RestoreFiles(database *sql.DB, s Session, input RestoreFilesInput) (*RestoreFilesOutput, error) {
	if _, err := requireProject(database, s); err != nil {
		return nil, err
	}
	if len(input.Paths) == 0 {
		return nil, errors.NewInvalidRequest("at least one file path is required")
	}

	out := &RestoreFilesOutput{}
	for _, path := range input.Paths {
		result := FileResult{Path: path}

		text, err := readTextFile(path)
		if err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		restored, err := RestoreText(database, s, RestoreTextInput{Text: text})
		if err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		outPath := RestoredPath(path)
		if err := os.WriteFile(outPath, []byte(restored.Text), 0644); err != nil {
			result.Error = err.Error()
			out.Results = append(out.Results, result)
			out.Failed++
			continue
		}

		result.OutputPath = outPath
		result.Replaced = restored.Replaced
		out.Results = append(out.Results, result)
		out.Succeeded++
	}
	return out, nil
}

// readTextFile reads a file and rejects content that is not valid UTF-8;
// binary formats must be converted to text before obscuring.
func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.NewInvalidRequest("file is not valid UTF-8 text: " + path)
	}
	return string(raw), nil
}
