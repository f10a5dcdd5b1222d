package ops

import (
	"path/filepath"
	"strings"
)

const (
	obscuredPrefix = "Obscured_"
	restoredPrefix = "Restored_"
)

// ObscuredPath returns the output path for an obscured copy of path,
// placed next to the source.
func ObscuredPath(path string) string {
	dir, base := filepath.Split(path)
	return dir + obscuredPrefix + base
}

// RestoredPath returns the output path for a restored copy of path. The
// Obscured_ prefix, if present, is stripped before prepending Restored_.
// Only .csv and .docx extensions are kept; everything else is written as
// .txt since restored content is plain text.
func RestoredPath(path string) string {
	dir, base := filepath.Split(path)
	base = strings.TrimPrefix(base, obscuredPrefix)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	switch strings.ToLower(ext) {
	case ".csv", ".docx":
	default:
		ext = ".txt"
	}
	return dir + restoredPrefix + stem + ext
}
