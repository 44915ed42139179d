package batch

import (
	"os"
	"path/filepath"
	"strings"
)

// Discover lists the files of dir in directory order, non-recursively.
// Subdirectories are skipped; the format filter is applied later so the
// summary can report how many entries it excluded.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// MatchFilter reports whether name passes the format filter: a
// case-insensitive substring match against any token. An empty filter
// matches everything.
func MatchFilter(name string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
