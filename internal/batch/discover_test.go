package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{}, 0o644))
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestDiscover_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")
	touch(t, dir, "b.png")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "thumbnails"), 0o755))
	touch(t, filepath.Join(dir, "thumbnails"), "c.jpg")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, basenames(files))
}

func TestDiscover_EmptyDir(t *testing.T) {
	files, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestMatchFilter(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		tokens []string
		want   bool
	}{
		{"empty filter matches all", "anything.txt", nil, true},
		{"extension match", "a.jpg", []string{"jpg", "png"}, true},
		{"case-insensitive match", "PHOTO.JPG", []string{"jpg"}, true},
		{"uppercase stored name", "a.PNG", []string{"png"}, true},
		{"no match", "c.txt", []string{"jpg", "png"}, false},
		{"substring anywhere in name", "jpg-notes.txt", []string{"jpg"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchFilter(tt.file, tt.tokens))
		})
	}
}
