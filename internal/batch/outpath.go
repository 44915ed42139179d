package batch

import (
	"path/filepath"
	"strings"
)

// DeriveOutput builds the output path for an input filename: the basename
// without its final extension, joined to outDir, with suffix as the new
// extension. When suffix is empty the file's own extension is kept exactly
// as stored (photo.PNG stays photo.PNG). A file with no extension and no
// suffix override maps to the bare basename.
func DeriveOutput(outDir, name, suffix string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// Dotfiles like ".profile" have no basename before the dot; treat
		// the whole name as the basename instead of producing an empty one.
		base = name
		ext = ""
	}

	out := suffix
	if out == "" {
		out = strings.TrimPrefix(ext, ".")
	}
	if out == "" {
		return filepath.Join(outDir, base)
	}
	return filepath.Join(outDir, base+"."+out)
}
