package tool

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Environ returns the subprocess environment. When toolPath is set it is
// prepended to PATH; otherwise the ambient environment is used as-is.
func Environ(toolPath string) []string {
	if toolPath == "" {
		return os.Environ()
	}
	path := toolPath + string(os.PathListSeparator) + os.Getenv("PATH")
	return append(os.Environ(), "PATH="+path)
}

// LookPath resolves name against toolPath first, then the ambient PATH.
// A name containing a path separator is resolved relative to the working
// directory like exec.LookPath does.
func LookPath(toolPath, name string) (string, error) {
	if toolPath != "" && filepath.Base(name) == name {
		candidate := filepath.Join(toolPath, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}
