package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxPathLength = 4096

// PathKind tells ValidateLocalPath what should live at the path.
type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

// ValidateLocalPath checks a user-configured storage location and returns it
// cleaned and absolute. A leading ~/ is expanded. Paths with NUL or control
// characters, or with ".." components, are rejected, as is an existing entry
// of the wrong kind.
func ValidateLocalPath(path string, kind PathKind) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > maxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == 0 {
			return "", fmt.Errorf("path contains null bytes")
		}
		if r < 32 && r != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	} else if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("invalid tilde usage")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}

	if info, err := os.Stat(abs); err == nil {
		switch {
		case kind == PathFile && info.IsDir():
			return "", fmt.Errorf("path is a directory, not a file: %s", abs)
		case kind == PathDir && !info.IsDir():
			return "", fmt.Errorf("path exists but is not a directory: %s", abs)
		}
	}
	return abs, nil
}
