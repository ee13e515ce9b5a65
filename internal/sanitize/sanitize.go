// Package sanitize cleans identifiers and paths received from remote callers.
package sanitize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB, well above any real path.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default.
	EnvMaxInputSize = "SIEVE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmpty         = errors.New("input is empty")
	ErrOutsideRoot   = errors.New("path is outside the data directory")
)

// Input enforces the size limit, validates UTF-8 and strips every control
// character, then trims surrounding whitespace. An input that is empty
// after cleaning is rejected.
func Input(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		// Rejected rather than truncated: a truncated path names another file.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)

	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmpty
	}
	return clean, nil
}

// Path cleans input with Input and resolves it under root, which defaults
// to the working directory. Absolute paths, paths that climb out of root
// and symlinks that point outside it fail with ErrOutsideRoot. A path that
// does not exist yet is returned as is; reading it fails later.
func Path(root, input string) (string, error) {
	clean, err := Input(input)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(clean) || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, clean)
	}

	if root == "" {
		root = "."
	}
	full := filepath.Join(root, clean)

	resolved, err := filepath.EvalSymlinks(full)
	if errors.Is(err, fs.ErrNotExist) {
		return full, nil
	}
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", clean, err)
	}
	base, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("cannot resolve data directory: %w", err)
	}
	if base, err = filepath.Abs(base); err != nil {
		return "", err
	}
	if resolved, err = filepath.Abs(resolved); err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(base, resolved); err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, clean)
	}
	return full, nil
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
