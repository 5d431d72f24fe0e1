// Package artifacts persists generated Markdown files under a confined
// output root.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrPathNotAllowed indicates a path argument escapes the output root.
var ErrPathNotAllowed = errors.New("artifacts: path not allowed")

// timestampLayout names artifacts down to the second.
const timestampLayout = "20060102_150405"

// Meta is one metadata header line, rendered as "key: value".
type Meta struct {
	Key   string
	Value string
}

// Store saves, reads, and deletes generated artifacts. Every operation
// re-validates that the resolved path stays inside the output root.
type Store struct {
	root  string
	nowFn func() time.Time
}

// NewStore constructs a Store rooted at the given directory.
func NewStore(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifacts: empty root")
	}
	abs, errAbs := filepath.Abs(root)
	if errAbs != nil {
		return nil, fmt.Errorf("artifacts: resolve root: %w", errAbs)
	}
	if errMkdir := os.MkdirAll(abs, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("artifacts: create root: %w", errMkdir)
	}
	return &Store{root: abs, nowFn: time.Now}, nil
}

// Save writes content as a Markdown file under the category directory and
// returns its path relative to the root. When metadata is supplied the
// content is prefixed with a ----delimited header block.
func (s *Store) Save(category string, subjectID uint64, content string, metadata []Meta) (string, error) {
	if s == nil {
		return "", errors.New("artifacts: nil store")
	}
	category = sanitizeCategory(category)
	if category == "" {
		return "", fmt.Errorf("%w: empty category", ErrPathNotAllowed)
	}

	name := fmt.Sprintf("%s_%d_%s.md", category, subjectID, s.nowFn().UTC().Format(timestampLayout))
	relPath := filepath.Join(category, name)
	absPath, errResolve := s.resolve(relPath)
	if errResolve != nil {
		return "", errResolve
	}

	if errMkdir := os.MkdirAll(filepath.Dir(absPath), 0o755); errMkdir != nil {
		return "", fmt.Errorf("artifacts: create category dir: %w", errMkdir)
	}

	var builder strings.Builder
	if len(metadata) > 0 {
		builder.WriteString("---\n")
		for _, item := range metadata {
			builder.WriteString(item.Key)
			builder.WriteString(": ")
			builder.WriteString(item.Value)
			builder.WriteString("\n")
		}
		builder.WriteString("---\n\n")
	}
	builder.WriteString(content)

	if errWrite := os.WriteFile(absPath, []byte(builder.String()), 0o644); errWrite != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", relPath, errWrite)
	}
	return relPath, nil
}

// Read returns the content of an artifact by its relative path.
func (s *Store) Read(relPath string) (string, error) {
	if s == nil {
		return "", errors.New("artifacts: nil store")
	}
	absPath, errResolve := s.resolve(relPath)
	if errResolve != nil {
		return "", errResolve
	}
	data, errRead := os.ReadFile(absPath)
	if errRead != nil {
		return "", fmt.Errorf("artifacts: read %s: %w", relPath, errRead)
	}
	return string(data), nil
}

// Delete removes an artifact by its relative path.
func (s *Store) Delete(relPath string) error {
	if s == nil {
		return errors.New("artifacts: nil store")
	}
	absPath, errResolve := s.resolve(relPath)
	if errResolve != nil {
		return errResolve
	}
	if errRemove := os.Remove(absPath); errRemove != nil {
		return fmt.Errorf("artifacts: delete %s: %w", relPath, errRemove)
	}
	return nil
}

// resolve turns a relative path into an absolute one and fails closed when
// the result leaves the root.
func (s *Store) resolve(relPath string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %q", ErrPathNotAllowed, relPath)
	}
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathNotAllowed, relPath)
		}
	}
	absPath, errAbs := filepath.Abs(filepath.Join(s.root, relPath))
	if errAbs != nil {
		return "", fmt.Errorf("artifacts: resolve %s: %w", relPath, errAbs)
	}
	if absPath != s.root && !strings.HasPrefix(absPath, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathNotAllowed, relPath)
	}
	return absPath, nil
}

// sanitizeCategory keeps category names to a safe character set.
func sanitizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	var builder strings.Builder
	for _, r := range category {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
