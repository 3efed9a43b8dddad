package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kyaoi/webcode/internal/embed"
)

var errOutsideRoot = errors.New("path escapes the root directory")

// Dir reads file references relative to a root directory.
type Dir struct {
	root string
	fsys fs.FS
}

// NewDir creates a fetcher that reads from the provided root directory.
func NewDir(root string) *Dir {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Dir{
		root: root,
		fsys: os.DirFS(root),
	}
}

// NewFS creates a fetcher over an arbitrary filesystem.
func NewFS(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// Root returns the directory the fetcher reads from. Empty for NewFS.
func (d *Dir) Root() string {
	return d.root
}

// Fetch returns the content of the file at ref.
func (d *Dir) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if IsGlob(ref) {
		return "", fmt.Errorf("%w: pattern %q matched no files", embed.ErrInvalidFileRef, ref)
	}
	name, err := d.rel(ref)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Abs returns the absolute path of ref, for watching. It fails for
// filesystems that are not rooted on disk.
func (d *Dir) Abs(ref string) (string, error) {
	if d.root == "" {
		return "", fmt.Errorf("%s: no root directory", ref)
	}
	name, err := d.rel(ref)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(d.root, filepath.FromSlash(name)))
}

// Expand replaces glob patterns with the files they match, in order and
// without duplicates. Other references pass through untouched. A pattern
// that matches nothing is kept so that loading reports it.
func (d *Dir) Expand(refs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(ref string) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, ref)
	}

	for _, ref := range refs {
		if !IsGlob(ref) {
			add(ref)
			continue
		}
		pattern, err := d.rel(ref)
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(d.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", ref, err)
		}
		kept := 0
		for _, m := range matches {
			if inSkippedDir(m) {
				continue
			}
			add(m)
			kept++
		}
		if kept == 0 {
			add(ref)
		}
	}
	return out, nil
}

// IsGlob reports whether ref contains glob metacharacters.
func IsGlob(ref string) bool {
	return strings.ContainsAny(ref, "*?[{")
}

func (d *Dir) rel(ref string) (string, error) {
	name := filepath.ToSlash(strings.TrimSpace(ref))
	if d.root != "" && filepath.IsAbs(ref) {
		r, err := filepath.Rel(d.root, ref)
		if err != nil {
			return "", err
		}
		name = filepath.ToSlash(r)
	}
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("%s: %w", ref, errOutsideRoot)
	}
	return name, nil
}

func inSkippedDir(name string) bool {
	parts := strings.Split(name, "/")
	for _, part := range parts[:len(parts)-1] {
		if shouldSkipDir(part) {
			return true
		}
	}
	return false
}

func shouldSkipDir(name string) bool {
	switch strings.ToLower(name) {
	case ".git", "node_modules", ".hg", ".svn", ".idea", ".vscode":
		return true
	default:
		return false
	}
}
