package writer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scorepub/internal/fileutil"
)

// Local writes outputs below a root directory on disk.
type Local struct {
	root string
}

// NewLocal creates a filesystem writer rooted at root.
func NewLocal(root string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("writer: local root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create writer root: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the output directory.
func (l *Local) Root() string { return l.root }

// Write stores body atomically through a temp file and rename.
func (l *Local) Write(ctx context.Context, p string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return failure("write", p, err)
	}
	rel, tree, err := CleanPath(p)
	if err != nil {
		return failure("write", p, err)
	}
	if tree {
		return failure("write", p, fmt.Errorf("%w: cannot write a directory", ErrInvalidPath))
	}
	target := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := fileutil.WriteAtomic(target, body, 0o644); err != nil {
		return failure("write", p, err)
	}
	return nil
}

// Remove deletes a file, or a whole directory when p ends in "/".
func (l *Local) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return failure("remove", p, err)
	}
	rel, tree, err := CleanPath(p)
	if err != nil {
		return failure("remove", p, err)
	}
	if tree && rel == "" {
		return failure("remove", p, fmt.Errorf("%w: refusing to remove the root", ErrInvalidPath))
	}
	target := filepath.Join(l.root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
	if tree {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return failure("remove", p, err)
	}
	return nil
}
