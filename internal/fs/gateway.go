package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultMaxInputBytes = 1 << 20

var (
	ErrPathEscapesRoot = errors.New("path escapes inputs root")
	ErrInputTooLarge   = errors.New("input file is too large")
)

// Gateway reads puzzle inputs that live under a single root directory.
type Gateway struct {
	root     string
	maxBytes int64
}

func NewGateway(root string, maxBytes int64) (*Gateway, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create root path: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}
	return &Gateway{
		root:     absRoot,
		maxBytes: maxBytes,
	}, nil
}

func (g *Gateway) Root() string {
	return g.root
}

func (g *Gateway) ReadInput(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, _, err := g.resolve(relPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %q is a directory", relPath)
	}
	if info.Size() > g.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, info.Size(), g.maxBytes)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return content, nil
}

// ListInputs returns the relative paths of every regular file under the root.
func (g *Gateway) ListInputs(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(g.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(g.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (g *Gateway) resolve(relPath string) (absolute string, normalized string, err error) {
	normalized = strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimPrefix(normalized, "/")
	if normalized == "" || normalized == "." {
		return "", "", fmt.Errorf("invalid relative path %q", relPath)
	}

	abs := filepath.Join(g.root, filepath.FromSlash(normalized))
	absClean := filepath.Clean(abs)
	absRoot := filepath.Clean(g.root)

	rel, err := filepath.Rel(absRoot, absClean)
	if err != nil {
		return "", "", fmt.Errorf("resolve relative path: %w", err)
	}
	if strings.HasPrefix(rel, "..") || rel == "." {
		return "", "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, relPath)
	}
	return absClean, strings.ReplaceAll(rel, "\\", "/"), nil
}
