// Package adapter contains the infrastructure adapters mutago drives: the
// filesystem, the Go parser, the go test runner, the sandbox slot and the
// report store.
package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	m "mutago.dev/pkg/mutago/internal/model"
)

// ErrNoModule is returned when no go.mod is found above a path.
var ErrNoModule = errors.New("go.mod not found")

// vcsDirs are never copied into a sandbox.
var vcsDirs = map[string]bool{".git": true, ".hg": true, ".svn": true, ".jj": true}

// SourceFSAdapter is the filesystem seen by the loader, the sandbox and the
// workflow. Paths are plain OS paths.
//
//nolint:interfacebloat // loader, sandbox and coverage share one filesystem seam
type SourceFSAdapter interface {
	// Walk visits root and the entries below it. Without recursive only the
	// direct entries of root are visited.
	Walk(ctx context.Context, root m.Path, recursive bool, fn fs.WalkDirFunc) error
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)
	// HashFile returns the hex SHA-256 of the file at path.
	HashFile(ctx context.Context, path m.Path) (string, error)
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)
	// FindProjectRoot returns the closest directory holding a go.mod, starting
	// at startPath itself when it is a directory.
	FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error)
	// ModulePath reads the module directive of root/go.mod.
	ModulePath(ctx context.Context, root m.Path) (string, error)
	CreateTempDir(ctx context.Context, pattern string) (m.Path, error)
	RemoveAll(ctx context.Context, path m.Path) error
	// CopyDir copies the module tree at src into dst, leaving out VCS
	// metadata. Symlinks are recreated, not followed.
	CopyDir(ctx context.Context, src, dst m.Path) error
	// WriteFile writes content, creating missing parent directories.
	WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error
	RelPath(ctx context.Context, base, target m.Path) (m.Path, error)
	JoinPath(ctx context.Context, elem ...string) m.Path
}

// LocalSourceFSAdapter implements SourceFSAdapter on the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, recursive bool, fn fs.WalkDirFunc) error {
	top := filepath.Clean(string(root))

	return filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			return fn(path, d, err)
		}

		if d.IsDir() && !recursive && path != top {
			return filepath.SkipDir
		}

		return fn(path, d, nil)
	})
}

func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.ReadFile(string(path))
}

func (a *LocalSourceFSAdapter) HashFile(ctx context.Context, path m.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (a *LocalSourceFSAdapter) FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.Stat(string(path))
}

func (a *LocalSourceFSAdapter) FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error) {
	dir, err := filepath.Abs(string(startPath))
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for ; ; dir = filepath.Dir(dir) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if info, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && info.Mode().IsRegular() {
			return m.Path(dir), nil
		}

		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("%w in any parent directory of %s", ErrNoModule, startPath)
		}
	}
}

func (a *LocalSourceFSAdapter) ModulePath(ctx context.Context, root m.Path) (string, error) {
	data, err := a.ReadFile(ctx, a.JoinPath(ctx, string(root), "go.mod"))
	if err != nil {
		return "", err
	}

	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("%w: no module directive in %s", ErrNoModule, root)
	}

	return path, nil
}

func (a *LocalSourceFSAdapter) CreateTempDir(ctx context.Context, pattern string) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}

	return m.Path(dir), nil
}

func (a *LocalSourceFSAdapter) RemoveAll(_ context.Context, path m.Path) error {
	return os.RemoveAll(string(path))
}

func (a *LocalSourceFSAdapter) CopyDir(ctx context.Context, src, dst m.Path) error {
	from := filepath.Clean(string(src))
	to := string(dst)

	return filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() && path != from && vcsDirs[d.Name()] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}

		target := filepath.Join(to, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}

			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyRegular(path, target)
		}

		// sockets, devices and pipes have no place in a sandbox
		return nil
	})
}

func copyRegular(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	// #nosec G304 - src lies inside the module being copied
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	// owner write keeps read-only sources restorable inside the sandbox
	// #nosec G304 - dst lies inside the sandbox
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return out.Close()
}

func (a *LocalSourceFSAdapter) WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

func (a *LocalSourceFSAdapter) RelPath(_ context.Context, base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

func (a *LocalSourceFSAdapter) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
