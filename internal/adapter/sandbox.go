package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	m "mutago.dev/pkg/mutago/internal/model"
)

// ErrSlotBusy is returned when a second installation is attempted while one
// is still active.
var ErrSlotBusy = errors.New("sandbox slot already holds an installation")

// SandboxFile is a file to place in the sandbox, relative to its root.
type SandboxFile struct {
	Rel     m.Path
	Content []byte
}

// Slot is a private copy of a module in which at most one set of replacement
// files is installed at a time. Files can only be changed through an
// Installation, and only one Installation exists until it is restored.
type Slot struct {
	fs    SourceFSAdapter
	root  m.Path
	token chan struct{}
}

// NewSlot copies the module at projectRoot into a fresh temp directory.
func NewSlot(ctx context.Context, fs SourceFSAdapter, projectRoot m.Path) (*Slot, error) {
	root, err := fs.CreateTempDir(ctx, "mutago-sandbox-*")
	if err != nil {
		slog.Error("Failed to create sandbox directory", "error", err)
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}

	if err := fs.CopyDir(ctx, projectRoot, root); err != nil {
		_ = fs.RemoveAll(ctx, root)

		slog.Error("Failed to copy module into sandbox", "from", projectRoot, "to", root, "error", err)

		return nil, fmt.Errorf("failed to copy module into sandbox: %w", err)
	}

	slog.Debug("Created sandbox", "root", root)

	token := make(chan struct{}, 1)
	token <- struct{}{}

	return &Slot{fs: fs, root: root, token: token}, nil
}

// Root returns the sandbox directory.
func (s *Slot) Root() m.Path {
	return s.root
}

// Close removes the sandbox. It fails with ErrSlotBusy while an installation
// is active.
func (s *Slot) Close(ctx context.Context) error {
	select {
	case <-s.token:
	default:
		return ErrSlotBusy
	}

	if err := s.fs.RemoveAll(ctx, s.root); err != nil {
		s.token <- struct{}{}
		return fmt.Errorf("failed to remove sandbox: %w", err)
	}

	return nil
}

type savedFile struct {
	path    m.Path
	content []byte
	mode    os.FileMode
	created bool
}

// Installation is the single active set of replaced files in a Slot.
type Installation struct {
	slot  *Slot
	saved []savedFile
	once  sync.Once
	err   error
}

// Install writes files into the sandbox, keeping the originals for Restore.
// It never waits: a held slot yields ErrSlotBusy.
func (s *Slot) Install(ctx context.Context, files []SandboxFile) (*Installation, error) {
	select {
	case <-s.token:
	default:
		return nil, ErrSlotBusy
	}

	inst := &Installation{slot: s}

	for _, f := range files {
		if err := inst.place(ctx, f); err != nil {
			if rerr := inst.Restore(ctx); rerr != nil {
				err = errors.Join(err, rerr)
			}

			return nil, err
		}
	}

	return inst, nil
}

func (i *Installation) place(ctx context.Context, f SandboxFile) error {
	fs := i.slot.fs
	path := fs.JoinPath(ctx, string(i.slot.root), string(f.Rel))

	saved := savedFile{path: path, mode: 0o600, created: true}

	if info, err := fs.FileInfo(ctx, path); err == nil {
		content, err := fs.ReadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", f.Rel, err)
		}

		saved = savedFile{path: path, content: content, mode: info.Mode().Perm(), created: false}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to inspect %s: %w", f.Rel, err)
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Rel, err)
	}

	if err := fs.WriteFile(ctx, path, f.Content, saved.mode); err != nil {
		return fmt.Errorf("failed to install %s: %w", f.Rel, err)
	}

	i.saved = append(i.saved, saved)

	return nil
}

// Restore puts back every original file, removes files the installation
// created and frees the slot. Later calls return the first result.
func (i *Installation) Restore(ctx context.Context) error {
	i.once.Do(func() {
		// restoring must finish even when the run that used the files was cancelled
		ctx = context.WithoutCancel(ctx)

		var errs []error

		for j := len(i.saved) - 1; j >= 0; j-- {
			f := i.saved[j]

			var err error
			if f.created {
				err = i.slot.fs.RemoveAll(ctx, f.path)
			} else {
				err = i.slot.fs.WriteFile(ctx, f.path, f.content, f.mode)
			}

			if err != nil {
				slog.Error("Failed to restore sandbox file", "path", f.path, "error", err)
				errs = append(errs, fmt.Errorf("failed to restore %s: %w", f.path, err))
			}
		}

		i.err = errors.Join(errs...)
		i.slot.token <- struct{}{}
	})

	return i.err
}

// With installs files, calls fn and restores the originals however fn returns.
func (s *Slot) With(ctx context.Context, files []SandboxFile, fn func(ctx context.Context) error) (err error) {
	inst, err := s.Install(ctx, files)
	if err != nil {
		return err
	}

	defer func() {
		if rerr := inst.Restore(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	return fn(ctx)
}
