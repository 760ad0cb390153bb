package domain

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"mutago.dev/pkg/mutago/internal/adapter"
	"mutago.dev/pkg/mutago/internal/domain/coverage"
	"mutago.dev/pkg/mutago/internal/domain/tree"
	m "mutago.dev/pkg/mutago/internal/model"
)

// ErrLoad marks every failure to turn the requested paths into targets.
var ErrLoad = errors.New("failed to load targets")

// LoadArgs selects the files to mutate.
type LoadArgs struct {
	// Paths are files, directories or ./... patterns. Empty means ./...
	Paths []m.Path
	// Tests are go test package patterns. Empty means the packages of the
	// targets.
	Tests []string
	// Exclude holds regexps matched against module-relative paths.
	Exclude []string
}

// Target is a parsed source file ready to be mutated.
type Target struct {
	File m.FileContent
	Tree *tree.Tree
}

// Program is the loaded module with its targets.
type Program struct {
	Project m.Project
	Targets []Target
}

// Loader resolves paths into parsed targets.
type Loader interface {
	Load(ctx context.Context, args LoadArgs) (Program, error)
}

type loader struct {
	fs     adapter.SourceFSAdapter
	goFile adapter.GoFileAdapter
}

// NewLoader builds a Loader on top of the filesystem and parser adapters.
func NewLoader(fsAdapter adapter.SourceFSAdapter, goFile adapter.GoFileAdapter) Loader {
	return &loader{fs: fsAdapter, goFile: goFile}
}

func (l *loader) Load(ctx context.Context, args LoadArgs) (Program, error) {
	paths := args.Paths
	if len(paths) == 0 {
		paths = []m.Path{"./..."}
	}

	exclude, err := compileExcludes(args.Exclude)
	if err != nil {
		return Program{}, loadError(err)
	}

	start, _ := splitPattern(paths[0])

	root, err := l.fs.FindProjectRoot(ctx, start)
	if err != nil {
		return Program{}, loadError(err)
	}

	module, err := l.fs.ModulePath(ctx, root)
	if err != nil {
		return Program{}, loadError(err)
	}

	files, err := l.resolve(ctx, root, paths, exclude)
	if err != nil {
		return Program{}, loadError(err)
	}

	parsed := make([]*Target, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range files {
		g.Go(func() error {
			target, err := l.parse(gctx, root, file)
			if err != nil {
				return err
			}

			parsed[i] = target

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Program{}, loadError(err)
	}

	prog := Program{Project: m.Project{Root: root, Module: module}}

	for _, target := range parsed {
		if target == nil {
			continue
		}

		prog.Targets = append(prog.Targets, *target)
		prog.Project.Targets = append(prog.Project.Targets, target.File)
	}

	if len(prog.Targets) == 0 {
		return Program{}, loadError(fmt.Errorf("no Go source files in %v", paths))
	}

	prog.Project.Tests = args.Tests
	if len(prog.Project.Tests) == 0 {
		prog.Project.Tests = packagePatterns(prog.Targets)
	}

	slog.Info("Loaded targets", "module", module, "targets", len(prog.Targets), "tests", prog.Project.Tests)

	return prog, nil
}

type sourceFile struct {
	abs m.Path
	rel m.Path
}

func (l *loader) resolve(ctx context.Context, root m.Path, paths []m.Path, exclude []*regexp.Regexp) ([]sourceFile, error) {
	var files []sourceFile

	seen := make(map[m.Path]bool)

	add := func(path string) error {
		rel, err := l.fs.RelPath(ctx, root, m.Path(path))
		if err != nil {
			return err
		}

		rel = m.Path(filepath.ToSlash(string(rel)))
		if strings.HasPrefix(string(rel), "../") {
			return fmt.Errorf("%s is outside the module at %s", path, root)
		}

		if seen[rel] || excluded(rel, exclude) {
			return nil
		}

		seen[rel] = true
		files = append(files, sourceFile{abs: m.Path(path), rel: rel})

		return nil
	}

	for _, p := range paths {
		dir, recursive := splitPattern(p)

		abs, err := filepath.Abs(string(dir))
		if err != nil {
			return nil, err
		}

		info, err := l.fs.FileInfo(ctx, m.Path(abs))
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			if !isSourceFile(abs) {
				return nil, fmt.Errorf("%s is not a Go source file", p)
			}

			if err := add(abs); err != nil {
				return nil, err
			}

			continue
		}

		err = l.fs.Walk(ctx, m.Path(abs), recursive, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != abs && l.skipDir(ctx, path, d.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if !isSourceFile(path) {
				return nil
			}

			return add(path)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	return files, nil
}

// skipDir leaves out directories the go tool ignores and nested modules.
func (l *loader) skipDir(ctx context.Context, path, name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor" {
		return true
	}

	_, err := l.fs.FileInfo(ctx, l.fs.JoinPath(ctx, path, "go.mod"))

	return err == nil
}

// parse returns nil for generated files.
func (l *loader) parse(ctx context.Context, root m.Path, file sourceFile) (*Target, error) {
	src, err := l.fs.ReadFile(ctx, file.abs)
	if err != nil {
		slog.Error("Failed to read target", "path", file.abs, "error", err)
		return nil, fmt.Errorf("failed to read %s: %w", file.rel, err)
	}

	hash, err := l.fs.HashFile(ctx, file.abs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", file.rel, err)
	}

	fset := token.NewFileSet()

	f, err := l.goFile.Parse(ctx, fset, string(file.rel), src)
	if err != nil {
		slog.Error("Failed to parse target", "path", file.rel, "error", err)
		return nil, fmt.Errorf("failed to parse %s: %w", file.rel, err)
	}

	if ast.IsGenerated(f) {
		slog.Debug("Skipping generated file", "path", file.rel, "root", root)
		return nil, nil
	}

	t := tree.New(fset, f, src)
	t.AssignMarkers()

	return &Target{
		File: m.FileContent{
			Path:    file.abs,
			Rel:     file.rel,
			Package: m.Path(filepath.ToSlash(filepath.Dir(string(file.rel)))),
			Hash:    hash,
			Source:  src,
		},
		Tree: t,
	}, nil
}

func loadError(err error) error {
	slog.Error("Failed to load targets", "error", err)
	return fmt.Errorf("%w: %w", ErrLoad, err)
}

// splitPattern turns "dir/..." into ("dir", true).
func splitPattern(p m.Path) (m.Path, bool) {
	s := string(p)
	if s != "..." && !strings.HasSuffix(s, "/...") {
		return p, false
	}

	s = strings.TrimSuffix(strings.TrimSuffix(s, "..."), "/")
	if s == "" {
		s = "."
	}

	return m.Path(s), true
}

func isSourceFile(path string) bool {
	name := filepath.Base(path)

	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		name != coverage.SupportFile
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}

		res = append(res, re)
	}

	return res, nil
}

func excluded(rel m.Path, exclude []*regexp.Regexp) bool {
	return slices.ContainsFunc(exclude, func(re *regexp.Regexp) bool {
		return re.MatchString(string(rel))
	})
}

// packagePatterns lists the package directories of the targets, in target
// order, as go test patterns.
func packagePatterns(targets []Target) []string {
	var patterns []string

	for _, t := range targets {
		p := "./" + string(t.File.Package)
		if t.File.Package == "." {
			p = "."
		}

		if !slices.Contains(patterns, p) {
			patterns = append(patterns, p)
		}
	}

	return patterns
}
