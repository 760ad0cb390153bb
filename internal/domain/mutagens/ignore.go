package mutagens

import (
	"go/ast"
	"go/token"
	"strings"
	"unicode"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

const ignoreDirective = "mutago:ignore"

type ignoreRule struct {
	all   bool
	codes map[string]struct{}
}

func (r ignoreRule) ignores(code string) bool {
	if r.all {
		return true
	}

	_, ok := r.codes[strings.ToUpper(code)]

	return ok
}

func (r ignoreRule) empty() bool {
	return !r.all && len(r.codes) == 0
}

func (r *ignoreRule) merge(src ignoreRule) {
	if src.all {
		r.all = true
		r.codes = nil

		return
	}

	if r.all || len(src.codes) == 0 {
		return
	}

	if r.codes == nil {
		r.codes = make(map[string]struct{}, len(src.codes))
	}

	for code := range src.codes {
		r.codes[code] = struct{}{}
	}
}

// parseIgnoreDirective reads "//mutago:ignore" optionally followed by a
// comma separated list of operator codes.
func parseIgnoreDirective(text string) (ignoreRule, bool) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "//") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "//"))
	} else if strings.HasPrefix(s, "/*") {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/"))
	}

	if !strings.HasPrefix(s, ignoreDirective) {
		return ignoreRule{}, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(s, ignoreDirective))
	if rest == "" {
		return ignoreRule{all: true}, true
	}

	rule := ignoreRule{codes: make(map[string]struct{})}

	for _, part := range strings.Split(rest, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code != "" {
			rule.codes[code] = struct{}{}
		}
	}

	if len(rule.codes) == 0 {
		return ignoreRule{all: true}, true
	}

	return rule, true
}

// Ignores holds the ignore directives of one file: directives above the
// package clause cover the file, directives in a function's doc comment cover
// the function, and any other directive covers the line it trails or, when it
// sits on a line of its own, the line below.
type Ignores struct {
	file  ignoreRule
	funcs map[int]ignoreRule // keyed by FuncDecl marker
	lines map[int]ignoreRule
}

// NewIgnores indexes the directives of t.
func NewIgnores(t *tree.Tree) *Ignores {
	ig := &Ignores{
		funcs: make(map[int]ignoreRule),
		lines: make(map[int]ignoreRule),
	}

	file := t.File()
	docs := make(map[*ast.CommentGroup]struct{})

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}

		docs[fd.Doc] = struct{}{}

		rule := groupRule(fd.Doc)
		if rule.empty() {
			continue
		}

		if marker, ok := t.MarkerOf(fd); ok {
			ig.funcs[marker] = rule
		}
	}

	starts := lineStarts(t.Bytes())

	for _, group := range file.Comments {
		if group.End() < file.Package {
			ig.file.merge(groupRule(group))
			continue
		}

		if _, ok := docs[group]; ok {
			continue
		}

		for _, c := range group.List {
			rule, ok := parseIgnoreDirective(c.Text)
			if !ok {
				continue
			}

			pos := t.FileSet().PositionFor(c.Slash, false)
			line := pos.Line

			if ownLine(pos, starts, t.Bytes()) {
				line++
			}

			current := ig.lines[line]
			current.merge(rule)
			ig.lines[line] = current
		}
	}

	return ig
}

// Ignored reports whether mutations by the operator code are silenced at n.
func (ig *Ignores) Ignored(t *tree.Tree, n tree.Node, code string) bool {
	if ig == nil {
		return false
	}

	if ig.file.ignores(code) {
		return true
	}

	if rule, ok := ig.lines[n.Span.StartLine]; ok && rule.ignores(code) {
		return true
	}

	if fn, ok := t.Enclosing(n.Marker, "FuncDecl"); ok {
		if rule, ok := ig.funcs[fn.Marker]; ok && rule.ignores(code) {
			return true
		}
	}

	return false
}

func groupRule(group *ast.CommentGroup) ignoreRule {
	var rule ignoreRule

	for _, c := range group.List {
		if r, ok := parseIgnoreDirective(c.Text); ok {
			rule.merge(r)
		}
	}

	return rule
}

func lineStarts(content []byte) []int {
	starts := []int{0}

	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// ownLine reports whether only whitespace precedes the comment on its line.
func ownLine(pos token.Position, starts []int, content []byte) bool {
	if pos.Line <= 0 || pos.Line > len(starts) {
		return false
	}

	start := starts[pos.Line-1]
	if pos.Offset < start || pos.Offset > len(content) {
		return false
	}

	for _, b := range content[start:pos.Offset] {
		if !unicode.IsSpace(rune(b)) {
			return false
		}
	}

	return true
}
