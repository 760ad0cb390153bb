// Package tree indexes a parsed Go file into an arena of nodes addressed by marker.
//
// A marker is the position of a node in a pre-order walk of the file. Parent
// links and subtree bounds are plain indices into the arena, so ancestor
// queries never chase pointers and no node holds a reference to another.
package tree

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"iter"
	"reflect"
)

var (
	// ErrNotIndexed is returned when a query needs markers or parent links on a
	// tree that was never indexed.
	ErrNotIndexed = errors.New("tree has no markers")
	// ErrUnknownMarker is returned for markers outside the arena.
	ErrUnknownMarker = errors.New("unknown marker")
	// ErrNoParent is returned when the root is asked for its parent.
	ErrNoParent = errors.New("node has no parent")
	// ErrNoGrandparent is returned when a node sits directly under the root.
	ErrNoGrandparent = errors.New("node has no grandparent")
	// ErrDetached is returned for markers whose node was removed by a replacement.
	ErrDetached = errors.New("node detached by an earlier replacement")
	// ErrIncompatibleReplacement is returned when a replacement does not fit the
	// field holding the original node.
	ErrIncompatibleReplacement = errors.New("replacement does not fit its parent")
)

// Kind names the syntactic kind of a node.
type Kind string

// KindOperator is the kind of the synthetic Operator nodes.
const KindOperator Kind = "Operator"

// KindOf returns the kind of n, the name of its go/ast type.
func KindOf(n ast.Node) Kind {
	if _, ok := n.(*Operator); ok {
		return KindOperator
	}

	t := reflect.TypeOf(n)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return Kind(t.Name())
}

// Span is the source range of a node.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Node is one arena entry.
type Node struct {
	Marker int
	// Parent is the marker of the enclosing node, -1 for the file itself.
	Parent int
	// Last is the highest marker inside this node's subtree.
	Last int
	Kind Kind
	AST  ast.Node
	Span Span

	detached bool
}

// Contains reports whether marker lies in the subtree rooted at n.
func (n Node) Contains(marker int) bool {
	return marker >= n.Marker && marker <= n.Last
}

// Tree is a parsed Go file plus its marker arena.
type Tree struct {
	name  string
	src   []byte
	fset  *token.FileSet
	file  *ast.File
	nodes []Node
	index map[ast.Node]int
	dirty bool
}

// Parse parses src and assigns markers.
func Parse(filename string, src []byte) (*Tree, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	t := New(fset, file, src)
	t.AssignMarkers()

	return t, nil
}

// New wraps an already parsed file. The tree has no markers until
// AssignMarkers is called.
func New(fset *token.FileSet, file *ast.File, src []byte) *Tree {
	return &Tree{
		name: fset.Position(file.Pos()).Filename,
		src:  src,
		fset: fset,
		file: file,
	}
}

// AssignMarkers numbers every node in pre-order, starting at 0 for the file.
// Operator tokens get the marker right after their owner. Calling it again
// has no effect.
func (t *Tree) AssignMarkers() {
	if t.nodes != nil {
		return
	}

	t.nodes = make([]Node, 0, 256)
	t.index = make(map[ast.Node]int)

	var stack []int

	ast.Inspect(t.file, func(n ast.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.nodes[top].Last = len(t.nodes) - 1

			return true
		}

		switch n.(type) {
		case *ast.CommentGroup, *ast.Comment:
			return false
		}

		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}

		marker := t.add(n, parent)
		if op := operatorOf(n); op != nil {
			t.add(op, marker)
		}

		stack = append(stack, marker)

		return true
	})
}

func (t *Tree) add(n ast.Node, parent int) int {
	marker := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		Marker: marker,
		Parent: parent,
		Last:   marker,
		Kind:   KindOf(n),
		AST:    n,
		Span:   t.span(n),
	})
	t.index[n] = marker

	return marker
}

func (t *Tree) span(n ast.Node) Span {
	start := t.fset.Position(n.Pos())
	end := t.fset.Position(n.End())

	return Span{
		StartLine:   start.Line,
		StartColumn: start.Column,
		EndLine:     end.Line,
		EndColumn:   end.Column,
	}
}

// Indexed reports whether markers were assigned.
func (t *Tree) Indexed() bool {
	return t.nodes != nil
}

// Name returns the file name the tree was parsed from.
func (t *Tree) Name() string { return t.name }

// File returns the underlying syntax tree.
func (t *Tree) File() *ast.File { return t.file }

// FileSet returns the file set positions refer to.
func (t *Tree) FileSet() *token.FileSet { return t.fset }

// Len returns the number of markers.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the arena entry for marker.
func (t *Tree) Node(marker int) (Node, error) {
	if !t.Indexed() {
		return Node{}, ErrNotIndexed
	}

	if marker < 0 || marker >= len(t.nodes) {
		return Node{}, fmt.Errorf("%w: %d", ErrUnknownMarker, marker)
	}

	n := t.nodes[marker]
	if n.detached {
		return Node{}, fmt.Errorf("%w: %d", ErrDetached, marker)
	}

	return n, nil
}

// MarkerOf returns the marker of an indexed node.
func (t *Tree) MarkerOf(n ast.Node) (int, bool) {
	marker, ok := t.index[n]
	return marker, ok
}

// Parent returns the node enclosing marker.
func (t *Tree) Parent(marker int) (Node, error) {
	n, err := t.Node(marker)
	if err != nil {
		return Node{}, err
	}

	if n.Parent < 0 {
		return Node{}, ErrNoParent
	}

	return t.nodes[n.Parent], nil
}

// Grandparent returns the parent of marker's parent.
func (t *Tree) Grandparent(marker int) (Node, error) {
	parent, err := t.Parent(marker)
	if err != nil {
		return Node{}, err
	}

	if parent.Parent < 0 {
		return Node{}, ErrNoGrandparent
	}

	return t.nodes[parent.Parent], nil
}

// Enclosing returns the nearest proper ancestor of marker whose kind is one of kinds.
func (t *Tree) Enclosing(marker int, kinds ...Kind) (Node, bool) {
	n, err := t.Node(marker)
	if err != nil {
		return Node{}, false
	}

	for p := n.Parent; p >= 0; p = t.nodes[p].Parent {
		for _, kind := range kinds {
			if t.nodes[p].Kind == kind {
				return t.nodes[p], true
			}
		}
	}

	return Node{}, false
}

// Nodes yields the live nodes in marker order.
func (t *Tree) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range t.nodes {
			if n.detached {
				continue
			}

			if !yield(n) {
				return
			}
		}
	}
}

// Markers lists the markers of the subtree at marker, leaving out the
// subtrees rooted at the nodes in without.
func (t *Tree) Markers(marker int, without ...ast.Node) ([]int, error) {
	n, err := t.Node(marker)
	if err != nil {
		return nil, err
	}

	var skip []Node

	for _, w := range without {
		if isNilNode(w) {
			continue
		}

		if m, ok := t.index[w]; ok {
			skip = append(skip, t.nodes[m])
		}
	}

	markers := make([]int, 0, n.Last-n.Marker+1)

next:
	for m := n.Marker; m <= n.Last; m++ {
		for _, s := range skip {
			if s.Contains(m) {
				m = s.Last
				continue next
			}
		}

		markers = append(markers, m)
	}

	return markers, nil
}

// Clone returns an independent copy of the tree. An unmodified tree is parsed
// again from its source so the copy has the same markers; a modified one is
// printed first and renumbered.
func (t *Tree) Clone() (*Tree, error) {
	src := t.src

	if t.dirty {
		var err error

		src, err = t.Source()
		if err != nil {
			return nil, err
		}
	}

	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, t.name, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", t.name, err)
	}

	c := New(fset, file, src)
	if t.Indexed() {
		c.AssignMarkers()
	}

	return c, nil
}

// Replace puts repl where the node at marker is. The replacement takes over
// the marker; the old node's descendants are detached.
func (t *Tree) Replace(marker int, repl ast.Node) error {
	n, err := t.Node(marker)
	if err != nil {
		return err
	}

	if n.Parent < 0 {
		return fmt.Errorf("%w: cannot replace the file", ErrIncompatibleReplacement)
	}

	owner := t.nodes[n.Parent].AST

	if op, ok := n.AST.(*Operator); ok {
		newOp, ok := repl.(*Operator)
		if !ok {
			return fmt.Errorf("%w: %T for operator", ErrIncompatibleReplacement, repl)
		}

		if err := setOperator(owner, newOp.Tok); err != nil {
			return err
		}

		newOp.OpPos = op.OpPos
	} else if err := replaceChild(owner, n.AST, repl); err != nil {
		return err
	}

	for m := n.Marker + 1; m <= n.Last; m++ {
		delete(t.index, t.nodes[m].AST)
		t.nodes[m].detached = true
	}

	delete(t.index, n.AST)
	t.index[repl] = marker
	t.nodes[marker].AST = repl
	t.nodes[marker].Kind = KindOf(repl)
	t.dirty = true

	return nil
}

// replaceChild swaps old for repl in whichever field or slice element of
// parent holds it.
func replaceChild(parent, old, repl ast.Node) error {
	v := reflect.ValueOf(parent).Elem()
	rv := reflect.ValueOf(repl)

	for i := range v.NumField() {
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Interface, reflect.Pointer:
			if f.IsNil() || f.Interface() != any(old) {
				continue
			}

			if !rv.Type().AssignableTo(f.Type()) {
				return fmt.Errorf("%w: %T into %s", ErrIncompatibleReplacement, repl, f.Type())
			}

			f.Set(rv)

			return nil
		case reflect.Slice:
			for j := range f.Len() {
				e := f.Index(j)
				if e.Kind() != reflect.Interface && e.Kind() != reflect.Pointer {
					break
				}

				if e.IsNil() || e.Interface() != any(old) {
					continue
				}

				if !rv.Type().AssignableTo(e.Type()) {
					return fmt.Errorf("%w: %T into %s", ErrIncompatibleReplacement, repl, e.Type())
				}

				e.Set(rv)

				return nil
			}
		}
	}

	return fmt.Errorf("%w: %T not found in %T", ErrIncompatibleReplacement, old, parent)
}

func isNilNode(n ast.Node) bool {
	if n == nil {
		return true
	}

	v := reflect.ValueOf(n)

	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Source prints the tree. Positions that moved get //line directives so
// compiler diagnostics and panics still point at the original lines.
func (t *Tree) Source() ([]byte, error) {
	var buf bytes.Buffer

	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent | printer.SourcePos, Tabwidth: 8}
	if err := cfg.Fprint(&buf, t.fset, t.file); err != nil {
		return nil, fmt.Errorf("failed to print %s: %w", t.name, err)
	}

	return buf.Bytes(), nil
}

// Format prints the tree without line directives, for display.
func (t *Tree) Format() ([]byte, error) {
	var buf bytes.Buffer

	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, t.fset, t.file); err != nil {
		return nil, fmt.Errorf("failed to print %s: %w", t.name, err)
	}

	return buf.Bytes(), nil
}

// Bytes returns the source the tree was parsed from.
func (t *Tree) Bytes() []byte { return t.src }

// MarkModified records an edit made directly on the syntax tree so that
// Clone prints the tree instead of reusing the original source.
func (t *Tree) MarkModified() { t.dirty = true }
