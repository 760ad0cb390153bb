// Package coverage records which nodes of a target file run during a test
// run. A copy of the file is instrumented with calls that append node markers
// to a sink file; the tracker reads the sink back after the run.
package coverage

import (
	"go/ast"
	"go/token"
	"strconv"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// RecorderFunc is the function the instrumented code calls.
const RecorderFunc = "mutagoCover"

type placement int

const (
	// before inserts the recorder ahead of the node in its enclosing list.
	before placement = iota
	// inside inserts the recorder as the first statement of the node's body,
	// so it only fires when that body is entered.
	inside
)

type handler struct {
	placement placement
	skip      func(ast.Node) bool
}

// Instrumenter inserts recorder calls according to a kind to handler table.
type Instrumenter struct {
	handlers map[tree.Kind]handler
}

// NewInstrumenter builds the handler table. Statement kinds and top-level
// declarations record before themselves; switch and select clauses record
// inside their body.
func NewInstrumenter() *Instrumenter {
	def := handler{placement: before}
	clause := handler{placement: inside}

	return &Instrumenter{
		handlers: map[tree.Kind]handler{
			"AssignStmt":     def,
			"BlockStmt":      def,
			"BranchStmt":     def,
			"DeclStmt":       def,
			"DeferStmt":      def,
			"ExprStmt":       def,
			"ForStmt":        def,
			"GoStmt":         def,
			"IfStmt":         def,
			"IncDecStmt":     def,
			"LabeledStmt":    def,
			"RangeStmt":      def,
			"ReturnStmt":     def,
			"SelectStmt":     def,
			"SendStmt":       def,
			"SwitchStmt":     def,
			"TypeSwitchStmt": def,
			"FuncDecl":       def,
			"GenDecl":        {placement: before, skip: isImport},
			"CaseClause":     clause,
			"CommClause":     clause,
		},
	}
}

// Imports stay the leading declarations of the file.
func isImport(n ast.Node) bool {
	d, ok := n.(*ast.GenDecl)
	return ok && d.Tok == token.IMPORT
}

type planned struct {
	placement placement
	pos       token.Pos
	markers   []int
}

// Instrument returns an instrumented copy of t. The copy keeps t's markers.
func (in *Instrumenter) Instrument(t *tree.Tree) (*tree.Tree, error) {
	c, err := t.Clone()
	if err != nil {
		return nil, err
	}

	plan, err := in.plan(c)
	if err != nil {
		return nil, err
	}

	file := c.File()
	file.Decls = rewriteDecls(file.Decls, plan)

	ast.Inspect(file, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.BlockStmt:
			x.List = rewriteList(x.List, plan)
		case *ast.CaseClause:
			x.Body = rewriteClause(x, x.Body, plan)
		case *ast.CommClause:
			x.Body = rewriteClause(x, x.Body, plan)
		case *ast.IfStmt:
			// an else-if is wrapped in a block so a recorder can precede it
			if elseIf, ok := x.Else.(*ast.IfStmt); ok {
				if _, ok := plan[elseIf]; ok {
					x.Else = &ast.BlockStmt{Lbrace: elseIf.Pos(), List: []ast.Stmt{elseIf}, Rbrace: elseIf.End()}
				}
			}
		}

		return true
	})

	c.MarkModified()

	return c, nil
}

func (in *Instrumenter) plan(c *tree.Tree) (map[ast.Node]planned, error) {
	plan := make(map[ast.Node]planned)

	for n := range c.Nodes() {
		h, ok := in.handlers[n.Kind]
		if !ok || (h.skip != nil && h.skip(n.AST)) {
			continue
		}

		// only top-level declarations; declarations in functions are DeclStmts
		if n.Kind == "GenDecl" && !topLevel(c, n) {
			continue
		}

		markers, err := Markers(c, n)
		if err != nil {
			return nil, err
		}

		plan[n.AST] = planned{placement: h.placement, pos: recorderPos(n.AST), markers: markers}
	}

	return plan, nil
}

func topLevel(c *tree.Tree, n tree.Node) bool {
	parent, err := c.Parent(n.Marker)
	return err == nil && parent.Kind == "File"
}

// Markers returns the markers recorded for n: the node itself and everything
// attached to it, leaving out nested bodies and function literal bodies,
// which carry recorders of their own.
func Markers(t *tree.Tree, n tree.Node) ([]int, error) {
	without := append(bodiesOf(n.AST), funcLitBodies(n.AST)...)
	return t.Markers(n.Marker, without...)
}

func bodiesOf(n ast.Node) []ast.Node {
	switch x := n.(type) {
	case *ast.IfStmt:
		return []ast.Node{x.Body, x.Else}
	case *ast.ForStmt:
		return []ast.Node{x.Body}
	case *ast.RangeStmt:
		return []ast.Node{x.Body}
	case *ast.SwitchStmt:
		return []ast.Node{x.Body}
	case *ast.TypeSwitchStmt:
		return []ast.Node{x.Body}
	case *ast.SelectStmt:
		return []ast.Node{x.Body}
	case *ast.FuncDecl:
		return []ast.Node{x.Body}
	case *ast.LabeledStmt:
		return bodiesOf(x.Stmt)
	case *ast.BlockStmt:
		return stmtNodes(x.List)
	case *ast.CaseClause:
		return stmtNodes(x.Body)
	case *ast.CommClause:
		return stmtNodes(x.Body)
	}

	return nil
}

func stmtNodes(stmts []ast.Stmt) []ast.Node {
	nodes := make([]ast.Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}

	return nodes
}

func funcLitBodies(n ast.Node) []ast.Node {
	var bodies []ast.Node

	ast.Inspect(n, func(node ast.Node) bool {
		if lit, ok := node.(*ast.FuncLit); ok {
			bodies = append(bodies, lit.Body)
			return false
		}

		return true
	})

	return bodies
}

// recorderPos places declaration recorders ahead of doc comments so
// directives stay attached to their declaration.
func recorderPos(n ast.Node) token.Pos {
	switch x := n.(type) {
	case *ast.FuncDecl:
		if x.Doc != nil {
			return x.Doc.Pos()
		}
	case *ast.GenDecl:
		if x.Doc != nil {
			return x.Doc.Pos()
		}
	}

	return n.Pos()
}

func rewriteList(list []ast.Stmt, plan map[ast.Node]planned) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(list)*2)

	for _, stmt := range list {
		if p, ok := plan[stmt]; ok && p.placement == before {
			out = append(out, &ast.ExprStmt{X: recorderCall(p.pos, p.markers)})
		}

		out = append(out, stmt)
	}

	return out
}

func rewriteClause(clause ast.Node, body []ast.Stmt, plan map[ast.Node]planned) []ast.Stmt {
	rest := rewriteList(body, plan)

	p, ok := plan[clause]
	if !ok || p.placement != inside {
		return rest
	}

	return append([]ast.Stmt{&ast.ExprStmt{X: recorderCall(p.pos, p.markers)}}, rest...)
}

func rewriteDecls(decls []ast.Decl, plan map[ast.Node]planned) []ast.Decl {
	out := make([]ast.Decl, 0, len(decls)*2)

	for _, decl := range decls {
		if p, ok := plan[decl]; ok && p.placement == before {
			out = append(out, &ast.GenDecl{
				TokPos: p.pos,
				Tok:    token.VAR,
				Specs: []ast.Spec{&ast.ValueSpec{
					Names:  []*ast.Ident{{NamePos: p.pos, Name: "_"}},
					Values: []ast.Expr{recorderCall(p.pos, p.markers)},
				}},
			})
		}

		out = append(out, decl)
	}

	return out
}

func recorderCall(pos token.Pos, markers []int) *ast.CallExpr {
	args := make([]ast.Expr, len(markers))
	for i, m := range markers {
		args[i] = &ast.BasicLit{ValuePos: pos, Kind: token.INT, Value: strconv.Itoa(m)}
	}

	return &ast.CallExpr{
		Fun:    &ast.Ident{NamePos: pos, Name: RecorderFunc},
		Lparen: pos,
		Args:   args,
		Rparen: pos,
	}
}
