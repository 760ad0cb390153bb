package mutagens

import (
	"go/ast"
	"go/token"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// StatementDeletion replaces simple statements with an empty statement.
func StatementDeletion() Operator {
	return NewOperator("SDL", "statement deletion",
		forKinds("delete", deleteStatement,
			"AssignStmt",
			"ReturnStmt",
			"ExprStmt",
			"IncDecStmt",
			"SendStmt",
			"GoStmt",
			"DeferStmt",
		)...,
	)
}

func deleteStatement(t *tree.Tree, n tree.Node) Result {
	stmt, ok := n.AST.(ast.Stmt)
	if !ok {
		return Resign()
	}

	parent, err := t.Parent(n.Marker)
	if err != nil {
		return Fail(err)
	}

	// Init and post statements of if, for and switch stay.
	switch parent.AST.(type) {
	case *ast.BlockStmt, *ast.CaseClause, *ast.CommClause:
	default:
		return Resign()
	}

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		// Deleting a declaration leaves its uses undefined.
		if s.Tok == token.DEFINE {
			return Resign()
		}
	case *ast.ExprStmt:
		if lit, ok := s.X.(*ast.BasicLit); ok && lit.Kind == token.STRING {
			return Resign()
		}
	case *ast.ReturnStmt:
		if len(s.Results) > 0 && terminatesFunction(t, parent, stmt) {
			return Resign()
		}
	}

	return Replace(&ast.EmptyStmt{Semicolon: stmt.Pos(), Implicit: true})
}

// terminatesFunction reports whether stmt is the last statement of a function body.
func terminatesFunction(t *tree.Tree, block tree.Node, stmt ast.Stmt) bool {
	body, ok := block.AST.(*ast.BlockStmt)
	if !ok || len(body.List) == 0 || body.List[len(body.List)-1] != stmt {
		return false
	}

	owner, err := t.Parent(block.Marker)
	if err != nil {
		return false
	}

	switch owner.AST.(type) {
	case *ast.FuncDecl, *ast.FuncLit:
		return true
	}

	return false
}
