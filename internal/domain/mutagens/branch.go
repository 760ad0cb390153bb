package mutagens

import (
	"go/ast"
	"go/token"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// BreakContinueReplacement swaps break and continue inside loops.
func BreakContinueReplacement() Operator {
	return NewOperator("BCR", "break continue replacement",
		Rule{Name: "swap", Kind: "BranchStmt", Mutate: swapBranch},
	)
}

func swapBranch(t *tree.Tree, n tree.Node) Result {
	branch, ok := n.AST.(*ast.BranchStmt)
	if !ok || branch.Label != nil {
		return Resign()
	}

	var to token.Token

	switch branch.Tok {
	case token.BREAK:
		to = token.CONTINUE
	case token.CONTINUE:
		to = token.BREAK
	default:
		return Resign()
	}

	// continue is only legal inside a loop of the same function. A break
	// must leave that loop, not a switch or select nested in it.
	kinds := []tree.Kind{"ForStmt", "RangeStmt", "FuncLit", "FuncDecl"}
	if branch.Tok == token.BREAK {
		kinds = append(kinds, "SwitchStmt", "TypeSwitchStmt", "SelectStmt")
	}

	scope, ok := t.Enclosing(n.Marker, kinds...)
	if !ok || (scope.Kind != "ForStmt" && scope.Kind != "RangeStmt") {
		return Resign()
	}

	return Replace(&ast.BranchStmt{TokPos: branch.TokPos, Tok: to})
}
