package mutagens

import (
	"go/ast"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// ReceiverVariableDeletion rewrites recv.name into a bare name inside methods.
func ReceiverVariableDeletion() Operator {
	return NewOperator("SVD", "receiver variable deletion",
		Rule{Name: "selector", Kind: "SelectorExpr", Mutate: dropReceiver},
	)
}

func dropReceiver(t *tree.Tree, n tree.Node) Result {
	sel, ok := n.AST.(*ast.SelectorExpr)
	if !ok {
		return Resign()
	}

	base, ok := sel.X.(*ast.Ident)
	if !ok {
		return Resign()
	}

	fn, ok := t.Enclosing(n.Marker, "FuncDecl")
	if !ok {
		return Resign()
	}

	if name := receiverName(fn.AST.(*ast.FuncDecl)); name == "" || name != base.Name {
		return Resign()
	}

	return Replace(&ast.Ident{NamePos: sel.Sel.NamePos, Name: sel.Sel.Name})
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 || len(fn.Recv.List[0].Names) == 0 {
		return ""
	}

	name := fn.Recv.List[0].Names[0].Name
	if name == "_" {
		return ""
	}

	return name
}
