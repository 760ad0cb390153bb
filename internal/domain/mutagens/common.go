package mutagens

import (
	"go/ast"
	"go/token"
	"slices"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// swapOperator replaces operator tokens through table when the operator
// belongs to a node of one of the owner kinds.
func swapOperator(name string, table map[token.Token]token.Token, owners ...tree.Kind) Rule {
	return Rule{
		Name: name,
		Kind: tree.KindOperator,
		Mutate: func(t *tree.Tree, n tree.Node) Result {
			op, ok := n.AST.(*tree.Operator)
			if !ok {
				return Resign()
			}

			parent, err := t.Parent(n.Marker)
			if err != nil {
				return Fail(err)
			}

			if !slices.Contains(owners, parent.Kind) {
				return Resign()
			}

			to, ok := table[op.Tok]
			if !ok {
				return Resign()
			}

			return Replace(&tree.Operator{Tok: to, OpPos: op.OpPos})
		},
	}
}

// unwrapUnary replaces a unary expression using one of ops by its operand.
func unwrapUnary(ops ...token.Token) MutateFunc {
	return func(_ *tree.Tree, n tree.Node) Result {
		u, ok := n.AST.(*ast.UnaryExpr)
		if !ok || !slices.Contains(ops, u.Op) {
			return Resign()
		}

		return Replace(u.X)
	}
}

// exprKinds are the expression kinds a boolean condition can take.
var exprKinds = []tree.Kind{
	"Ident",
	"BinaryExpr",
	"UnaryExpr",
	"CallExpr",
	"ParenExpr",
	"SelectorExpr",
	"IndexExpr",
	"IndexListExpr",
	"StarExpr",
	"TypeAssertExpr",
}
