package mutagens

import (
	"go/ast"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// SliceIndexRemoval drops one index of a slice expression.
func SliceIndexRemoval() Operator {
	return NewOperator("SIR", "slice index removal",
		Rule{Name: "remove_lower", Kind: "SliceExpr", Mutate: removeLower},
		Rule{Name: "remove_upper", Kind: "SliceExpr", Mutate: removeUpper},
		Rule{Name: "remove_max", Kind: "SliceExpr", Mutate: removeMax},
	)
}

func removeLower(_ *tree.Tree, n tree.Node) Result {
	s, ok := n.AST.(*ast.SliceExpr)
	if !ok || s.Low == nil {
		return Resign()
	}

	c := *s
	c.Low = nil

	return Replace(&c)
}

func removeUpper(_ *tree.Tree, n tree.Node) Result {
	// A three-index slice needs its upper bound.
	s, ok := n.AST.(*ast.SliceExpr)
	if !ok || s.High == nil || s.Slice3 {
		return Resign()
	}

	c := *s
	c.High = nil

	return Replace(&c)
}

func removeMax(_ *tree.Tree, n tree.Node) Result {
	s, ok := n.AST.(*ast.SliceExpr)
	if !ok || !s.Slice3 || s.Max == nil {
		return Resign()
	}

	c := *s
	c.Max = nil
	c.Slice3 = false

	return Replace(&c)
}
