package mutagens

import (
	"go/ast"
	"go/token"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

var logical = map[token.Token]token.Token{
	token.LAND: token.LOR,
	token.LOR:  token.LAND,
	token.AND:  token.OR,
	token.OR:   token.AND,
}

// BooleanLiteralReplacement swaps true and false.
func BooleanLiteralReplacement() Operator {
	return NewOperator("BLR", "boolean literal replacement",
		Rule{Name: "literal", Kind: "Ident", Mutate: flipBoolean},
	)
}

func flipBoolean(_ *tree.Tree, n tree.Node) Result {
	ident, ok := n.AST.(*ast.Ident)
	if !ok {
		return Resign()
	}

	switch ident.Name {
	case "true":
		return Replace(&ast.Ident{Name: "false", NamePos: ident.NamePos})
	case "false":
		return Replace(&ast.Ident{Name: "true", NamePos: ident.NamePos})
	default:
		return Resign()
	}
}

// LogicalConnectorReplacement swaps && with || and & with |.
func LogicalConnectorReplacement() Operator {
	return NewOperator("LCR", "logical connector replacement",
		swapOperator("connector", logical, "BinaryExpr"),
	)
}

// ConditionalOperatorDeletion drops a negation: !x becomes x.
func ConditionalOperatorDeletion() Operator {
	return NewOperator("COD", "conditional operator deletion",
		Rule{Name: "not", Kind: "UnaryExpr", Mutate: unwrapUnary(token.NOT)},
	)
}

// ConditionalOperatorInsertion negates the condition of if and for statements.
func ConditionalOperatorInsertion() Operator {
	return NewOperator("COI", "conditional operator insertion",
		forKinds("negate", negateCondition, exprKinds...)...,
	)
}

func negateCondition(t *tree.Tree, n tree.Node) Result {
	cond, ok := n.AST.(ast.Expr)
	if !ok {
		return Resign()
	}

	parent, err := t.Parent(n.Marker)
	if err != nil {
		return Fail(err)
	}

	switch p := parent.AST.(type) {
	case *ast.IfStmt:
		if p.Cond != cond {
			return Resign()
		}
	case *ast.ForStmt:
		if p.Cond != cond {
			return Resign()
		}
	default:
		return Resign()
	}

	operand := cond

	switch cond.(type) {
	case *ast.Ident, *ast.CallExpr, *ast.ParenExpr, *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr:
	default:
		operand = &ast.ParenExpr{Lparen: cond.Pos(), X: cond, Rparen: cond.End()}
	}

	return Replace(&ast.UnaryExpr{OpPos: cond.Pos(), Op: token.NOT, X: operand})
}
