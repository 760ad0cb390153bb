package tree

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Operator is the token of a unary, binary, op-assign or inc/dec node, lifted
// into a node of its own. It is the first child of its owner, so edits to the
// operator and edits to the operands of the same expression never overlap.
type Operator struct {
	Tok   token.Token
	OpPos token.Pos
}

// Pos implements ast.Node.
func (o *Operator) Pos() token.Pos { return o.OpPos }

// End implements ast.Node.
func (o *Operator) End() token.Pos {
	if !o.OpPos.IsValid() {
		return token.NoPos
	}

	return o.OpPos + token.Pos(len(o.Tok.String()))
}

// OwnsOperator reports whether n carries an operator token that is indexed
// as a separate node.
func OwnsOperator(n ast.Node) bool {
	return operatorOf(n) != nil
}

func operatorOf(n ast.Node) *Operator {
	switch x := n.(type) {
	case *ast.BinaryExpr:
		return &Operator{Tok: x.Op, OpPos: x.OpPos}
	case *ast.UnaryExpr:
		return &Operator{Tok: x.Op, OpPos: x.OpPos}
	case *ast.AssignStmt:
		if x.Tok != token.ASSIGN && x.Tok != token.DEFINE {
			return &Operator{Tok: x.Tok, OpPos: x.TokPos}
		}
	case *ast.IncDecStmt:
		return &Operator{Tok: x.Tok, OpPos: x.TokPos}
	}

	return nil
}

func setOperator(owner ast.Node, tok token.Token) error {
	switch x := owner.(type) {
	case *ast.BinaryExpr:
		x.Op = tok
	case *ast.UnaryExpr:
		x.Op = tok
	case *ast.AssignStmt:
		x.Tok = tok
	case *ast.IncDecStmt:
		x.Tok = tok
	default:
		return fmt.Errorf("%w: %T has no operator", ErrIncompatibleReplacement, owner)
	}

	return nil
}
