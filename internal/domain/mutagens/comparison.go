package mutagens

import "go/token"

var relationalFlip = map[token.Token]token.Token{
	token.LSS: token.GTR,
	token.GTR: token.LSS,
	token.LEQ: token.GEQ,
	token.GEQ: token.LEQ,
	token.EQL: token.NEQ,
	token.NEQ: token.EQL,
}

// Boundary swaps move the comparison by one; equality has no boundary.
var relationalBoundary = map[token.Token]token.Token{
	token.LSS: token.LEQ,
	token.LEQ: token.LSS,
	token.GTR: token.GEQ,
	token.GEQ: token.GTR,
}

// RelationalOperatorReplacement mutates comparisons, either flipping their
// direction or moving their boundary.
func RelationalOperatorReplacement() Operator {
	return NewOperator("ROR", "relational operator replacement",
		swapOperator("flip", relationalFlip, "BinaryExpr"),
		swapOperator("boundary", relationalBoundary, "BinaryExpr"),
	)
}
