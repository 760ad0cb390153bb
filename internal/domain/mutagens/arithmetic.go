package mutagens

import "go/token"

var arithmeticBinary = map[token.Token]token.Token{
	token.ADD: token.SUB,
	token.SUB: token.ADD,
	token.MUL: token.QUO,
	token.QUO: token.MUL,
	token.REM: token.MUL,
}

var arithmeticUnary = map[token.Token]token.Token{
	token.ADD: token.SUB,
	token.SUB: token.ADD,
}

var assignment = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.SUB_ASSIGN,
	token.SUB_ASSIGN: token.ADD_ASSIGN,
	token.MUL_ASSIGN: token.QUO_ASSIGN,
	token.QUO_ASSIGN: token.MUL_ASSIGN,
	token.REM_ASSIGN: token.MUL_ASSIGN,
	token.INC:        token.DEC,
	token.DEC:        token.INC,
}

// ArithmeticOperatorReplacement swaps arithmetic operators: + and - with each
// other, * with /, and % with *.
func ArithmeticOperatorReplacement() Operator {
	return NewOperator("AOR", "arithmetic operator replacement",
		swapOperator("binary", arithmeticBinary, "BinaryExpr"),
		swapOperator("unary", arithmeticUnary, "UnaryExpr"),
	)
}

// ArithmeticOperatorDeletion drops a unary sign: -x and +x become x.
func ArithmeticOperatorDeletion() Operator {
	return NewOperator("AOD", "arithmetic operator deletion",
		Rule{Name: "sign", Kind: "UnaryExpr", Mutate: unwrapUnary(token.ADD, token.SUB)},
	)
}

// AssignmentOperatorReplacement applies the arithmetic swaps to compound
// assignments and flips increments and decrements.
func AssignmentOperatorReplacement() Operator {
	return NewOperator("ASR", "assignment operator replacement",
		swapOperator("assign", assignment, "AssignStmt", "IncDecStmt"),
	)
}
