package mutagens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const arithmeticSrc = `package p

func f(a, b int) int {
	sum := a + b
	rem := a % b
	neg := -a
	return sum * rem / neg
}
`

func TestArithmeticOperatorReplacement(t *testing.T) {
	out := mutants(t, ArithmeticOperatorReplacement(), arithmeticSrc)

	requireMutant(t, out, "sum := a - b")
	requireMutant(t, out, "rem := a * b")
	requireMutant(t, out, "neg := +a")
	requireMutant(t, out, "return sum / rem / neg")
	requireMutant(t, out, "return sum * rem * neg")
	require.Len(t, out, 5)
}

func TestArithmeticOperatorDeletion(t *testing.T) {
	out := mutants(t, ArithmeticOperatorDeletion(), arithmeticSrc)

	require.Len(t, out, 1)
	requireMutant(t, out, "neg := a\n")
}

func TestAssignmentOperatorReplacement(t *testing.T) {
	src := `package p

func f(x, y int) int {
	x += y
	x *= y
	x %= y
	x++
	y--
	x = y
	return x
}
`
	out := mutants(t, AssignmentOperatorReplacement(), src)

	requireMutant(t, out, "x -= y")
	requireMutant(t, out, "x /= y")
	requireMutant(t, out, "x *= y\n\tx *= y")
	requireMutant(t, out, "x--")
	requireMutant(t, out, "y++")
	require.Len(t, out, 5)
}

func TestAssignmentOperatorReplacement_IgnoresBinaryOperators(t *testing.T) {
	src := `package p

func f(x, y int) int {
	return x + y
}
`
	require.Empty(t, mutants(t, AssignmentOperatorReplacement(), src))
}
