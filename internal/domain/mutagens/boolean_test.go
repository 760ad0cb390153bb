package mutagens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const conditionSrc = `package p

func f(a, b int, ok bool) bool {
	if a < b {
		return true
	}
	if !ok {
		return false
	}
	for ok && a > 0 {
		a--
	}
	done := a == b
	return done
}
`

func TestBooleanLiteralReplacement(t *testing.T) {
	out := mutants(t, BooleanLiteralReplacement(), conditionSrc)

	require.Len(t, out, 2)
	requireMutant(t, out, "return false\n\t}\n\tif !ok {\n\t\treturn false")
	requireMutant(t, out, "if !ok {\n\t\treturn true")
}

func TestConditionalOperatorDeletion(t *testing.T) {
	out := mutants(t, ConditionalOperatorDeletion(), conditionSrc)

	require.Len(t, out, 1)
	requireMutant(t, out, "if ok {")
}

func TestConditionalOperatorInsertion(t *testing.T) {
	out := mutants(t, ConditionalOperatorInsertion(), conditionSrc)

	requireMutant(t, out, "if !(a < b) {")
	requireMutant(t, out, "if !(!ok) {")
	requireMutant(t, out, "for !(ok && a > 0) {")
	requireNoMutant(t, out, "done := !")
	require.Len(t, out, 3)
}

func TestConditionalOperatorInsertion_SimpleOperand(t *testing.T) {
	src := `package p

func f(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
`
	out := mutants(t, ConditionalOperatorInsertion(), src)

	require.Len(t, out, 1)
	requireMutant(t, out, "if !ok {")
}

func TestLogicalConnectorReplacement(t *testing.T) {
	src := `package p

func f(a, b bool, x, y int) (bool, int) {
	return a && b, x | y
}
`
	out := mutants(t, LogicalConnectorReplacement(), src)

	require.Len(t, out, 2)
	requireMutant(t, out, "return a || b, x | y")
	requireMutant(t, out, "return a && b, x & y")
}

func TestRelationalOperatorReplacement(t *testing.T) {
	out := mutants(t, RelationalOperatorReplacement(), conditionSrc)

	requireMutant(t, out, "if a > b {")
	requireMutant(t, out, "if a <= b {")
	requireMutant(t, out, "for ok && a < 0 {")
	requireMutant(t, out, "for ok && a >= 0 {")
	requireMutant(t, out, "done := a != b")
	// equality has no boundary
	require.Len(t, out, 5)
}
