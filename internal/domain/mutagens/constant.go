package mutagens

import (
	"go/ast"
	"go/constant"
	"go/token"
	"strconv"
	"strings"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// String sentinels used by the toggle rule.
const (
	SentinelA = "mutago"
	SentinelB = "golang"
)

// ConstantReplacement mutates literals: numbers are incremented, strings are
// toggled between two sentinels or emptied.
func ConstantReplacement() Operator {
	return NewOperator("CRP", "constant replacement",
		Rule{Name: "number", Kind: "BasicLit", Mutate: incrementNumber},
		Rule{Name: "string", Kind: "BasicLit", Mutate: toggleString},
		Rule{Name: "string_empty", Kind: "BasicLit", Mutate: emptyString},
	)
}

func incrementNumber(_ *tree.Tree, n tree.Node) Result {
	lit, ok := n.AST.(*ast.BasicLit)
	if !ok || (lit.Kind != token.INT && lit.Kind != token.FLOAT) {
		return Resign()
	}

	v := constant.MakeFromLiteral(lit.Value, lit.Kind, 0)
	if v.Kind() == constant.Unknown {
		return Resign()
	}

	next := constant.BinaryOp(v, token.ADD, constant.MakeInt64(1))

	value := next.ExactString()
	if lit.Kind == token.FLOAT {
		if value, ok = formatFloat(next); !ok {
			return Resign()
		}
	}

	return Replace(&ast.BasicLit{ValuePos: lit.ValuePos, Kind: lit.Kind, Value: value})
}

// formatFloat writes v as a floating point literal so untyped constants do
// not change their default type. The shortest float64 form is used when it
// reads back as v, the exact integer otherwise. ok is false when v has no
// literal form that differs from v - 1.
func formatFloat(v constant.Value) (string, bool) {
	f, _ := constant.Float64Val(v)

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	back := constant.MakeFromLiteral(s, token.FLOAT, 0)
	if back.Kind() != constant.Unknown && constant.Compare(back, token.EQL, v) {
		return s, true
	}

	if i := constant.ToInt(v); i.Kind() == constant.Int {
		return i.ExactString() + ".0", true
	}

	prev := constant.BinaryOp(v, token.SUB, constant.MakeInt64(1))
	if back.Kind() == constant.Unknown || constant.Compare(back, token.EQL, prev) {
		return "", false
	}

	return s, true
}

func toggleString(t *tree.Tree, n tree.Node) Result {
	value, res, ok := stringValue(t, n)
	if !ok {
		return res
	}

	next := SentinelA
	if value == SentinelA {
		next = SentinelB
	}

	lit := n.AST.(*ast.BasicLit)

	return Replace(&ast.BasicLit{ValuePos: lit.ValuePos, Kind: token.STRING, Value: strconv.Quote(next)})
}

func emptyString(t *tree.Tree, n tree.Node) Result {
	value, res, ok := stringValue(t, n)
	if !ok {
		return res
	}

	if value == "" {
		return Resign()
	}

	lit := n.AST.(*ast.BasicLit)

	return Replace(&ast.BasicLit{ValuePos: lit.ValuePos, Kind: token.STRING, Value: `""`})
}

// stringValue unquotes a string literal that is not a meta string. When ok is
// false, res holds the result the rule must return.
func stringValue(t *tree.Tree, n tree.Node) (string, Result, bool) {
	lit, ok := n.AST.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", Resign(), false
	}

	meta, err := IsMetaString(t, n)
	if err != nil {
		return "", Fail(err), false
	}

	if meta {
		return "", Resign(), false
	}

	value, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", Fail(err), false
	}

	return value, Result{}, true
}
