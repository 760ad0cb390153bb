package mutagens

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

const constantSrc = `package p

import "fmt"

type T struct {
	Name string ` + "`json:\"name\"`" + `
}

func f() {
	n := 41
	h := 0x10
	x := 1.5
	y := 3.0
	ok := true
	s := "hello"
	m := "mutago"
	e := ""
	fmt.Println(n, h, x, y, ok, s, m, e)
}
`

func TestConstantReplacement_Number(t *testing.T) {
	out := mutants(t, onlyRule(t, ConstantReplacement(), "number"), constantSrc)

	require.Len(t, out, 4)
	requireMutant(t, out, "n := 42")
	requireMutant(t, out, "h := 17")
	requireMutant(t, out, "x := 2.5")
	requireMutant(t, out, "y := 4.0")
	requireNoMutant(t, out, "ok := false")
}

func TestConstantReplacement_LargeFloat(t *testing.T) {
	src := `package p

var big = 1e100
`
	out := mutants(t, onlyRule(t, ConstantReplacement(), "number"), src)

	require.Len(t, out, 1)
	requireMutant(t, out, "big = 1"+strings.Repeat("0", 99)+"1.0")
	requireNoMutant(t, out, "1e+100")
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		lit  string
		want string
	}{
		{lit: "2.5", want: "2.5"},
		{lit: "4.0", want: "4.0"},
		{lit: "1.1", want: "1.1"},
		{lit: "1e21", want: "1e+21"},
	}

	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got, ok := formatFloat(constant.MakeFromLiteral(tt.lit, token.FLOAT, 0))
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}

	_, ok := formatFloat(constant.MakeFromLiteral("1e5000", token.FLOAT, 0))
	require.False(t, ok, "out of float64 range")
}

func TestConstantReplacement_String(t *testing.T) {
	out := mutants(t, onlyRule(t, ConstantReplacement(), "string"), constantSrc)

	require.Len(t, out, 3)
	requireMutant(t, out, `s := "mutago"`)
	requireMutant(t, out, `m := "golang"`)
	requireMutant(t, out, `e := "mutago"`)
	requireNoMutant(t, out, `import "mutago"`)
	requireNoMutant(t, out, `string "mutago"`)
}

func TestConstantReplacement_StringEmpty(t *testing.T) {
	out := mutants(t, onlyRule(t, ConstantReplacement(), "string_empty"), constantSrc)

	require.Len(t, out, 2)
	requireMutant(t, out, `s := ""`)
	requireMutant(t, out, `m := ""`)
}

func TestIsMetaString(t *testing.T) {
	tr, err := tree.Parse("p.go", []byte(constantSrc))
	require.NoError(t, err)

	isLit := func(value string) func(tree.Node) bool {
		return func(n tree.Node) bool { return n.AST.(*ast.BasicLit).Value == value }
	}

	for value, want := range map[string]bool{
		`"fmt"`:           true,
		"`json:\"name\"`": true,
		`"hello"`:         false,
		`41`:              false,
	} {
		meta, err := IsMetaString(tr, nodeOf(t, tr, "BasicLit", isLit(value)))
		require.NoError(t, err)
		require.Equal(t, want, meta, value)
	}
}

func TestIsMetaString_RequiresParentLinks(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", constantSrc, parser.ParseComments)
	require.NoError(t, err)

	tr := tree.New(fset, file, []byte(constantSrc))

	var lit *ast.BasicLit
	ast.Inspect(file, func(n ast.Node) bool {
		if l, ok := n.(*ast.BasicLit); ok && l.Value == `"hello"` {
			lit = l
		}

		return lit == nil
	})
	require.NotNil(t, lit)

	n := tree.Node{Marker: 30, Kind: "BasicLit", AST: lit}

	_, err = IsMetaString(tr, n)
	require.ErrorIs(t, err, tree.ErrNotIndexed)

	res := toggleString(tr, n)
	require.Equal(t, Failed, res.Outcome)
	require.ErrorIs(t, res.Err, tree.ErrNotIndexed)
}

func onlyRule(t *testing.T, op Operator, name string) Operator {
	t.Helper()

	var rules []Rule

	for _, r := range op.Rules() {
		if r.Name == name {
			rules = append(rules, r)
		}
	}

	require.NotEmpty(t, rules)

	return NewOperator(op.Code(), op.Name(), rules...)
}
