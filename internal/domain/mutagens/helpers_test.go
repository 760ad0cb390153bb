package mutagens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// mutants applies every rule of op to every node of src, one at a time on a
// fresh clone, and returns the printed results.
func mutants(t *testing.T, op Operator, src string) []string {
	t.Helper()

	tr, err := tree.Parse("p.go", []byte(src))
	require.NoError(t, err)

	before, err := tr.Source()
	require.NoError(t, err)

	var out []string

	for n := range tr.Nodes() {
		for _, rule := range op.RulesFor(n.Kind) {
			res := rule.Mutate(tr, n)
			require.NotEqual(t, Failed, res.Outcome, "%s/%s on %s: %v", op.Code(), rule.Name, n.Kind, res.Err)

			if res.Outcome != Replaced {
				continue
			}

			clone, err := tr.Clone()
			require.NoError(t, err)

			target, err := clone.Node(n.Marker)
			require.NoError(t, err)

			res = rule.Mutate(clone, target)
			require.Equal(t, Replaced, res.Outcome)
			require.NoError(t, clone.Replace(n.Marker, res.Node))

			code, err := clone.Format()
			require.NoError(t, err)

			out = append(out, string(code))
		}
	}

	after, err := tr.Source()
	require.NoError(t, err)
	require.Equal(t, string(before), string(after), "rules must not modify their input")

	return out
}

func requireMutant(t *testing.T, out []string, want string) {
	t.Helper()

	for _, code := range out {
		if strings.Contains(code, want) {
			return
		}
	}

	t.Fatalf("no mutant contains %q; got:\n%s", want, strings.Join(out, "\n----\n"))
}

func requireNoMutant(t *testing.T, out []string, unwanted string) {
	t.Helper()

	for _, code := range out {
		if strings.Contains(code, unwanted) {
			t.Fatalf("unexpected mutant containing %q:\n%s", unwanted, code)
		}
	}
}

// mutantWithout returns the mutants that no longer contain text.
func mutantsWithout(out []string, text string) []string {
	var found []string

	for _, code := range out {
		if !strings.Contains(code, text) {
			found = append(found, code)
		}
	}

	return found
}

func nodeOf(t *testing.T, tr *tree.Tree, kind tree.Kind, match func(tree.Node) bool) tree.Node {
	t.Helper()

	for n := range tr.Nodes() {
		if n.Kind == kind && (match == nil || match(n)) {
			return n
		}
	}

	t.Fatalf("no %s node found", kind)

	return tree.Node{}
}
