package mutagens

import (
	"fmt"

	"mutago.dev/pkg/mutago/internal/domain/tree"
	m "mutago.dev/pkg/mutago/internal/model"
)

// Mutation is one (operator rule, target node) pairing.
type Mutation struct {
	Operator Operator
	Rule     Rule
	// Marker identifies the target node; Last bounds its subtree.
	Marker int
	Last   int
	Kind   tree.Kind
	Span   tree.Span
}

// NewMutation pairs a rule with the node it targets.
func NewMutation(op Operator, rule Rule, n tree.Node) Mutation {
	return Mutation{
		Operator: op,
		Rule:     rule,
		Marker:   n.Marker,
		Last:     n.Last,
		Kind:     n.Kind,
		Span:     n.Span,
	}
}

// Code returns the operator code.
func (mu Mutation) Code() string {
	return mu.Operator.Code()
}

// Equal reports whether both mutations apply the same rule to the same node.
func (mu Mutation) Equal(other Mutation) bool {
	return mu.Code() == other.Code() && mu.Rule.Name == other.Rule.Name && mu.Marker == other.Marker
}

// SameNode reports whether both mutations target the same node.
func (mu Mutation) SameNode(other Mutation) bool {
	return mu.Marker == other.Marker
}

// Conflicts reports whether the targets are the same node or one contains the other.
func (mu Mutation) Conflicts(other Mutation) bool {
	return mu.contains(other.Marker) || other.contains(mu.Marker)
}

func (mu Mutation) contains(marker int) bool {
	return marker >= mu.Marker && marker <= mu.Last
}

// Apply runs the rule against the node at the same marker in t. When an
// earlier edit changed the node's kind, the operator's rule of the same name
// for the new kind is used; without one the mutation resigns.
func (mu Mutation) Apply(t *tree.Tree) (Result, error) {
	n, err := t.Node(mu.Marker)
	if err != nil {
		return Result{}, err
	}

	if n.Kind == mu.Rule.Kind {
		return mu.Rule.Mutate(t, n), nil
	}

	for _, rule := range mu.Operator.RulesFor(n.Kind) {
		if rule.Name == mu.Rule.Name {
			return rule.Mutate(t, n), nil
		}
	}

	return Resign(), nil
}

// Record converts the mutation for reports.
func (mu Mutation) Record() m.MutationRecord {
	return m.MutationRecord{
		Operator: mu.Code(),
		Rule:     mu.Rule.Name,
		Marker:   mu.Marker,
		Kind:     string(mu.Kind),
		Line:     mu.Span.StartLine,
		Column:   mu.Span.StartColumn,
	}
}

func (mu Mutation) String() string {
	return fmt.Sprintf("%s[%d]", mu.Record(), mu.Marker)
}
