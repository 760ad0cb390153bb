// Package mutagens provides the mutation operators.
//
// An operator is a named set of rules. A rule looks at one node of a
// tree.Tree and either builds a replacement for it, resigns when the node is
// not a sensible target, or fails when the tree cannot answer the questions
// the rule needs to ask. Rules never modify the tree they inspect.
package mutagens

import (
	"go/ast"
	"slices"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// Outcome is the three-way result of applying a rule.
type Outcome int

const (
	// Replaced means the rule produced a replacement node.
	Replaced Outcome = iota
	// Resigned means the rule does not apply to this node instance.
	Resigned
	// Failed means the rule could not decide.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Resigned:
		return "resigned"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a rule returns.
type Result struct {
	Outcome Outcome
	Node    ast.Node
	Err     error
}

// Replace wraps a replacement node.
func Replace(n ast.Node) Result {
	return Result{Outcome: Replaced, Node: n}
}

// Resign declines the node.
func Resign() Result {
	return Result{Outcome: Resigned}
}

// Fail reports that the rule could not be evaluated.
func Fail(err error) Result {
	return Result{Outcome: Failed, Err: err}
}

// MutateFunc inspects n, a node of t, and returns its replacement.
type MutateFunc func(t *tree.Tree, n tree.Node) Result

// Rule is one independent way an operator mutates nodes of one kind.
// Rules sharing a name across kinds count as the same rule.
type Rule struct {
	Name   string
	Kind   tree.Kind
	Mutate MutateFunc
}

// Operator is a named, stateless set of rules.
type Operator interface {
	Code() string
	Name() string
	Rules() []Rule
	// RulesFor returns the rules declared for kind, in declaration order.
	RulesFor(kind tree.Kind) []Rule
}

type operator struct {
	code   string
	name   string
	rules  []Rule
	byKind map[tree.Kind][]Rule
}

// NewOperator builds an operator from its rules. The kind table is built here
// once; lookups never scan the rule list.
func NewOperator(code, name string, rules ...Rule) Operator {
	op := &operator{
		code:   code,
		name:   name,
		rules:  rules,
		byKind: make(map[tree.Kind][]Rule),
	}

	for _, r := range rules {
		op.byKind[r.Kind] = append(op.byKind[r.Kind], r)
	}

	return op
}

func (o *operator) Code() string  { return o.code }
func (o *operator) Name() string  { return o.name }
func (o *operator) Rules() []Rule { return slices.Clone(o.rules) }

func (o *operator) RulesFor(kind tree.Kind) []Rule {
	return o.byKind[kind]
}

// forKinds declares the same rule for several kinds.
func forKinds(name string, fn MutateFunc, kinds ...tree.Kind) []Rule {
	rules := make([]Rule, 0, len(kinds))
	for _, kind := range kinds {
		rules = append(rules, Rule{Name: name, Kind: kind, Mutate: fn})
	}

	return rules
}
