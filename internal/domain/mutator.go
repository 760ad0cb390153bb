package domain

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"mutago.dev/pkg/mutago/internal/domain/mutagens"
	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// Coverage tells a mutator which nodes were reached by the tests.
type Coverage interface {
	IsCovered(marker int) bool
}

// Mutant is a mutated copy of a target tree and the mutations applied to it.
type Mutant struct {
	// Number counts the mutants of one target from 1.
	Number    int
	Mutations []mutagens.Mutation
	Tree      *tree.Tree
}

// Mutator enumerates the mutants of a tree.
type Mutator interface {
	// Candidates lists every mutation that applies to t, in operator, node
	// and rule order. Rules that fail are reported in the joined error.
	Candidates(t *tree.Tree, cov Coverage) ([]mutagens.Mutation, error)
	// Mutate yields the mutants of t one at a time. Each mutant is built on
	// its own copy; t itself is never modified. Errors are yielded without
	// stopping the enumeration.
	Mutate(t *tree.Tree, cov Coverage) iter.Seq2[Mutant, error]
}

// MutatorOption configures a mutator.
type MutatorOption func(*mutatorConfig)

type mutatorConfig struct {
	percentage float64
	rng        *rand.Rand
	ignores    bool
}

// WithPercentage keeps a uniform random sample of ceil(n*p/100) of the
// mutants. Values of 100 and above keep everything.
func WithPercentage(p float64) MutatorOption {
	return func(c *mutatorConfig) { c.percentage = p }
}

// WithRand sets the source used for sampling.
func WithRand(r *rand.Rand) MutatorOption {
	return func(c *mutatorConfig) { c.rng = r }
}

// WithIgnores toggles //mutago:ignore directives.
func WithIgnores(enabled bool) MutatorOption {
	return func(c *mutatorConfig) { c.ignores = enabled }
}

func newMutatorConfig(opts []MutatorOption) mutatorConfig {
	cfg := mutatorConfig{percentage: 100, ignores: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return cfg
}

type candidates struct {
	operators []mutagens.Operator
	cfg       mutatorConfig
}

func (c *candidates) Candidates(t *tree.Tree, cov Coverage) ([]mutagens.Mutation, error) {
	found, errs := c.enumerate(t, cov)
	return found, errors.Join(errs...)
}

func (c *candidates) enumerate(t *tree.Tree, cov Coverage) ([]mutagens.Mutation, []error) {
	if !t.Indexed() {
		return nil, []error{tree.ErrNotIndexed}
	}

	var ignores *mutagens.Ignores
	if c.cfg.ignores {
		ignores = mutagens.NewIgnores(t)
	}

	var (
		found []mutagens.Mutation
		errs  []error
	)

	for _, op := range c.operators {
		for n := range t.Nodes() {
			rules := op.RulesFor(n.Kind)
			if len(rules) == 0 {
				continue
			}

			if cov != nil && !cov.IsCovered(n.Marker) {
				continue
			}

			if ignores.Ignored(t, n, op.Code()) {
				continue
			}

			for _, rule := range rules {
				res := rule.Mutate(t, n)

				switch res.Outcome {
				case mutagens.Replaced:
					found = append(found, mutagens.NewMutation(op, rule, n))
				case mutagens.Failed:
					slog.Error("Mutation rule failed", "operator", op.Code(), "rule", rule.Name, "file", t.Name(), "line", n.Span.StartLine, "error", res.Err)
					errs = append(errs, fmt.Errorf("%s/%s at %s:%d: %w", op.Code(), rule.Name, t.Name(), n.Span.StartLine, res.Err))
				case mutagens.Resigned:
				}
			}
		}
	}

	return found, errs
}

type firstOrderMutator struct {
	candidates
}

// NewFirstOrderMutator yields one mutant per applicable mutation.
func NewFirstOrderMutator(operators []mutagens.Operator, opts ...MutatorOption) Mutator {
	return &firstOrderMutator{candidates{operators: operators, cfg: newMutatorConfig(opts)}}
}

func (f *firstOrderMutator) Mutate(t *tree.Tree, cov Coverage) iter.Seq2[Mutant, error] {
	return func(yield func(Mutant, error) bool) {
		found, errs := f.enumerate(t, cov)

		units := make([][]mutagens.Mutation, len(found))
		for i, mu := range found {
			units[i] = []mutagens.Mutation{mu}
		}

		emit(t, sample(units, f.cfg), errs, yield)
	}
}

type highOrderMutator struct {
	candidates
	order    int
	strategy HOMStrategy
}

// NewHighOrderMutator yields one mutant per changeset the strategy builds
// from the applicable mutations.
func NewHighOrderMutator(operators []mutagens.Operator, order int, strategy HOMStrategy, opts ...MutatorOption) Mutator {
	return &highOrderMutator{
		candidates: candidates{operators: operators, cfg: newMutatorConfig(opts)},
		order:      order,
		strategy:   strategy,
	}
}

func (h *highOrderMutator) Mutate(t *tree.Tree, cov Coverage) iter.Seq2[Mutant, error] {
	return func(yield func(Mutant, error) bool) {
		found, errs := h.enumerate(t, cov)
		units := h.strategy.Generate(h.order, found)

		emit(t, sample(units, h.cfg), errs, yield)
	}
}

func emit(t *tree.Tree, units [][]mutagens.Mutation, errs []error, yield func(Mutant, error) bool) {
	for _, err := range errs {
		if !yield(Mutant{}, err) {
			return
		}
	}

	number := 0

	for _, changeset := range units {
		mutant, err := apply(t, changeset)
		if err != nil {
			if !yield(Mutant{}, err) {
				return
			}

			continue
		}

		if len(mutant.Mutations) == 0 {
			continue
		}

		number++
		mutant.Number = number

		if !yield(mutant, nil) {
			return
		}
	}
}

// apply builds a copy of t with every mutation of the changeset applied.
// Targets are resolved by marker in the copy. A mutation that resigns on a
// node an earlier mutation of the same changeset already rewrote is left
// out of the mutant.
func apply(t *tree.Tree, changeset []mutagens.Mutation) (Mutant, error) {
	clone, err := t.Clone()
	if err != nil {
		return Mutant{}, err
	}

	applied := make([]mutagens.Mutation, 0, len(changeset))

	for _, mu := range changeset {
		res, err := mu.Apply(clone)
		if err != nil {
			return Mutant{}, fmt.Errorf("failed to apply %s: %w", mu, err)
		}

		switch res.Outcome {
		case mutagens.Replaced:
			if err := clone.Replace(mu.Marker, res.Node); err != nil {
				return Mutant{}, fmt.Errorf("failed to apply %s: %w", mu, err)
			}

			applied = append(applied, mu)
		case mutagens.Resigned:
			slog.Debug("Mutation resigned on rewritten node", "mutation", mu.String(), "file", t.Name())
		case mutagens.Failed:
			return Mutant{}, fmt.Errorf("failed to apply %s: %w", mu, res.Err)
		}
	}

	return Mutant{Mutations: applied, Tree: clone}, nil
}

// sample keeps ceil(n*p/100) units chosen uniformly without replacement, in
// their original order.
func sample[T any](units []T, cfg mutatorConfig) []T {
	if cfg.percentage >= 100 || len(units) == 0 {
		return units
	}

	if cfg.percentage <= 0 {
		return nil
	}

	k := int(math.Ceil(float64(len(units)) * cfg.percentage / 100))
	picked := cfg.rng.Perm(len(units))[:k]
	slices.Sort(picked)

	out := make([]T, 0, k)
	for _, i := range picked {
		out = append(out, units[i])
	}

	return out
}
