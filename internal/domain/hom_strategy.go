package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"mutago.dev/pkg/mutago/internal/domain/mutagens"
)

// Strategy names accepted by NewHOMStrategy.
const (
	FirstToLast      = "first_to_last"
	EachChoice       = "each_choice"
	BetweenOperators = "between_operators"
	Random           = "random"
)

// ErrUnknownStrategy is returned for a strategy name NewHOMStrategy does not know.
var ErrUnknownStrategy = errors.New("unknown HOM strategy")

// HOMStrategy groups first-order mutations into changesets of at most order
// mutations. Two mutations whose targets are the same node, or where one
// contains the other, never share a changeset; the later one is deferred.
type HOMStrategy interface {
	Name() string
	Generate(order int, mutations []mutagens.Mutation) [][]mutagens.Mutation
}

// HOMStrategies lists the strategy names.
func HOMStrategies() []string {
	return []string{FirstToLast, EachChoice, BetweenOperators, Random}
}

// NewHOMStrategy returns the strategy called name. shuffle is only used by
// the random strategy; nil shuffles with the global source.
func NewHOMStrategy(name string, shuffle func([]mutagens.Mutation)) (HOMStrategy, error) {
	switch name {
	case FirstToLast:
		return NewFirstToLast(), nil
	case EachChoice:
		return NewEachChoice(), nil
	case BetweenOperators:
		return NewBetweenOperators(), nil
	case Random:
		return NewRandom(shuffle), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

type firstToLast struct{}

// NewFirstToLast takes mutations alternately from the front and the back of
// the remaining list.
func NewFirstToLast() HOMStrategy { return firstToLast{} }

func (firstToLast) Name() string { return FirstToLast }

func (firstToLast) Generate(order int, mutations []mutagens.Mutation) [][]mutagens.Mutation {
	return changesets(order, mutations, true)
}

type eachChoice struct{}

// NewEachChoice takes mutations from the front of the remaining list.
func NewEachChoice() HOMStrategy { return eachChoice{} }

func (eachChoice) Name() string { return EachChoice }

func (eachChoice) Generate(order int, mutations []mutagens.Mutation) [][]mutagens.Mutation {
	return changesets(order, mutations, false)
}

type random struct {
	shuffle func([]mutagens.Mutation)
}

// NewRandom shuffles the mutations and groups them like EachChoice.
func NewRandom(shuffle func([]mutagens.Mutation)) HOMStrategy {
	if shuffle == nil {
		shuffle = func(ms []mutagens.Mutation) {
			rand.Shuffle(len(ms), func(i, j int) { ms[i], ms[j] = ms[j], ms[i] })
		}
	}

	return random{shuffle: shuffle}
}

func (random) Name() string { return Random }

func (r random) Generate(order int, mutations []mutagens.Mutation) [][]mutagens.Mutation {
	shuffled := slices.Clone(mutations)
	r.shuffle(shuffled)

	return changesets(order, shuffled, false)
}

type betweenOperators struct{}

// NewBetweenOperators pairs each mutation with mutations of other operators:
// first those on the same node, then conflict-free ones elsewhere, preferring
// mutations not yet placed and otherwise the least used. A mutation may end
// up in several changesets. When no other operator fits, the remaining
// mutations are grouped like EachChoice.
func NewBetweenOperators() HOMStrategy { return betweenOperators{} }

func (betweenOperators) Name() string { return BetweenOperators }

func (betweenOperators) Generate(order int, mutations []mutagens.Mutation) [][]mutagens.Mutation {
	order = max(order, 1)
	usage := make([]int, len(mutations))

	var out [][]mutagens.Mutation

	for {
		first := slices.Index(usage, 0)
		if first < 0 {
			break
		}

		picked := []int{first}
		usage[first]++

		for j := first + 1; j < len(mutations) && len(picked) < order; j++ {
			if usage[j] == 0 && mutations[j].SameNode(mutations[first]) && !sharesOperator(mutations, picked, j) {
				picked = append(picked, j)
				usage[j]++
			}
		}

		for len(picked) < order {
			next := leastUsedPartner(mutations, usage, picked)
			if next < 0 {
				break
			}

			picked = append(picked, next)
			usage[next]++
		}

		if len(picked) == 1 && order > 1 {
			out = append(out, eachChoiceFallback(order, mutations, usage, first))
			continue
		}

		changeset := make([]mutagens.Mutation, 0, len(picked))
		for _, i := range picked {
			changeset = append(changeset, mutations[i])
		}

		out = append(out, changeset)
	}

	return out
}

// leastUsedPartner returns the index of the mutation to add to picked: one
// of an operator not in picked that conflicts with none of picked, never
// used if possible, else the least used. It returns -1 when none qualifies.
func leastUsedPartner(mutations []mutagens.Mutation, usage, picked []int) int {
	best := -1

	for j, mu := range mutations {
		if slices.Contains(picked, j) || sharesOperator(mutations, picked, j) {
			continue
		}

		if slices.ContainsFunc(picked, func(i int) bool { return mutations[i].Conflicts(mu) }) {
			continue
		}

		if best < 0 || usage[j] < usage[best] {
			best = j
		}
	}

	return best
}

func sharesOperator(mutations []mutagens.Mutation, picked []int, j int) bool {
	return slices.ContainsFunc(picked, func(i int) bool {
		return mutations[i].Code() == mutations[j].Code()
	})
}

// eachChoiceFallback groups the not yet used mutations from first on like
// EachChoice and marks them used.
func eachChoiceFallback(order int, mutations []mutagens.Mutation, usage []int, first int) []mutagens.Mutation {
	var unused []mutagens.Mutation

	for j := first + 1; j < len(mutations); j++ {
		if usage[j] == 0 {
			unused = append(unused, mutations[j])
		}
	}

	changeset := pull(order, append([]mutagens.Mutation{mutations[first]}, unused...), false)

	for j := first + 1; j < len(mutations); j++ {
		if usage[j] == 0 && slices.ContainsFunc(changeset, mutations[j].Equal) {
			usage[j]++
		}
	}

	return changeset
}

func changesets(order int, mutations []mutagens.Mutation, alternate bool) [][]mutagens.Mutation {
	order = max(order, 1)
	remaining := slices.Clone(mutations)

	var out [][]mutagens.Mutation

	for len(remaining) > 0 {
		changeset := pull(order, remaining, alternate)
		remaining = without(remaining, changeset)
		out = append(out, changeset)
	}

	return out
}

// pull builds one changeset from remaining, taking from the front and, when
// alternate is set, from the back in turn. Conflicting candidates are
// skipped for this changeset.
func pull(order int, remaining []mutagens.Mutation, alternate bool) []mutagens.Mutation {
	available := slices.Clone(remaining)
	changeset := make([]mutagens.Mutation, 0, order)
	front := true

	for len(changeset) < order && len(available) > 0 {
		i := 0
		if !front {
			i = len(available) - 1
		}

		picked := available[i]
		changeset = append(changeset, picked)
		available = slices.Delete(available, i, i+1)
		available = slices.DeleteFunc(available, picked.Conflicts)

		if alternate {
			front = !front
		}
	}

	return changeset
}

func without(mutations, drop []mutagens.Mutation) []mutagens.Mutation {
	return slices.DeleteFunc(mutations, func(mu mutagens.Mutation) bool {
		return slices.ContainsFunc(drop, mu.Equal)
	})
}
