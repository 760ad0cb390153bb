package mutagens

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownOperator is returned for codes no operator answers to.
var ErrUnknownOperator = errors.New("unknown mutation operator")

var constructors = map[string]func() Operator{
	"AOD": ArithmeticOperatorDeletion,
	"AOR": ArithmeticOperatorReplacement,
	"ASR": AssignmentOperatorReplacement,
	"BCR": BreakContinueReplacement,
	"BLR": BooleanLiteralReplacement,
	"COD": ConditionalOperatorDeletion,
	"COI": ConditionalOperatorInsertion,
	"CRP": ConstantReplacement,
	"LCR": LogicalConnectorReplacement,
	"ROR": RelationalOperatorReplacement,
	"SDL": StatementDeletion,
	"SIR": SliceIndexRemoval,
	"SVD": ReceiverVariableDeletion,
}

// Codes lists every operator code in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(constructors))
	for code := range constructors {
		codes = append(codes, code)
	}

	slices.Sort(codes)

	return codes
}

// All returns every operator, sorted by code.
func All() []Operator {
	ops, _ := ByCode(Codes()...)
	return ops
}

// ByCode resolves operator codes case-insensitively, keeping the given order
// and dropping duplicates. An empty list selects every operator.
func ByCode(codes ...string) ([]Operator, error) {
	if len(codes) == 0 {
		return All(), nil
	}

	ops := make([]Operator, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))

	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}

		if _, ok := seen[code]; ok {
			continue
		}

		build, ok := constructors[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, code)
		}

		seen[code] = struct{}{}
		ops = append(ops, build())
	}

	return ops, nil
}
