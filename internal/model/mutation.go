package model

import "fmt"

// MutationRecord identifies one applied edit inside a mutant.
type MutationRecord struct {
	Operator string `yaml:"operator"`
	Rule     string `yaml:"rule,omitempty"`
	Marker   int    `yaml:"marker"`
	Kind     string `yaml:"kind"`
	Line     int    `yaml:"line"`
	Column   int    `yaml:"column"`
}

func (r MutationRecord) String() string {
	if r.Rule == "" {
		return fmt.Sprintf("%s@%d:%d", r.Operator, r.Line, r.Column)
	}

	return fmt.Sprintf("%s/%s@%d:%d", r.Operator, r.Rule, r.Line, r.Column)
}
