package model

// MutationScore aggregates mutant outcomes for a run.
type MutationScore struct {
	AllMutants   int `yaml:"all_mutants"`
	Killed       int `yaml:"killed"`
	Survived     int `yaml:"survived"`
	Incompetent  int `yaml:"incompetent"`
	Timeout      int `yaml:"timeout"`
	CoveredNodes int `yaml:"covered_nodes"`
	AllNodes     int `yaml:"all_nodes"`
}

// Record counts one classified mutant.
func (s *MutationScore) Record(status TestStatus) {
	s.AllMutants++

	switch status {
	case Killed:
		s.Killed++
	case Survived:
		s.Survived++
	case Incompetent:
		s.Incompetent++
	case Timeout:
		s.Timeout++
	}
}

// UpdateCoverage adds the result of one coverage run.
func (s *MutationScore) UpdateCoverage(covered, all int) {
	s.CoveredNodes += covered
	s.AllNodes += all
}

// Count returns killed / (killed + survived) as a percentage.
// Incompetent and timed out mutants do not take part in the ratio.
func (s MutationScore) Count() float64 {
	detected := s.Killed + s.Survived
	if detected == 0 {
		return 0
	}

	return float64(s.Killed) / float64(detected) * 100
}

// Coverage returns the percentage of covered nodes, or 0 without a coverage run.
func (s MutationScore) Coverage() float64 {
	if s.AllNodes == 0 {
		return 0
	}

	return float64(s.CoveredNodes) / float64(s.AllNodes) * 100
}
