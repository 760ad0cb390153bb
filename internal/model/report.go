package model

import "time"

// TestStatus represents the classification of a mutant after its test run.
type TestStatus int

const (
	// Killed indicates at least one test failed against the mutant.
	Killed TestStatus = iota
	// Survived indicates the whole suite passed against the mutant.
	Survived
	// Incompetent indicates the mutant could not be built or installed.
	Incompetent
	// Timeout indicates the test run exceeded its time budget.
	Timeout
)

func (s TestStatus) String() string {
	switch s {
	case Killed:
		return "killed"
	case Survived:
		return "survived"
	case Incompetent:
		return "incompetent"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in persisted reports.
func (s TestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status written by MarshalText.
func (s *TestStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "killed":
		*s = Killed
	case "survived":
		*s = Survived
	case "incompetent":
		*s = Incompetent
	case "timeout":
		*s = Timeout
	default:
		return &UnknownStatusError{Value: string(text)}
	}

	return nil
}

// UnknownStatusError is returned when a persisted status cannot be parsed.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return "unknown test status " + e.Value
}

// TestCase names a single test function.
type TestCase struct {
	Package string `yaml:"package"`
	Name    string `yaml:"name"`
}

func (c TestCase) String() string {
	if c.Name == "" {
		return c.Package
	}

	return c.Package + "." + c.Name
}

// TestRun is the outcome of one go test invocation.
type TestRun struct {
	Passed      bool
	BuildFailed bool
	TimedOut    bool
	Failures    []TestCase
	Output      string
	Duration    time.Duration
}

// MutantReport records the classification of one mutant.
type MutantReport struct {
	Number    int              `yaml:"number"`
	Target    Path             `yaml:"target"`
	Mutations []MutationRecord `yaml:"mutations"`
	Status    TestStatus       `yaml:"status"`
	Killer    string           `yaml:"killer,omitempty"`
	Duration  time.Duration    `yaml:"duration"`
	Diff      string           `yaml:"diff,omitempty"`
	Error     string           `yaml:"error,omitempty"`
}

// RunReport is the persisted summary of a whole run.
type RunReport struct {
	RunID    string         `yaml:"run_id"`
	Started  time.Time      `yaml:"started"`
	Duration time.Duration  `yaml:"duration"`
	Score    MutationScore  `yaml:"score"`
	Mutants  []MutantReport `yaml:"mutants"`
}
