package coverage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

const (
	// SinkEnv names the variable that tells instrumented code where to
	// append reached markers.
	SinkEnv = "MUTAGO_COVERAGE_FILE"
	// SupportFile is the generated file holding the recorder function. It is
	// written next to the instrumented target.
	SupportFile = "mutago_cover_gen.go"
)

var (
	// ErrCollected is returned when a unit is collected twice.
	ErrCollected = errors.New("coverage already collected")
	// ErrStaleUnit is returned when a unit from an earlier run is collected.
	ErrStaleUnit = errors.New("coverage unit belongs to an earlier run")
)

// Tracker holds the covered-marker set of the current run. The set is reset
// by Run and read-only once the unit is collected.
type Tracker struct {
	instrumenter *Instrumenter
	covered      map[int]struct{}
	total        int
	run          int
}

// NewTracker returns a tracker with an empty covered set.
func NewTracker() *Tracker {
	return &Tracker{
		instrumenter: NewInstrumenter(),
		covered:      make(map[int]struct{}),
	}
}

// Unit is an instrumented target ready to be installed and executed.
type Unit struct {
	// Source is the instrumented target file.
	Source []byte
	// Support is the recorder file to install as SupportFile.
	Support []byte

	tracker   *Tracker
	run       int
	sink      string
	collected bool
}

// Run instruments t and resets the covered set. The root marker is covered
// from the start. sink is the file the instrumented code appends to.
func (tr *Tracker) Run(t *tree.Tree, sink string) (*Unit, error) {
	instrumented, err := tr.instrumenter.Instrument(t)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument %s: %w", t.Name(), err)
	}

	src, err := instrumented.Source()
	if err != nil {
		return nil, err
	}

	support, err := Support(t.File().Name.Name)
	if err != nil {
		return nil, err
	}

	tr.run++
	tr.covered = map[int]struct{}{0: {}}
	tr.total = t.Len()

	return &Unit{
		Source:  src,
		Support: support,
		tracker: tr,
		run:     tr.run,
		sink:    sink,
	}, nil
}

// Env returns the environment the instrumented tests need.
func (u *Unit) Env() []string {
	return []string{SinkEnv + "=" + u.sink}
}

// Sink returns the path of the marker sink.
func (u *Unit) Sink() string { return u.sink }

// Collect adds the markers read from the sink to the tracker. Blank lines are
// ignored; anything else that is not a marker is an error.
func (u *Unit) Collect(data []byte) error {
	if u.collected {
		return ErrCollected
	}

	if u.run != u.tracker.run {
		return ErrStaleUnit
	}

	markers := make([]int, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m, err := strconv.Atoi(line)
		if err != nil {
			return fmt.Errorf("failed to read coverage marker %q: %w", line, err)
		}

		markers = append(markers, m)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read coverage sink: %w", err)
	}

	for _, m := range markers {
		u.tracker.covered[m] = struct{}{}
	}

	u.collected = true

	return nil
}

// IsCovered reports whether the node with the given marker was reached.
func (tr *Tracker) IsCovered(marker int) bool {
	_, ok := tr.covered[marker]
	return ok
}

// Result returns the number of covered markers and the number of nodes.
func (tr *Tracker) Result() (covered, total int) {
	n := 0

	for m := range tr.covered {
		if m >= 0 && m < tr.total {
			n++
		}
	}

	return n, tr.total
}

var supportTemplate = template.Must(template.New("support").Parse(`// Code generated by mutago. DO NOT EDIT.

package {{ .Package }}

import (
	mutagoos "os"
	mutagostrconv "strconv"
	mutagosync "sync"
)

var (
	mutagoCoverMu   mutagosync.Mutex
	mutagoCoverSeen = map[int]bool{}
)

func {{ .Func }}(markers ...int) int {
	mutagoCoverMu.Lock()
	defer mutagoCoverMu.Unlock()

	var buf []byte
	for _, m := range markers {
		if mutagoCoverSeen[m] {
			continue
		}
		mutagoCoverSeen[m] = true
		buf = mutagostrconv.AppendInt(buf, int64(m), 10)
		buf = append(buf, '\n')
	}

	path := mutagoos.Getenv("{{ .Env }}")
	if len(buf) == 0 || path == "" {
		return 0
	}

	f, err := mutagoos.OpenFile(path, mutagoos.O_APPEND|mutagoos.O_CREATE|mutagoos.O_WRONLY, 0o600)
	if err != nil {
		return 0
	}
	defer f.Close()

	_, _ = f.Write(buf)

	return 0
}
`))

// Support renders the recorder file for package pkg.
func Support(pkg string) ([]byte, error) {
	var buf bytes.Buffer

	err := supportTemplate.Execute(&buf, struct{ Package, Func, Env string }{pkg, RecorderFunc, SinkEnv})
	if err != nil {
		return nil, fmt.Errorf("failed to render coverage support: %w", err)
	}

	return buf.Bytes(), nil
}
