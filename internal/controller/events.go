package controller

import (
	"context"
	"fmt"
	"time"

	m "mutago.dev/pkg/mutago/internal/model"
)

// Event is a lifecycle notification of a mutation run. The set of events is
// closed; Notifier panics on any type it does not know.
type Event interface {
	event()
}

// StartEvent opens a run.
type StartEvent struct {
	RunID   string
	Targets []m.Path
	Tests   []string
}

// BaselineEvent reports a passing run of the unmodified suite.
type BaselineEvent struct {
	Run m.TestRun
}

// BaselineFailedEvent reports that the unmodified suite does not pass.
type BaselineFailedEvent struct {
	Run m.TestRun
}

// LoadErrorEvent reports that targets or tests could not be resolved.
type LoadErrorEvent struct {
	Err error
}

// CoverageEvent reports the coverage run of one target.
type CoverageEvent struct {
	Target  m.Path
	Covered int
	Total   int
}

// MutationEvent announces a mutant before its tests run.
type MutationEvent struct {
	Number    int
	Target    m.Path
	Mutations []m.MutationRecord
	Diff      string
}

// OutcomeEvent carries the classification of a mutant.
type OutcomeEvent struct {
	Report m.MutantReport
}

// EndEvent closes a run.
type EndEvent struct {
	Score    m.MutationScore
	Duration time.Duration
}

func (StartEvent) event()          {}
func (BaselineEvent) event()       {}
func (BaselineFailedEvent) event() {}
func (LoadErrorEvent) event()      {}
func (CoverageEvent) event()       {}
func (MutationEvent) event()       {}
func (OutcomeEvent) event()        {}
func (EndEvent) event()            {}

// Observers implement any subset of these interfaces.
type (
	StartObserver interface {
		OnStart(ctx context.Context, ev StartEvent)
	}
	BaselineObserver interface {
		OnBaseline(ctx context.Context, ev BaselineEvent)
	}
	BaselineFailedObserver interface {
		OnBaselineFailed(ctx context.Context, ev BaselineFailedEvent)
	}
	LoadErrorObserver interface {
		OnLoadError(ctx context.Context, ev LoadErrorEvent)
	}
	CoverageObserver interface {
		OnCoverage(ctx context.Context, ev CoverageEvent)
	}
	MutationObserver interface {
		OnMutation(ctx context.Context, ev MutationEvent)
	}
	OutcomeObserver interface {
		OnOutcome(ctx context.Context, ev OutcomeEvent)
	}
	EndObserver interface {
		OnEnd(ctx context.Context, ev EndEvent)
	}
)

// Notifier delivers events to observers synchronously, in registration order.
type Notifier struct {
	observers []any
}

// NewNotifier creates a Notifier for observers. Nil observers are skipped.
func NewNotifier(observers ...any) *Notifier {
	n := &Notifier{}
	for _, o := range observers {
		n.Register(o)
	}

	return n
}

// Register adds an observer.
func (n *Notifier) Register(o any) {
	if o == nil {
		return
	}

	n.observers = append(n.observers, o)
}

// Notify hands ev to every observer with a matching handler. Observers
// without one are skipped.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	deliver := dispatch(ev)
	for _, o := range n.observers {
		deliver(ctx, o)
	}
}

//nolint:cyclop // one case per event kind
func dispatch(ev Event) func(ctx context.Context, o any) {
	switch ev := ev.(type) {
	case StartEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(StartObserver); ok {
				h.OnStart(ctx, ev)
			}
		}
	case BaselineEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(BaselineObserver); ok {
				h.OnBaseline(ctx, ev)
			}
		}
	case BaselineFailedEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(BaselineFailedObserver); ok {
				h.OnBaselineFailed(ctx, ev)
			}
		}
	case LoadErrorEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(LoadErrorObserver); ok {
				h.OnLoadError(ctx, ev)
			}
		}
	case CoverageEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(CoverageObserver); ok {
				h.OnCoverage(ctx, ev)
			}
		}
	case MutationEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(MutationObserver); ok {
				h.OnMutation(ctx, ev)
			}
		}
	case OutcomeEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(OutcomeObserver); ok {
				h.OnOutcome(ctx, ev)
			}
		}
	case EndEvent:
		return func(ctx context.Context, o any) {
			if h, ok := o.(EndObserver); ok {
				h.OnEnd(ctx, ev)
			}
		}
	default:
		panic(fmt.Sprintf("controller: unknown event %T", ev))
	}
}
