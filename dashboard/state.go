// Package dashboard drives the fetch, aggregate and present cycle of the
// lamp dashboard.
package dashboard

import (
	"time"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
	"github.com/higorabreu/iot-eco-client/occupancy"
)

type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
)

var phaseNames = []string{"loading", "ready", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Phases lists every phase in declaration order.
func Phases() []Phase { return []Phase{Loading, Ready, Failed} }

// Snapshot is the result of one successful load.
type Snapshot struct {
	Registers []lightingStructs.Register
	Histogram occupancy.Histogram
	FetchedAt time.Time
}

type State struct {
	Phase    Phase
	LoadId   string
	Snapshot *Snapshot
	Err      error
}

// Message is the line shown in place of the chart.
func (s State) Message() string {
	switch s.Phase {
	case Loading:
		return "Loading..."
	case Failed:
		if s.Err == nil {
			return "Error: unknown"
		}
		return "Error: " + s.Err.Error()
	default:
		return ""
	}
}

type Action interface {
	action()
}

// Started begins a load, either the initial one or a manual re-trigger.
type Started struct {
	LoadId string
}

type Succeeded struct {
	LoadId   string
	Snapshot Snapshot
}

type Rejected struct {
	LoadId string
	Err    error
}

func (Started) action()   {}
func (Succeeded) action() {}
func (Rejected) action()  {}

// Reduce applies a to s. Results are accepted only while loading and only for
// the current load id; anything else leaves s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Started:
		return State{Phase: Loading, LoadId: a.LoadId}
	case Succeeded:
		if s.Phase != Loading || a.LoadId != s.LoadId {
			return s
		}
		snap := a.Snapshot
		return State{Phase: Ready, LoadId: a.LoadId, Snapshot: &snap}
	case Rejected:
		if s.Phase != Loading || a.LoadId != s.LoadId {
			return s
		}
		return State{Phase: Failed, LoadId: a.LoadId, Err: a.Err}
	default:
		return s
	}
}
