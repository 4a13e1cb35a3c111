package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
	"github.com/higorabreu/iot-eco-client/occupancy"
	"go.uber.org/zap"
)

type RegisterSource interface {
	GetRegisters(ctx context.Context) ([]lightingStructs.Register, error)
}

// Observer is called after every state transition. Observers run one
// transition at a time and must not call Load.
type Observer func(State)

type View struct {
	source    RegisterSource
	now       func() time.Time
	newLoadId func() string
	logger    *zap.SugaredLogger

	mu        sync.RWMutex
	state     State
	observers []Observer
	// held from reduce until every observer returned, so observers see
	// transitions in the order they were committed
	notifyMu sync.Mutex
}

type Option func(*View)

// WithClock replaces the wall clock used as the end of the rolling window.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

func WithObserver(o Observer) Option {
	return func(v *View) { v.observers = append(v.observers, o) }
}

func NewView(source RegisterSource, logger *zap.SugaredLogger, opts ...Option) *View {
	v := &View{
		source:    source,
		now:       time.Now,
		newLoadId: uuid.NewString,
		logger:    logger,
		state:     State{Phase: Loading},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) dispatch(a Action) State {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	prev := v.state
	v.state = Reduce(v.state, a)
	next := v.state
	observers := v.observers
	v.mu.Unlock()

	if next.LoadId == prev.LoadId && next.Phase == prev.Phase {
		return next
	}
	for _, o := range observers {
		o(next)
	}
	return next
}

// Load fetches the registers once and commits Ready or Failed. A Load that
// is superseded by a newer one before it finishes is discarded.
func (v *View) Load(ctx context.Context) State {
	id := v.newLoadId()
	v.dispatch(Started{LoadId: id})
	v.logger.Infow("Loading registers", "loadId", id)

	registers, err := v.source.GetRegisters(ctx)
	if err != nil {
		v.logger.Errorw("Fetching registers failed", "loadId", id, "error", err)
		return v.dispatch(Rejected{LoadId: id, Err: err})
	}

	now := v.now()
	h, err := occupancy.Aggregate(registers, now)
	if err != nil {
		v.logger.Errorw("Aggregating registers failed", "loadId", id, "error", err)
		return v.dispatch(Rejected{LoadId: id, Err: err})
	}

	v.logger.Infow("Registers loaded", "loadId", id, "registers", len(registers), "lampOn24h", h.Sum())
	return v.dispatch(Succeeded{LoadId: id, Snapshot: Snapshot{
		Registers: registers,
		Histogram: h,
		FetchedAt: now,
	}})
}
