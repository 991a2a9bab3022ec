package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/datadog"
	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// Deps wires the loop to the outside world.
type Deps struct {
	Radio      Radio
	Transport  Transport
	Codec      Codec
	Store      Store
	Console    Console
	Indicators Indicators
	Reset      ResetControl
	Metrics    Metrics
	Board      *Board

	Rules         fsm.Rules
	TickInterval  time.Duration
	CycleInterval time.Duration
	SchedulePath  string
	Now           func() time.Time
}

type nopMetrics struct{}

func (nopMetrics) Gauge(string, float64, ...string) {}
func (nopMetrics) Count(string, int64, ...string)   {}

// Loop owns the State. Each cycle it applies at most one sampled event,
// executes exactly one selected effect and applies that effect's follow-up
// event before the next sample is taken.
type Loop struct {
	rules    fsm.Rules
	state    fsm.State
	source   *EventSource
	exec     *Executor
	store    Store
	console  Console
	board    *Board
	metrics  Metrics
	now      func() time.Time
	interval time.Duration

	pending fsm.Event
	fault   error
}

func New(d Deps) *Loop {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Board == nil {
		d.Board = NewBoard("")
	}
	if d.Rules == (fsm.Rules{}) {
		d.Rules = fsm.DefaultRules
	}

	return &Loop{
		rules:    d.Rules,
		state:    fsm.Initial(),
		source:   NewEventSource(d.Console, d.Radio, d.Reset, d.TickInterval),
		exec:     NewExecutor(d),
		store:    d.Store,
		console:  d.Console,
		board:    d.Board,
		metrics:  d.Metrics,
		now:      d.Now,
		interval: d.CycleInterval,
	}
}

func (l *Loop) State() fsm.State {
	return l.state
}

// Step applies ev to the state and runs the observers for the change.
func (l *Loop) Step(ev fsm.Event) {
	now := l.now()
	prev := l.state

	next, err := l.rules.Transition(prev, ev, now)
	if err != nil {
		log.Warn().Err(err).Str("event", fmt.Sprintf("%T", ev)).Msg("Ignoring event")
		return
	}
	l.state = next
	l.board.Record(ev, now)

	log.Debug().Str("event", ev.Name()).Str("mode", string(next.Mode)).Msg("Applied event")
	if prev.Mode != next.Mode {
		log.Info().Str("from", string(prev.Mode)).Str("to", string(next.Mode)).Msg("Mode changed")
	}

	l.observe(prev, next)
}

func (l *Loop) observe(prev, next fsm.State) {
	if credentialsPending(prev, next) {
		l.console.Println("Credentials will be saved")
		log.Info().Str("ssid", next.Credentials.SSID).Msg("Credentials will be saved")
	}
	for _, eff := range Observe(prev, next) {
		// presentation effects touch neither the store nor the state
		_, _ = l.exec.Execute(context.Background(), eff, l)
	}
}

// Restore seeds the state from the durable store before the first cycle.
func (l *Loop) Restore() error {
	creds, ok, err := l.store.LoadCredentials()
	if err != nil {
		return l.halt(fmt.Errorf("%w: load credentials: %w", ErrStorageFault, err))
	}
	if ok {
		log.Info().Str("ssid", creds.SSID).Msg("Loaded stored credentials")
		l.Step(fsm.CredentialsLoaded{Credentials: creds})
	} else {
		log.Info().Msg("No stored credentials")
		l.Step(fsm.RequestCredentials{})
	}

	sch, ok, err := l.store.LoadSchedule()
	if err != nil {
		return l.halt(fmt.Errorf("%w: load schedule: %w", ErrStorageFault, err))
	}
	if ok {
		log.Info().Time("last_update", sch.LastUpdate).Msg("Loaded stored schedule")
		l.Step(fsm.ScheduleRestored{Schedule: sch})
	}

	l.publish()
	return nil
}

// Cycle runs one sample/apply/select/execute round.
func (l *Loop) Cycle(ctx context.Context) error {
	if l.fault != nil {
		return l.fault
	}
	l.drain()

	if ev := l.source.Next(l.state, l.now()); !fsm.IsNone(ev) {
		l.Step(ev)
	}

	eff := l.rules.Select(l.state, l.now())
	if _, idle := eff.(fsm.UpdateIndicators); !idle {
		log.Debug().Str("effect", eff.Name()).Msg("Executing effect")
	}

	follow, err := l.exec.Execute(ctx, eff, l)
	if err != nil {
		return l.halt(err)
	}
	if !fsm.IsNone(follow) {
		l.pending = follow
	}
	l.drain()

	l.publish()
	return nil
}

func (l *Loop) drain() {
	if l.pending == nil {
		return
	}
	ev := l.pending
	l.pending = nil
	l.Step(ev)
}

func (l *Loop) halt(err error) error {
	l.fault = err
	l.board.SetFault(err, l.now())
	log.Error().Err(err).Str("mode", string(l.state.Mode)).Msg("Controller halted")
	return err
}

func (l *Loop) publish() {
	st := l.state
	l.board.Publish(st, l.now())

	modeTag := "mode:" + string(st.Mode)
	l.metrics.Gauge("connected", datadog.Bool(st.Mode == model.ModeConnected), modeTag)
	l.metrics.Gauge("http_error", datadog.Bool(st.HTTPError))
	for i, on := range st.Schedule.Zones() {
		l.metrics.Gauge("zone.active", datadog.Bool(on), fmt.Sprintf("zone:%d", i+1))
	}
}

// Run restores from the store and cycles until ctx is cancelled or the
// store fails. A nil return means a clean shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Restore(); err != nil {
		return err
	}

	interval := l.interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("cycle", interval).Msg("Controller loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Controller loop stopped")
			return nil
		case <-ticker.C:
			if err := l.Cycle(ctx); err != nil {
				return err
			}
		}
	}
}
