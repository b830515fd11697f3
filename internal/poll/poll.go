// Package poll runs periodic fetches against a backend that has no push
// channel. Each subscription keeps at most one fetch in flight and applies
// results only while its view is live.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/clock"
)

// ErrStopped is returned by Refresh once the subscription has stopped.
var ErrStopped = errors.New("poll: subscription stopped")

// Commit applies a fetched result. It runs on the subscription's loop
// goroutine and must not call Stop on its own subscription.
type Commit func()

// FetchFunc performs one fetch. A nil Commit with a nil error means there
// was nothing to apply.
type FetchFunc func(ctx context.Context) (Commit, error)

// LiveFunc reports whether the subscription's view is currently live.
type LiveFunc func() bool

// Observer receives loop events, typically for metrics.
type Observer interface {
	FetchDone(subscription string, err error)
	TickSkipped(subscription string)
	ResultDiscarded(subscription string)
}

type nopObserver struct{}

func (nopObserver) FetchDone(string, error) {}
func (nopObserver) TickSkipped(string)     {}
func (nopObserver) ResultDiscarded(string) {}

// Option configures a Poller.
type Option func(*Poller)

// WithObserver reports loop events to o.
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		if o != nil {
			p.observer = o
		}
	}
}

// Poller starts subscriptions.
type Poller struct {
	clock    clock.Clock
	logger   *zap.Logger
	observer Observer
}

// New creates a Poller using clk for scheduling.
func New(clk clock.Clock, logger *zap.Logger, opts ...Option) *Poller {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{clock: clk, logger: logger, observer: nopObserver{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*Subscription)

// OnError hands fetch failures to fn. The loop keeps its schedule either way.
func OnError(fn func(error)) SubscribeOption {
	return func(s *Subscription) { s.onError = fn }
}

// Subscription is one running poll loop.
type Subscription struct {
	name     string
	fetch    FetchFunc
	interval time.Duration
	live     LiveFunc
	onError  func(error)

	poller   *Poller
	wake     chan struct{}
	requests chan chan error
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

type result struct {
	gen       uint64
	requested bool
	commit    Commit
	err       error
}

// Start begins polling fetch every interval while live reports true. If the
// view is live at start the first fetch is issued immediately.
func (p *Poller) Start(name string, fetch FetchFunc, interval time.Duration, live LiveFunc, opts ...SubscribeOption) *Subscription {
	if live == nil {
		live = func() bool { return true }
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		name:     name,
		fetch:    fetch,
		interval: interval,
		live:     live,
		poller:   p,
		wake:     make(chan struct{}, 1),
		requests: make(chan chan error),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run(ctx)
	return s
}

// Stop ends sub and waits for its loop to exit. No commit runs after Stop
// returns. Safe to call more than once and with a nil subscription.
func (p *Poller) Stop(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Stop()
}

// Stop ends the subscription. See Poller.Stop.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Name returns the subscription name.
func (s *Subscription) Name() string { return s.name }

// Wake asks the loop to re-evaluate liveness now.
func (s *Subscription) Wake() { signal(s.wake) }

// Refresh asks the loop for an out-of-band fetch and waits until its result
// has been committed or its error handed to the error handler. A fetch
// already in flight is never reused: the request is served by the next
// fetch, which starts as soon as the outstanding one lands. Requested
// fetches run and commit whether or not the view is live; only a liveness
// change while one is out discards it. The returned error is the fetch
// error, ErrStopped, or ctx's error.
func (s *Subscription) Refresh(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.requests <- reply:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	var (
		timer    *clock.Timer
		tick     <-chan time.Time
		active   bool
		inFlight bool
		due      bool
		gen      uint64
		waiting  []chan error // served by the fetch in flight
		queued   []chan error // served by the next fetch
		// At most one fetch is ever outstanding, so one slot is enough for
		// the result to be delivered even after the loop has exited.
		results = make(chan result, 1)
		log     = s.poller.logger.With(zap.String("subscription", s.name))
		obs     = s.poller.observer
	)

	arm := func() {
		if timer == nil {
			timer = s.poller.clock.NewTimer(s.interval)
			tick = timer.C
			return
		}
		timer.Reset(s.interval)
	}
	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	start := func() {
		inFlight = true
		due = false
		waiting, queued = queued, nil
		if active {
			arm()
		}
		seq, requested := gen, len(waiting) > 0
		go func() {
			commit, err := s.fetch(ctx)
			results <- result{gen: seq, requested: requested, commit: commit, err: err}
		}()
	}
	answer := func(err error) {
		for _, reply := range waiting {
			reply <- err
		}
		waiting = nil
	}
	suspend := func() {
		active = false
		due = false
		gen++
		disarm()
		log.Debug("poll suspended")
	}
	resume := func() {
		active = true
		log.Debug("poll resumed")
		if inFlight {
			// A fetch from the previous live period is still out. Its result
			// will be discarded; fetch again as soon as it lands.
			due = true
			return
		}
		start()
	}

	if s.live() {
		resume()
	}

	for {
		select {
		case <-ctx.Done():
			disarm()
			answer(ErrStopped)
			waiting = queued
			answer(ErrStopped)
			return

		case <-tick:
			if !active {
				continue
			}
			if !s.live() {
				suspend()
				continue
			}
			if inFlight {
				due = true
				obs.TickSkipped(s.name)
				continue
			}
			start()

		case r := <-results:
			inFlight = false
			if ctx.Err() != nil {
				answer(ErrStopped)
				waiting = queued
				answer(ErrStopped)
				return
			}
			switch {
			case r.gen != gen || (!active && !r.requested):
				obs.ResultDiscarded(s.name)
				log.Debug("stale poll result discarded")
				answer(nil)
			case active && !s.live():
				obs.ResultDiscarded(s.name)
				answer(nil)
				suspend()
				if len(queued) > 0 {
					start()
				}
				continue
			default:
				obs.FetchDone(s.name, r.err)
				if r.err != nil {
					log.Debug("poll fetch failed", zap.Error(r.err))
					if s.onError != nil {
						s.onError(r.err)
					}
				} else if r.commit != nil {
					r.commit()
				}
				answer(r.err)
			}
			if (due && active) || len(queued) > 0 {
				start()
			}

		case <-s.wake:
			live := s.live()
			switch {
			case live && !active:
				resume()
			case !live && active:
				suspend()
			}

		case reply := <-s.requests:
			queued = append(queued, reply)
			if !inFlight {
				start()
			}
		}
	}
}
