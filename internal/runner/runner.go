// Package runner sequences a booking run: authenticate, hold the session
// through the wait, correct for server clock skew, prime the session, then
// fetch, rank and attempt slots inside the competitive window.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bhc880510-bsk/newseoul-booking/internal/eventlog"
	"github.com/bhc880510-bsk/newseoul-booking/internal/teetime"
)

// State of a run. Transitions are strictly forward, except that any live
// state may move to cancelled; failed and cancelled are terminal.
type State string

const (
	StateNotStarted     State = "not_started"
	StateAuthenticating State = "authenticating"
	StateWaiting        State = "waiting"
	StatePriming        State = "priming"
	StateFetching       State = "fetching"
	StateAttempting     State = "attempting"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

var stateOrder = map[State]int{
	StateNotStarted:     0,
	StateAuthenticating: 1,
	StateWaiting:        2,
	StatePriming:        3,
	StateFetching:       4,
	StateAttempting:     5,
	StateSucceeded:      6,
	StateFailed:         6,
	StateCancelled:      6,
}

// Provider is the booking site capability the runner drives. *newseoul.Client
// implements it.
type Provider interface {
	Login(ctx context.Context, memberID, password string) error
	KeepAlive(ctx context.Context, deadline time.Time)
	ServerClockOffset(ctx context.Context) time.Duration
	PrimeCalendar(ctx context.Context, date string) bool
	FetchTeeTimes(ctx context.Context, date string) ([]teetime.Slot, error)
	Reserve(ctx context.Context, date string, s teetime.Slot) (bool, error)
}

// Plan is the immutable operator input for one run.
type Plan struct {
	MemberID   string
	Password   string
	TargetDate string    // YYYYMMDD
	OpenAt     time.Time // nominal opening instant, KST
	Window     teetime.Window
	Course     teetime.Category
	Direction  teetime.Direction
	Delay      time.Duration // optional settle delay after ranking
	DryRun     bool
}

const (
	// maxAttempts bounds the candidate prefix so the worst case still fits
	// inside the opening rush.
	maxAttempts = 5

	// syncLead is how long before the nominal instant the clock skew probe
	// and calendar priming run.
	syncLead = 30 * time.Second
)

var (
	ErrNoCandidates = errors.New("no bookable slots matched the plan")
	ErrExhausted    = errors.New("every candidate attempt failed")
)

// Runner drives one booking run on one goroutine, with the session keeper as
// its only concurrent companion.
type Runner struct {
	provider Provider
	log      *eventlog.Logger

	mu    sync.Mutex
	state State
}

func New(p Provider, log *eventlog.Logger) *Runner {
	return &Runner{provider: p, log: log, state: StateNotStarted}
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stateOrder[s] <= stateOrder[r.state] && s != r.state {
		return // never move backward out of a terminal or later state
	}
	r.state = s
}

func (r *Runner) fail(format string, args ...any) {
	r.log.Alertf(format, args...)
	r.setState(StateFailed)
}

func (r *Runner) cancelled(err error) error {
	r.log.Infof("stop signal received, run cancelled")
	r.setState(StateCancelled)
	return err
}

// Run executes the plan. It always cancels the derived context on exit so
// the session keeper terminates promptly, and converts panics anywhere in
// the sequence into a failed run with a logged alert.
func (r *Runner) Run(ctx context.Context, plan Plan) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.log.Alertf("fatal: %v\n%s", p, debug.Stack())
			r.setState(StateFailed)
			err = fmt.Errorf("fatal: %v", p)
		}
	}()

	r.setState(StateAuthenticating)
	r.log.Infof("logging in...")
	if err := r.provider.Login(ctx, plan.MemberID, plan.Password); err != nil {
		r.fail("login failed: %v", err)
		return err
	}

	// The keeper targets the nominal instant: its only job is keeping the
	// session alive until the run is done, precision is not required.
	go r.provider.KeepAlive(ctx, plan.OpenAt)

	r.setState(StateWaiting)
	syncAt := plan.OpenAt.Add(-syncLead)
	if time.Now().Before(syncAt) {
		r.log.Infof("waiting until %s for the clock sync point...", syncAt.Format("15:04:05.000"))
		if werr := WaitUntil(ctx, syncAt, nil); werr != nil {
			return r.cancelled(werr)
		}
	}

	offset := r.provider.ServerClockOffset(ctx)
	target := plan.OpenAt.Add(-offset)
	r.log.Infof("corrected local target: %s (offset %.3fs)", target.Format("15:04:05.000"), offset.Seconds())
	if ctx.Err() != nil {
		return r.cancelled(ctx.Err())
	}

	r.setState(StatePriming)
	if !r.provider.PrimeCalendar(ctx, plan.TargetDate) {
		r.log.Warnf("calendar priming failed; the first tee list query may be slower")
	}
	if ctx.Err() != nil {
		return r.cancelled(ctx.Err())
	}

	if time.Now().Before(target) {
		if werr := WaitUntil(ctx, target, func(secondsLeft int) {
			r.log.Infof("opening in %ds...", secondsLeft)
		}); werr != nil {
			return r.cancelled(werr)
		}
		r.log.Infof("target instant reached (wake skew %+.3fs)", time.Since(target).Seconds())
	} else {
		r.log.Warnf("already past the target instant, proceeding immediately")
	}

	r.setState(StateFetching)
	slots, err := r.provider.FetchTeeTimes(ctx, plan.TargetDate)
	if err != nil {
		if ctx.Err() != nil {
			return r.cancelled(err)
		}
		r.fail("tee time fetch failed: %v", err)
		return err
	}
	for _, line := range teetime.DigestByCourse(slots) {
		r.log.Infof("%s", line)
	}

	ranked, excluded := teetime.FilterAndRank(slots, plan.Window, plan.Course, plan.Direction)
	for _, s := range excluded {
		r.log.Infof("excluded %s %s (status %s)", s.CourseName, teetime.FormatForDisplay(s.Time), s.Status)
	}
	r.log.Infof("%d candidates after filtering, %s order", len(ranked), plan.Direction)
	for i, s := range ranked {
		if i == maxAttempts {
			break
		}
		r.log.Infof("  rank %d: %s (%s)", i+1, teetime.FormatForDisplay(s.Time), s.CourseName)
	}

	if plan.Delay > 0 {
		r.log.Infof("holding %s before attempting...", plan.Delay)
		sleepCtx(ctx, plan.Delay)
	}
	if ctx.Err() != nil {
		return r.cancelled(ctx.Err())
	}

	if plan.DryRun {
		if len(ranked) == 0 {
			r.log.Infof("dry run: no bookable slots matched the plan")
		} else {
			top := ranked[0]
			r.log.Infof("dry run: top candidate is %s (%s); no reservation written",
				teetime.FormatForDisplay(top.Time), top.CourseName)
		}
		r.setState(StateSucceeded)
		return nil
	}

	if len(ranked) == 0 {
		r.fail("no bookable slots matched the plan")
		return ErrNoCandidates
	}

	r.setState(StateAttempting)
	limit := len(ranked)
	if limit > maxAttempts {
		limit = maxAttempts
	}
	for i, s := range ranked[:limit] {
		if ctx.Err() != nil {
			return r.cancelled(ctx.Err())
		}
		r.log.Infof("[attempt %d/%d] %s %s", i+1, limit, s.CourseName, teetime.FormatForDisplay(s.Time))
		ok, aerr := r.provider.Reserve(ctx, plan.TargetDate, s)
		if aerr != nil {
			r.log.Warnf("attempt %d errored: %v", i+1, aerr)
			continue
		}
		if ok {
			r.log.Infof("booked rank %d: %s %s", i+1, s.CourseName, teetime.FormatForDisplay(s.Time))
			r.setState(StateSucceeded)
			return nil
		}
	}
	if ctx.Err() != nil {
		return r.cancelled(ctx.Err())
	}
	r.fail("all %d candidate attempts failed", limit)
	return ErrExhausted
}
