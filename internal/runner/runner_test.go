package runner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhc880510-bsk/newseoul-booking/internal/eventlog"
	"github.com/bhc880510-bsk/newseoul-booking/internal/teetime"
)

type fakeProvider struct {
	loginErr    error
	offset      time.Duration
	primed      bool
	slots       []teetime.Slot
	fetchErr    error
	reserveOK   map[teetime.Key]bool // true books, false rejects
	reserveErr  map[teetime.Key]error
	attempted   []teetime.Slot
	keeperRuns  atomic.Int64
	keeperDone  atomic.Int64
	loginCalled bool
}

func (f *fakeProvider) Login(ctx context.Context, memberID, password string) error {
	f.loginCalled = true
	return f.loginErr
}

func (f *fakeProvider) KeepAlive(ctx context.Context, deadline time.Time) {
	f.keeperRuns.Add(1)
	<-ctx.Done()
	f.keeperDone.Add(1)
}

func (f *fakeProvider) ServerClockOffset(ctx context.Context) time.Duration { return f.offset }

func (f *fakeProvider) PrimeCalendar(ctx context.Context, date string) bool { return f.primed }

func (f *fakeProvider) FetchTeeTimes(ctx context.Context, date string) ([]teetime.Slot, error) {
	return f.slots, f.fetchErr
}

func (f *fakeProvider) Reserve(ctx context.Context, date string, s teetime.Slot) (bool, error) {
	f.attempted = append(f.attempted, s)
	if err := f.reserveErr[s.Key()]; err != nil {
		return false, err
	}
	return f.reserveOK[s.Key()], nil
}

func bookable(t, course string) teetime.Slot {
	return teetime.Slot{
		Time: t, Course: course, SubRound: teetime.DefaultSubRound(course),
		CourseName: teetime.CourseName(course), Facility: "204", Status: teetime.StatusBookable,
	}
}

func plan() Plan {
	return Plan{
		MemberID:   "golfer01",
		Password:   "pw",
		TargetDate: "20261101",
		OpenAt:     time.Now().Add(50 * time.Millisecond),
		Window:     teetime.Window{Start: "0700", End: "0900"},
		Course:     teetime.CategoryAll,
		Direction:  teetime.Ascending,
	}
}

func newTestRunner(f *fakeProvider) (*Runner, *eventlog.Buffer) {
	buf := eventlog.NewBuffer(1000)
	return New(f, eventlog.New(buf)), buf
}

func hasAlert(buf *eventlog.Buffer) bool {
	for _, e := range buf.All() {
		if e.Alert {
			return true
		}
	}
	return false
}

func TestRunBooksFirstCandidateThatSucceeds(t *testing.T) {
	a, b, c := bookable("0700", "A"), bookable("0730", "B"), bookable("0800", "C")
	f := &fakeProvider{
		primed:    true,
		slots:     []teetime.Slot{c, a, b},
		reserveOK: map[teetime.Key]bool{b.Key(): true},
	}
	r, buf := newTestRunner(f)

	if err := r.Run(context.Background(), plan()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.State() != StateSucceeded {
		t.Fatalf("state = %s", r.State())
	}
	// ascending: A rejected, then B booked, C never attempted
	if len(f.attempted) != 2 || f.attempted[0].Course != "A" || f.attempted[1].Course != "B" {
		t.Fatalf("attempted = %v", f.attempted)
	}
	if hasAlert(buf) {
		t.Fatal("successful run emitted an alert")
	}
	stopBy := time.Now().Add(time.Second)
	for f.keeperDone.Load() == 0 && time.Now().Before(stopBy) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.keeperDone.Load() != 1 {
		t.Fatal("session keeper was not stopped on exit")
	}
}

func TestRunAttemptsAtMostFiveCandidates(t *testing.T) {
	var slots []teetime.Slot
	for _, tm := range []string{"0700", "0710", "0720", "0730", "0740", "0750", "0800"} {
		slots = append(slots, bookable(tm, "A"))
	}
	f := &fakeProvider{primed: true, slots: slots}
	r, _ := newTestRunner(f)

	err := r.Run(context.Background(), plan())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if len(f.attempted) != 5 {
		t.Fatalf("attempted %d candidates, want the top-5 bound", len(f.attempted))
	}
	if r.State() != StateFailed {
		t.Fatalf("state = %s", r.State())
	}
}

func TestRunAttemptErrorFallsThroughToNextCandidate(t *testing.T) {
	a, b := bookable("0700", "A"), bookable("0730", "B")
	f := &fakeProvider{
		primed:     true,
		slots:      []teetime.Slot{a, b},
		reserveErr: map[teetime.Key]error{a.Key(): errors.New("timeout budget exhausted")},
		reserveOK:  map[teetime.Key]bool{b.Key(): true},
	}
	r, _ := newTestRunner(f)

	if err := r.Run(context.Background(), plan()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.attempted) != 2 {
		t.Fatalf("attempted = %v", f.attempted)
	}
}

func TestRunDryRunPreviewsWithoutWriting(t *testing.T) {
	f := &fakeProvider{primed: true, slots: []teetime.Slot{bookable("0700", "A")}}
	r, buf := newTestRunner(f)

	p := plan()
	p.DryRun = true
	if err := r.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.attempted) != 0 {
		t.Fatal("dry run wrote a reservation")
	}
	if r.State() != StateSucceeded {
		t.Fatalf("state = %s", r.State())
	}
	found := false
	for _, e := range buf.All() {
		if strings.Contains(e.Message, "dry run") && strings.Contains(e.Message, "07:00") {
			found = true
		}
	}
	if !found {
		t.Fatal("dry run preview not logged")
	}
}

func TestRunDryRunSucceedsWithNoCandidates(t *testing.T) {
	f := &fakeProvider{primed: true}
	r, _ := newTestRunner(f)
	p := plan()
	p.DryRun = true
	if err := r.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.State() != StateSucceeded {
		t.Fatalf("state = %s", r.State())
	}
}

func TestRunFailsWhenNoCandidates(t *testing.T) {
	closed := bookable("0700", "A")
	closed.Status = "X"
	f := &fakeProvider{primed: true, slots: []teetime.Slot{closed}}
	r, buf := newTestRunner(f)

	err := r.Run(context.Background(), plan())
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
	if !hasAlert(buf) {
		t.Fatal("failure did not emit an alert event")
	}
}

func TestRunLoginFailureIsFatal(t *testing.T) {
	f := &fakeProvider{loginErr: errors.New("rejected")}
	r, buf := newTestRunner(f)

	if err := r.Run(context.Background(), plan()); err == nil {
		t.Fatal("expected error")
	}
	if r.State() != StateFailed {
		t.Fatalf("state = %s", r.State())
	}
	if !hasAlert(buf) {
		t.Fatal("login failure did not emit an alert")
	}
	if f.keeperRuns.Load() != 0 {
		t.Fatal("keeper launched before authentication succeeded")
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	f := &fakeProvider{primed: true, fetchErr: errors.New("network down")}
	r, buf := newTestRunner(f)

	if err := r.Run(context.Background(), plan()); err == nil {
		t.Fatal("expected error")
	}
	if r.State() != StateFailed || !hasAlert(buf) {
		t.Fatalf("state = %s, alert = %v", r.State(), hasAlert(buf))
	}
}

func TestRunCancelledDuringWait(t *testing.T) {
	f := &fakeProvider{primed: true, slots: []teetime.Slot{bookable("0700", "A")}}
	r, _ := newTestRunner(f)

	ctx, cancel := context.WithCancel(context.Background())
	p := plan()
	p.OpenAt = time.Now().Add(time.Hour)
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	if err := r.Run(ctx, p); err == nil {
		t.Fatal("expected cancellation error")
	}
	if r.State() != StateCancelled {
		t.Fatalf("state = %s", r.State())
	}
	if len(f.attempted) != 0 {
		t.Fatal("attempted after cancellation")
	}
}

func TestRunClockOffsetShiftsTarget(t *testing.T) {
	// server ahead by 1h: corrected local target moves earlier than now, so
	// the run proceeds immediately instead of waiting for the nominal instant
	f := &fakeProvider{primed: true, offset: time.Hour, slots: []teetime.Slot{bookable("0700", "A")}}
	r, _ := newTestRunner(f)

	p := plan()
	p.OpenAt = time.Now().Add(20 * time.Second) // close enough to skip the sync wait
	p.DryRun = true
	start := time.Now()
	if err := r.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run took %v, corrected target should already be past", elapsed)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	buf := eventlog.NewBuffer(1000)
	r := New(&panickingProvider{fakeProvider: &fakeProvider{primed: true}}, eventlog.New(buf))

	err := r.Run(context.Background(), plan())
	if err == nil || !strings.Contains(err.Error(), "fatal") {
		t.Fatalf("err = %v, want recovered fatal", err)
	}
	if r.State() != StateFailed {
		t.Fatalf("state = %s", r.State())
	}
	if !hasAlert(buf) {
		t.Fatal("panic did not emit an alert")
	}
}

type panickingProvider struct{ *fakeProvider }

func (p *panickingProvider) FetchTeeTimes(ctx context.Context, date string) ([]teetime.Slot, error) {
	panic("boom")
}
