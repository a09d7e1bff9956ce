package sim

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/san-kum/ballsim/internal/ball"
	"github.com/san-kum/ballsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// markRunning makes AddBall/RemoveBall queue without starting the loop so a
// test can drive ticks by hand.
func markRunning(e *Engine) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
}

func velocityOf(t *testing.T, e *Engine, id ball.ID) r2.Vec {
	t.Helper()
	for _, b := range e.Balls() {
		if b.ID == id {
			return b.Velocity
		}
	}
	t.Fatalf("ball %s not live", id)
	return r2.Vec{}
}

func TestNewEngineInitialState(t *testing.T) {
	e := New()

	if e.Len() != 2 {
		t.Fatalf("expected 2 initial balls, got %d", e.Len())
	}
	if e.Running() {
		t.Error("new engine should be stopped")
	}
	if e.TimeStep() != DefaultTimeStep {
		t.Errorf("expected dt %f, got %f", DefaultTimeStep, e.TimeStep())
	}
	for _, b := range e.Balls() {
		if b.Velocity != (r2.Vec{}) || b.Pinned {
			t.Errorf("initial ball not at rest: %+v", b)
		}
	}
}

func TestAddBallWhileStopped(t *testing.T) {
	e := New(WithInitialPositions(nil))
	id := e.AddBall(r2.Vec{X: 10, Y: 20})

	if id.IsNull() {
		t.Fatal("expected non-nil id")
	}
	pos, err := e.Position(id)
	if err != nil {
		t.Fatalf("position failed: %v", err)
	}
	if pos != (r2.Vec{X: 10, Y: 20}) {
		t.Errorf("expected (10,20), got %v", pos)
	}
	if e.Len() != 1 {
		t.Errorf("expected 1 ball, got %d", e.Len())
	}
}

func TestRemoveBallIdempotent(t *testing.T) {
	e := New()
	ids := e.IDs()

	e.RemoveBall(ids[0])
	if e.Len() != 1 {
		t.Fatalf("expected 1 ball, got %d", e.Len())
	}

	e.RemoveBall(ids[0])
	e.RemoveBall(ball.Nil)
	e.RemoveBall(ball.NewID())
	if e.Len() != 1 {
		t.Errorf("expected registry unchanged, got %d balls", e.Len())
	}
	if got := e.IDs(); len(got) != 1 || got[0] != ids[1] {
		t.Errorf("wrong survivor: %v", got)
	}
}

func TestRemoveBallAt(t *testing.T) {
	e := New(WithInitialPositions(nil))
	id := e.AddBall(r2.Vec{X: 100, Y: 100})

	if got := e.RemoveBallAt(r2.Vec{X: 400, Y: 400}); !got.IsNull() {
		t.Errorf("expected nothing removed, got %s", got)
	}
	if e.Len() != 1 {
		t.Fatalf("empty-area removal changed registry")
	}

	if got := e.RemoveBallAt(r2.Vec{X: 103, Y: 100}); got != id {
		t.Errorf("expected %s removed, got %s", id, got)
	}
	if e.Len() != 0 {
		t.Errorf("expected empty registry, got %d", e.Len())
	}
}

func TestFindNearest(t *testing.T) {
	e := New(WithInitialPositions(nil))
	a := e.AddBall(r2.Vec{X: 0, Y: 0})
	b := e.AddBall(r2.Vec{X: 100, Y: 0})

	tests := []struct {
		name string
		p    r2.Vec
		want ball.ID
	}{
		{"on a", r2.Vec{X: 1, Y: 1}, a},
		{"on b", r2.Vec{X: 98, Y: 0}, b},
		{"between", r2.Vec{X: 50, Y: 0}, ball.Nil},
		{"edge excluded", r2.Vec{X: ball.Radius, Y: 0}, ball.Nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.FindNearest(tt.p); got != tt.want {
				t.Errorf("FindNearest(%v) = %s, want %s", tt.p, got, tt.want)
			}
		})
	}
}

func TestUnknownEntity(t *testing.T) {
	e := New()
	gone := e.IDs()[0]
	e.RemoveBall(gone)

	err := e.MoveBall(gone, r2.Vec{X: 1})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("move: expected ErrUnknownEntity, got %v", err)
	}
	var entErr *EntityError
	if !errors.As(err, &entErr) || entErr.ID != gone || entErr.Op != "move" {
		t.Errorf("expected EntityError for %s, got %v", gone, err)
	}

	if err := e.SetPinned(gone, true); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("pin: expected ErrUnknownEntity, got %v", err)
	}
	if _, err := e.Position(gone); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("position: expected ErrUnknownEntity, got %v", err)
	}
}

func TestNilIDIsNoOp(t *testing.T) {
	e := New()
	if err := e.MoveBall(ball.Nil, r2.Vec{}); err != nil {
		t.Errorf("move nil: %v", err)
	}
	if err := e.SetPinned(ball.Nil, true); err != nil {
		t.Errorf("pin nil: %v", err)
	}
}

func TestMoveBall(t *testing.T) {
	e := New()
	id := e.IDs()[0]
	if err := e.MoveBall(id, r2.Vec{X: 42, Y: 7}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if pos, _ := e.Position(id); pos != (r2.Vec{X: 42, Y: 7}) {
		t.Errorf("expected (42,7), got %v", pos)
	}
}

func TestTickAppliesForceLaw(t *testing.T) {
	e := New(
		WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 4}}),
		WithTimeStep(1),
	)
	var origin, other ball.ID
	for _, b := range e.Balls() {
		if b.Position == (r2.Vec{}) {
			origin = b.ID
		} else {
			other = b.ID
		}
	}

	e.tick()

	want := r2.Vec{X: 0.096, Y: 0.128}
	if v := velocityOf(t, e, origin); r2.Norm(r2.Sub(v, want)) > 1e-9 {
		t.Errorf("expected velocity %v, got %v", want, v)
	}
	if p, _ := e.Position(origin); r2.Norm(r2.Sub(p, want)) > 1e-9 {
		t.Errorf("expected position %v, got %v", want, p)
	}
	if p, _ := e.Position(other); r2.Norm(r2.Sub(p, r2.Sub(r2.Vec{X: 3, Y: 4}, want))) > 1e-9 {
		t.Errorf("other ball at %v", p)
	}
	if e.Ticks() != 1 {
		t.Errorf("expected 1 tick, got %d", e.Ticks())
	}
}

func TestTickSkipsPinned(t *testing.T) {
	e := New(
		WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 4}}),
		WithTimeStep(1),
	)
	pinned := e.FindNearest(r2.Vec{})
	if err := e.SetPinned(pinned, true); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		e.tick()
	}

	if p, _ := e.Position(pinned); p != (r2.Vec{}) {
		t.Errorf("pinned ball moved to %v", p)
	}
	if v := velocityOf(t, e, pinned); v != (r2.Vec{}) {
		t.Errorf("pinned ball has velocity %v", v)
	}
}

func TestQueuedRequestsDrainWithinTick(t *testing.T) {
	e := New()
	markRunning(e)
	victim := e.IDs()[0]

	added := e.AddBall(r2.Vec{X: 50, Y: 50})
	e.RemoveBall(victim)

	if e.Len() != 2 {
		t.Fatalf("queued requests applied early: %d balls", e.Len())
	}
	if pos, err := e.Position(added); err != nil || pos != (r2.Vec{X: 50, Y: 50}) {
		t.Errorf("pending ball not addressable: %v %v", pos, err)
	}

	e.tick()

	ids := e.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 balls after drain, got %d", len(ids))
	}
	for _, id := range ids {
		if id == victim {
			t.Error("deleted ball still live")
		}
	}
	if _, err := e.Position(added); err != nil {
		t.Errorf("added ball missing: %v", err)
	}
}

func TestRemovePendingCreationCancelsIt(t *testing.T) {
	e := New(WithInitialPositions(nil))
	markRunning(e)

	id := e.AddBall(r2.Vec{X: 1, Y: 1})
	e.RemoveBall(id)
	e.tick()

	if e.Len() != 0 {
		t.Errorf("expected cancelled creation, got %d balls", e.Len())
	}
}

func TestSetTimeStep(t *testing.T) {
	e := New()
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := e.SetTimeStep(dt); !errors.Is(err, ErrInvalidTimeStep) {
			t.Errorf("dt=%v: expected ErrInvalidTimeStep, got %v", dt, err)
		}
	}
	if err := e.SetTimeStep(0.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.TimeStep() != 0.01 {
		t.Errorf("expected 0.01, got %f", e.TimeStep())
	}
}

func TestSetTimeStepAppliesToLaterTicksOnly(t *testing.T) {
	law := physics.DefaultLaw()
	e := New(
		WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 4}}),
		WithTimeStep(1),
	)
	origin := e.FindNearest(r2.Vec{})
	other := e.FindNearest(r2.Vec{X: 3, Y: 4})

	e.tick()

	p1, _ := e.Position(origin)
	q1, _ := e.Position(other)
	v1 := velocityOf(t, e, origin)
	// dt=1: one kick then one drift from rest
	if want := law.Pair(r2.Vec{}, r2.Vec{X: 3, Y: 4}); r2.Norm(r2.Sub(p1, want)) > 1e-12 {
		t.Fatalf("first step moved origin to %v, want %v", p1, want)
	}

	if err := e.SetTimeStep(0.5); err != nil {
		t.Fatal(err)
	}
	if p, _ := e.Position(origin); p != p1 {
		t.Fatalf("SetTimeStep changed a completed step: %v -> %v", p1, p)
	}

	e.tick()

	v2 := r2.Add(v1, r2.Scale(0.5, law.Pair(p1, q1)))
	want := r2.Add(p1, r2.Scale(0.5, v2))
	if p2, _ := e.Position(origin); r2.Norm(r2.Sub(p2, want)) > 1e-12 {
		t.Errorf("second step moved origin to %v, want %v", p2, want)
	}
	if v := velocityOf(t, e, origin); r2.Norm(r2.Sub(v, v2)) > 1e-12 {
		t.Errorf("second step velocity %v, want %v", v, v2)
	}
}

func TestCreateWhileRunningVisibleWithinTick(t *testing.T) {
	g := NewWithT(t)
	e := New()
	e.Start()
	defer e.Close()

	id := e.AddBall(r2.Vec{X: 10, Y: 10})
	t0 := e.Ticks()
	// the tick in flight may have drained already; the next one cannot miss it
	g.Eventually(e.Ticks).Should(BeNumerically(">=", t0+2))
	g.Expect(e.IDs()).To(ContainElement(id))
}

func TestPinWhileRunning(t *testing.T) {
	g := NewWithT(t)
	e := New(WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}}), WithTimeStep(0.01))
	e.Start()
	defer e.Close()

	id := e.FindNearest(r2.Vec{})
	g.Eventually(func() float64 { return velocityOf(t, e, id).X }).Should(BeNumerically(">", 0))

	g.Expect(e.SetPinned(id, true)).To(Succeed())
	g.Expect(velocityOf(t, e, id)).To(Equal(r2.Vec{}))
	held, err := e.Position(id)
	g.Expect(err).NotTo(HaveOccurred())

	t0 := e.Ticks()
	g.Eventually(e.Ticks).Should(BeNumerically(">=", t0+10))
	g.Expect(e.Position(id)).To(Equal(held))
	g.Expect(velocityOf(t, e, id)).To(Equal(r2.Vec{}))
}

func TestStopRoundTrip(t *testing.T) {
	g := NewWithT(t)
	e := New(WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 20, Y: 0}}), WithTimeStep(0.01))
	e.Stop()

	e.Start()
	g.Expect(e.Running()).To(BeTrue())
	g.Eventually(func() float64 { return r2.Norm2(e.Balls()[0].Velocity) }).Should(BeNumerically(">", 0))

	e.Stop()
	g.Expect(e.Running()).To(BeFalse())
	for _, b := range e.Balls() {
		g.Expect(b.Velocity).To(Equal(r2.Vec{}))
	}

	ticks := e.Ticks()
	g.Consistently(e.Ticks, 50*time.Millisecond, 5*time.Millisecond).Should(Equal(ticks))

	e.Stop()
	g.Expect(e.Ticks()).To(Equal(ticks))
}

func TestConcurrentStopsWaitForCleanup(t *testing.T) {
	g := NewWithT(t)
	e := New(WithInitialPositions([]r2.Vec{{X: 0, Y: 0}, {X: 20, Y: 0}}), WithTimeStep(0.01))
	e.Start()
	g.Eventually(func() float64 { return r2.Norm2(e.Balls()[0].Velocity) }).Should(BeNumerically(">", 0))

	var wg sync.WaitGroup
	moving := make(chan r2.Vec, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Stop()
			for _, b := range e.Balls() {
				if b.Velocity != (r2.Vec{}) {
					moving <- b.Velocity
				}
			}
		}()
	}
	wg.Wait()
	close(moving)

	for v := range moving {
		t.Errorf("Stop returned with a ball still moving at %v", v)
	}
	g.Expect(e.Running()).To(BeFalse())
}

func TestToggle(t *testing.T) {
	e := New()
	e.Toggle()
	if !e.Running() {
		t.Fatal("expected running after toggle")
	}
	e.Toggle()
	if e.Running() {
		t.Error("expected stopped after second toggle")
	}
}

func TestTickInterval(t *testing.T) {
	g := NewWithT(t)
	e := New(WithTickInterval(10 * time.Millisecond))
	e.Start()
	time.Sleep(55 * time.Millisecond)
	e.Stop()

	g.Expect(e.Ticks()).To(BeNumerically(">=", 1))
	g.Expect(e.Ticks()).To(BeNumerically("<", 20))
}

func TestConcurrentCallersKeepIDsUnique(t *testing.T) {
	e := New(WithTimeStep(0.01))
	e.Start()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				p := r2.Vec{X: float64(w * 100), Y: float64(i)}
				id := e.AddBall(p)
				_ = e.MoveBall(id, r2.Vec{X: p.X + 1, Y: p.Y})
				_ = e.SetPinned(id, i%2 == 0)
				if i%3 == 0 {
					e.RemoveBall(id)
				}
				_ = e.Positions()
				_ = e.FindNearest(p)
			}
		}(w)
	}
	wg.Wait()
	e.Stop()

	ids := e.IDs()
	seen := make(map[ball.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	// 2 initial + 4 workers * (100 - 34 removed)
	if len(ids) != 2+4*66 {
		t.Errorf("expected %d balls, got %d", 2+4*66, len(ids))
	}
	if len(e.Positions()) != len(ids) {
		t.Errorf("positions and ids disagree")
	}
}
