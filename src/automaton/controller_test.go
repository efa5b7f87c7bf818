package automaton

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestController(w int, h int) *RunController {
	o := DefaultOptions
	o.Width = w
	o.Height = h
	o.Delay = 0
	o.Seed = 42
	return NewRunController(&o)
}

//waitFor polls cond until it is true or fails the test after the timeout
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type countingViewer struct {
	mu        sync.Mutex
	refreshes int
	a         Automaton
}

func (v *countingViewer) Refresh() {
	v.mu.Lock()
	v.refreshes++
	v.mu.Unlock()
}

func (v *countingViewer) Register(a Automaton) {
	v.a = a
}

func (v *countingViewer) Start() {}

func (v *countingViewer) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshes
}

func TestNewRunController_Defaults(t *testing.T) {
	c := NewRunController(nil)
	defer c.Close()
	if c.Grid().Cols() != DefWidth || c.Grid().Rows() != DefHeight {
		t.Fatalf("unexpected size %v", c.Figure().Size())
	}
	if c.Grid().LiveCells() != 0 {
		t.Fatal("the initial figure must be empty")
	}
	if c.Rule() != DefaultRule || c.IsRunning() {
		t.Fatal("unexpected initial state")
	}
	if c.Options().Advanced["engine"] != "base" {
		t.Fatalf("unexpected engine %v", c.Options().Advanced["engine"])
	}
	if DefaultOptions.Advanced != nil {
		t.Fatal("the default options must not be modified")
	}
}

func TestNextGeneration(t *testing.T) {
	c := newTestController(5, 5)
	defer c.Close()
	if err := c.StampTemplate("blinker"); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	c.AddTemplate(Blinker)
	if err := c.StampTemplate("blinker"); err != nil {
		t.Fatal(err)
	}
	before := c.Grid()
	if !c.NextGeneration() {
		t.Fatal("the generation must be done")
	}
	st := c.Status()
	if st.Generation != 1 || st.LiveCells != 3 || st.RunningMode != StateIdle {
		t.Fatalf("unexpected status %+v", st)
	}
	if c.Grid().Equal(before) {
		t.Fatal("the blinker must change")
	}
	c.Clear()
	if st := c.Status(); st.Generation != 0 || st.LiveCells != 0 {
		t.Fatalf("Clear must reset the counters, got %+v", st)
	}
}

func TestRun_Simple(t *testing.T) {
	c := newTestController(10, 10)
	defer c.Close()
	c.Randomize(.4)
	c.SetRunProperties(RunProperties{Delay: time.Millisecond})
	c.Run()
	c.Run()
	if !c.IsRunning() {
		t.Fatal("the controller must be running")
	}
	if c.NextGeneration() {
		t.Fatal("NextGeneration must be ignored while running")
	}
	waitFor(t, "3 generations", func() bool { return c.Status().Generation >= 3 })
	c.Stop()
	c.Wait()
	if c.IsRunning() || c.Status().RunningMode != StateIdle {
		t.Fatal("the controller must be stopped")
	}
	g := c.Status().Generation
	time.Sleep(5 * time.Millisecond)
	if c.Status().Generation != g {
		t.Fatal("no generation is allowed after Stop")
	}
	c.Stop()

	//restart continues the counter
	c.Run()
	waitFor(t, "restart", func() bool { return c.Status().Generation > g })
	c.Stop()
}

func TestRun_MaxGenerations(t *testing.T) {
	o := DefaultOptions
	o.Delay = 0
	o.MaxGenerations = 5
	o.Workers = 4
	c := NewRunController(&o)
	defer c.Close()
	if c.Options().Advanced["engine"] != "multithreaded" {
		t.Fatalf("unexpected engine %v", c.Options().Advanced["engine"])
	}
	c.Randomize(.5)
	c.Run()
	c.Wait()
	st := c.Status()
	if st.Generation != 5 || st.RunningMode != StateFinished || c.IsRunning() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRun_CycledFinite(t *testing.T) {
	c := newTestController(6, 6)
	defer c.Close()
	c.AddTemplate(Block)
	_ = c.StampTemplate("block")

	cycles := MustFinite(2)
	var started int32
	b := SameFigure(cycles, c.Figure())
	b.OnCycleStart = func() { atomic.AddInt32(&started, 1) }
	c.SetRunProperties(RunProperties{Behaviour: b})
	c.Run()
	c.Wait()

	st := c.Status()
	if st.Generation != 2 || st.RunningMode != StateFinished || c.IsRunning() {
		t.Fatalf("unexpected status %+v", st)
	}
	if n := atomic.LoadInt32(&started); n != 1 {
		t.Fatalf("expected 1 cycle start, got %d", n)
	}
	expected := CycleProgress{CurrentStep: 0, CurrentCycle: 2, CycleLength: 0, HasCycleLength: true}
	if p := cycles.State().Progress(); p != expected || st.Cycle != expected {
		t.Fatalf("expected progress %+v, got %+v (status %+v)", expected, p, st.Cycle)
	}
}

func TestRun_CycledCountsSteps(t *testing.T) {
	c := newTestController(5, 5)
	defer c.Close()
	_ = c.ToggleCell(2, 2)
	cycles := MustFinite(1)
	c.SetRunProperties(RunProperties{Behaviour: &Cycled{Cycles: cycles}})
	c.Run()
	c.Wait()
	//the single cell dies in the first generation and the empty grid stabilizes in the second
	if st := c.Status(); st.Generation != 2 || st.RunningMode != StateFinished {
		t.Fatalf("unexpected status %+v", st)
	}
	expected := CycleProgress{CurrentStep: 0, CurrentCycle: 1, CycleLength: 1, HasCycleLength: true}
	if p := cycles.State().Progress(); p != expected {
		t.Fatalf("expected progress %+v, got %+v", expected, p)
	}
}

func TestRun_CycledInfinite(t *testing.T) {
	c := newTestController(6, 6)
	defer c.Close()
	c.AddTemplate(Block)
	_ = c.StampTemplate("block")
	var started int32
	b := SameFigure(Infinite(), c.Figure())
	b.OnCycleStart = func() { atomic.AddInt32(&started, 1) }
	c.SetRunProperties(RunProperties{Behaviour: b})
	c.Run()
	//every generation of the block is stable and starts the next cycle
	waitFor(t, "10 cycles", func() bool { return atomic.LoadInt32(&started) >= 10 })
	if !c.IsRunning() {
		t.Fatal("infinite cycles must not stop by themselves")
	}
	c.Stop()
	c.Wait()
}

//the period 2 oscillator is never equal to the previous generation
func TestRun_CycledOscillatorNeverStabilizes(t *testing.T) {
	c := newTestController(5, 5)
	defer c.Close()
	c.AddTemplate(Blinker)
	_ = c.StampTemplate("blinker")
	cycles := MustFinite(1)
	var started int32
	c.SetRunProperties(RunProperties{Behaviour: &Cycled{
		Cycles:       cycles,
		OnCycleStart: func() { atomic.AddInt32(&started, 1) },
	}})
	c.Run()
	waitFor(t, "20 generations", func() bool { return c.Status().Generation >= 20 })
	if !c.IsRunning() {
		t.Fatal("the oscillator must keep running")
	}
	c.Stop()
	c.Wait()
	p := cycles.State().Progress()
	if p.CurrentCycle != 0 || p.HasCycleLength || p.CurrentStep != c.Status().Generation {
		t.Fatalf("no cycle must be completed, got %+v", p)
	}
	if atomic.LoadInt32(&started) != 0 {
		t.Fatal("no cycle must be started")
	}
}

func TestSetFigure_WhileRunning(t *testing.T) {
	c := newTestController(10, 10)
	defer c.Close()
	if err := c.SetFigure(nil); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
	c.SetRunProperties(RunProperties{Delay: time.Millisecond})
	c.Run()
	f, _ := FromRandom(7, 4, .5)
	if err := c.SetFigure(f); err != nil {
		t.Fatal(err)
	}
	if !c.IsRunning() {
		t.Fatal("SetFigure must keep the loop running")
	}
	g := c.Status().Generation
	waitFor(t, "the next generation", func() bool { return c.Status().Generation > g })
	c.Stop()
	c.Wait()
	if c.Figure().Size() != (Size{W: 7, H: 4}) {
		t.Fatalf("unexpected size %v", c.Figure().Size())
	}
}

func TestSetSize(t *testing.T) {
	c := newTestController(10, 10)
	defer c.Close()
	c.Run()
	if err := c.SetSize(7, 0); err != nil {
		t.Fatal(err)
	}
	if c.IsRunning() {
		t.Fatal("SetSize must stop the loop")
	}
	if c.Figure().Size() != (Size{W: 7, H: 10}) {
		t.Fatalf("unexpected size %v", c.Figure().Size())
	}
	if err := c.SetSize(-1, 3); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestMutations_UpdateStatus(t *testing.T) {
	c := newTestController(4, 4)
	defer c.Close()
	v := &countingViewer{}
	c.RegisterViewer(v)
	if v.a != Automaton(c) {
		t.Fatal("the viewer must be registered with the controller")
	}
	sub := c.StatusUpdates()
	defer sub.Unsubscribe()

	if err := c.ToggleCell(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.ToggleCell(4, 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if st := <-sub.C(); st.LiveCells != 1 {
		t.Fatalf("expected 1 live cell, got %+v", st)
	}
	block, _ := Rectangle(2, 2, Alive)
	if err := c.Stamp(3, 3, block); err != nil {
		t.Fatal(err)
	}
	if c.Status().LiveCells != 5 {
		t.Fatalf("expected 5 live cells, got %+v", c.Status())
	}
	big, _ := Rectangle(5, 5, Alive)
	if err := c.StampCentered(big); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	c.Randomize(1)
	if c.Status().LiveCells != 16 {
		t.Fatalf("expected 16 live cells, got %+v", c.Status())
	}
	c.SetRule(MustRule("B36S23/2"))
	if c.Rule().String() != "B36S23/2" {
		t.Fatalf("unexpected rule %v", c.Rule())
	}
	if v.count() == 0 {
		t.Fatal("the viewer must be refreshed")
	}
}

func TestRunningUpdates(t *testing.T) {
	c := newTestController(4, 4)
	defer c.Close()
	sub := c.RunningUpdates()
	c.Run()
	if r := <-sub.C(); !r {
		t.Fatal("expected running")
	}
	c.Stop()
	if r := <-sub.C(); r {
		t.Fatal("expected stopped")
	}
}

//callbackViewer calls back into the controller from Refresh
type callbackViewer struct {
	a        Automaton
	onUpdate func(a Automaton)
}

func (v *callbackViewer) Refresh() {
	if v.a != nil {
		v.onUpdate(v.a)
	}
}

func (v *callbackViewer) Register(a Automaton) {
	v.a = a
}

func (v *callbackViewer) Start() {}

//within fails the test if f doesn't return in time
func within(t *testing.T, what string, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("deadlock: %s", what)
	}
}

func TestRefresh_ViewerStopsTheLoop(t *testing.T) {
	c := newTestController(8, 8)
	defer c.Close()
	c.Randomize(.5)
	c.RegisterViewer(&callbackViewer{onUpdate: func(a Automaton) {
		if a.Status().Generation >= 3 {
			a.Stop()
		}
	}})
	within(t, "Stop from Refresh", func() {
		c.Run()
		c.Wait()
	})
	if c.IsRunning() || c.Status().Generation != 3 {
		t.Fatalf("the loop must be stopped at generation 3, got %+v", c.Status())
	}
}

func TestRefresh_ViewerDoesNextGeneration(t *testing.T) {
	c := newTestController(8, 8)
	defer c.Close()
	steps := 0
	c.RegisterViewer(&callbackViewer{onUpdate: func(a Automaton) {
		if steps < 3 {
			steps++
			a.NextGeneration()
		}
	}})
	within(t, "NextGeneration from Refresh", func() {
		c.NextGeneration()
	})
	if g := c.Status().Generation; g != 4 {
		t.Fatalf("expected 4 generations, got %d", g)
	}
}

func TestRefresh_ViewerRestartsTheFinishedLoop(t *testing.T) {
	o := DefaultOptions
	o.Delay = 0
	o.MaxGenerations = 2
	c := NewRunController(&o)
	defer c.Close()
	var restarting, restarted int32
	c.RegisterViewer(&callbackViewer{onUpdate: func(a Automaton) {
		if a.Status().RunningMode == StateFinished && atomic.CompareAndSwapInt32(&restarting, 0, 1) {
			a.Clear()
			a.Run()
			atomic.StoreInt32(&restarted, 1)
		}
	}})
	within(t, "Run from Refresh", func() {
		c.Run()
		for atomic.LoadInt32(&restarted) == 0 || c.Status().RunningMode != StateFinished {
			time.Sleep(time.Millisecond)
		}
		c.Wait()
	})
	if st := c.Status(); st.Generation != 2 || c.IsRunning() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRun_StopRunNeverOverlaps(t *testing.T) {
	c := newTestController(12, 12)
	defer c.Close()
	c.Randomize(.5)
	var calls, overlaps int32
	c.Figure().SetEngine(func(cur *Grid, rule Rule) (*Grid, bool) {
		if c.loop.bodies.Load() > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Microsecond)
		return BaseEngine(cur, rule)
	})
	for i := 0; i < 50; i++ {
		c.Run()
		c.Stop()
		c.Run()
		c.Stop()
	}
	c.Run()
	waitFor(t, "the engine calls", func() bool { return atomic.LoadInt32(&calls) > 10 })
	c.Stop()
	c.Wait()
	if n := atomic.LoadInt32(&overlaps); n != 0 {
		t.Fatalf("%d generations were calculated with more than one loop alive", n)
	}
	if n := c.loop.bodies.Load(); n != 0 {
		t.Fatalf("expected no loop alive, got %d", n)
	}
	g := c.Status().Generation
	time.Sleep(5 * time.Millisecond)
	if c.Status().Generation != g {
		t.Fatal("no generation is allowed after the last Stop")
	}
}

//run with -race: the external writers and the cycled loop share the figure
func TestMutations_WhileCycledRunning(t *testing.T) {
	c := newTestController(10, 10)
	defer c.Close()
	b, err := RandomFigure(Infinite(), 10, 10, .3)
	if err != nil {
		t.Fatal(err)
	}
	c.SetRunProperties(RunProperties{Behaviour: b})
	c.Run()
	block, _ := Rectangle(2, 2, Alive)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				var err error
				switch (i + w) % 5 {
				case 0:
					err = c.Stamp(i%10, w, block)
				case 1:
					err = c.ToggleCell(i%10, 9-w)
				case 2:
					c.Randomize(.4)
				case 3:
					err = c.StampCentered(block)
				default:
					c.SetRule(MustRule("B36S23/1"))
				}
				if err != nil {
					errs <- err
					return
				}
				_ = c.Grid().LiveCells()
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if !c.IsRunning() {
		t.Fatal("the mutations must not stop the loop")
	}
	c.Stop()
	c.Wait()
	if c.Figure().Size() != (Size{W: 10, H: 10}) || c.Status().Generation == 0 {
		t.Fatalf("unexpected state %v %+v", c.Figure().Size(), c.Status())
	}
}
