package automaton

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cellauto/src/observable"
)

//RunController drives the figure's generations
//implements Automaton interface
//at most one run loop advances the figure at any moment
type RunController struct {
	options Options
	logger  *log.Logger
	figure  *Figure
	rule    *observable.Value[Rule]
	running *observable.Value[bool]
	status  *observable.Value[Status]
	state   struct {
		Status
		sync.Mutex
	}
	props struct {
		RunProperties
		sync.Mutex
	}
	loop struct {
		sync.Mutex
		active bool
		stop   chan struct{} //closed by Stop or when the loop ends by itself
		done   chan struct{} //closed when the loop goroutine exits
		bodies atomic.Int32  //loop goroutines advancing the figure
	}
	views struct {
		list []Viewer
		sync.Mutex
	}
	templates struct {
		m map[string]Template
		sync.Mutex
	}
}

//NewRunController creates the RunController with the empty figure of Width x Height
func NewRunController(o *Options) *RunController {
	if o == nil {
		o = &DefaultOptions
	}
	opts := *o
	opts.Advanced = make(map[string]interface{})
	for k, v := range o.Advanced {
		opts.Advanced[k] = v
	}
	if opts.Width <= 0 {
		opts.Width = DefWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefHeight
	}

	c := &RunController{
		options: opts,
		logger:  opts.Logger,
		figure:  newFigure(createGrid(opts.Height, opts.Width)),
		rule:    observable.New(opts.Rule),
		running: observable.New(false),
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if opts.Workers > 1 {
		c.figure.SetEngine(MultithreadedEngine(opts.Workers))
		c.options.Advanced["engine"] = "multithreaded"
		c.options.Advanced["Workers"] = opts.Workers
	} else {
		c.options.Advanced["engine"] = "base"
	}
	if opts.Seed != 0 {
		c.figure.Seed(uint64(opts.Seed))
	}
	c.props.RunProperties = RunProperties{Delay: opts.Delay, Behaviour: Simple{}}
	c.templates.m = map[string]Template{}
	c.status = observable.New(c.state.Status)
	return c
}

//Status returns current status represented by Status struct
func (c *RunController) Status() Status {
	c.state.Lock()
	defer c.state.Unlock()
	return c.state.Status
}

//StatusUpdates returns the subscription delivering every status change
func (c *RunController) StatusUpdates() *observable.Subscription[Status] {
	return c.status.Subscribe()
}

//RunningUpdates returns the subscription delivering the running flag changes
func (c *RunController) RunningUpdates() *observable.Subscription[bool] {
	return c.running.Subscribe()
}

//RuleUpdates returns the subscription delivering the rule changes
func (c *RunController) RuleUpdates() *observable.Subscription[Rule] {
	return c.rule.Subscribe()
}

//Options returns the configuration represented by Options struct
func (c *RunController) Options() Options {
	return c.options
}

//Figure returns the running figure, its grid is replaced on every generation
func (c *RunController) Figure() *Figure {
	return c.figure
}

//Grid returns the current grid snapshot
func (c *RunController) Grid() *Grid {
	return c.figure.Grid()
}

//Rule returns the current rule
func (c *RunController) Rule() Rule {
	return c.rule.Get()
}

//SetRule changes the rule, the running loop uses it from the next generation
func (c *RunController) SetRule(r Rule) {
	c.rule.Set(r)
	c.refreshView()
}

//IsRunning reports whether the run loop is active
func (c *RunController) IsRunning() bool {
	return c.running.Get()
}

//RunProperties returns the current run properties
func (c *RunController) RunProperties() RunProperties {
	c.props.Lock()
	defer c.props.Unlock()
	return c.props.RunProperties
}

//SetRunProperties replaces the run properties, nil Behaviour means Simple
//the new delay is applied by the running loop, the new behaviour on the next Run
func (c *RunController) SetRunProperties(p RunProperties) {
	if p.Behaviour == nil {
		p.Behaviour = Simple{}
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	c.props.Lock()
	c.props.RunProperties = p
	c.props.Unlock()
}

//AddTemplate adds the seeding template to the internal storage
//the figure can be stamped with this template by call StampTemplate
func (c *RunController) AddTemplate(tmpl Template) {
	c.templates.Lock()
	c.templates.m[tmpl.Name] = tmpl
	c.templates.Unlock()
}

//Templates returns the sorted names of the registered templates
func (c *RunController) Templates() []string {
	c.templates.Lock()
	defer c.templates.Unlock()
	names := make([]string, 0, len(c.templates.m))
	for k := range c.templates.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

//StampTemplate stamps the template to the center of the figure
func (c *RunController) StampTemplate(name string) error {
	c.templates.Lock()
	tmpl, ok := c.templates.m[name]
	c.templates.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	f, err := FromTemplate(tmpl)
	if err != nil {
		return err
	}
	return c.StampCentered(f)
}

//Stamp copies f to the figure at x, y with wraparound
func (c *RunController) Stamp(x int, y int, f *Figure) error {
	return c.mutated(c.figure.Stamp(x, y, f))
}

//StampCentered copies f to the center of the figure
func (c *RunController) StampCentered(f *Figure) error {
	return c.mutated(c.figure.StampCentered(f))
}

//ToggleCell inverses the cell state at point x, y
func (c *RunController) ToggleCell(x int, y int) error {
	return c.mutated(c.figure.ToggleCell(x, y))
}

//Randomize fills the figure with random data
func (c *RunController) Randomize(ratio float64) {
	c.figure.Randomize(ratio)
	c.publish()
}

//Clear kills all cells and resets the generation counter
func (c *RunController) Clear() {
	c.figure.Clear()
	c.state.Lock()
	c.state.Generation = 0
	c.state.IterationTime = 0
	c.state.Unlock()
	c.publish()
}

//SetFigure replaces the running figure's grid with the grid of f
//when the loop is running it goes on with the new grid
func (c *RunController) SetFigure(f *Figure) error {
	if f == nil {
		return fmt.Errorf("%w: nil figure", ErrInvalidShape)
	}
	c.figure.ReplaceFigure(f)
	c.publish()
	return nil
}

//SetSize stops the loop and swaps in the random figure of the new size
//0 keeps the current dimension
func (c *RunController) SetSize(width int, height int) error {
	c.Stop()
	if width == 0 {
		width = c.figure.Width()
	}
	if height == 0 {
		height = c.figure.Height()
	}
	f, err := FromRandom(width, height, c.options.FillingRatio)
	if err != nil {
		return err
	}
	return c.SetFigure(f)
}

//NextGeneration does one generation synchronously
//it is ignored while the loop is running
//the views are refreshed after the loop lock is released, so they may call back into the controller
func (c *RunController) NextGeneration() bool {
	c.loop.Lock()
	if c.loop.active {
		c.loop.Unlock()
		return false
	}
	rm := c.Status().RunningMode
	c.setRunningState(StateStep)
	c.step()
	c.setRunningState(rm)
	c.loop.Unlock()
	c.refreshView()
	return true
}

//RegisterViewer registers the viewer - the controller will call the viewer when the state is changed
func (c *RunController) RegisterViewer(v Viewer) {
	c.views.Lock()
	c.views.list = append(c.views.list, v)
	c.views.Unlock()
	v.Register(c)
}

//Run starts the loop with the current run properties, returns immediately
//it does nothing if the loop is already running
func (c *RunController) Run() {
	c.loop.Lock()
	if c.loop.active {
		c.loop.Unlock()
		return
	}
	props := c.RunProperties()
	stop := make(chan struct{})
	done := make(chan struct{})
	prev := c.loop.done
	c.loop.active, c.loop.stop, c.loop.done = true, stop, done
	c.running.Set(true)
	c.setRunningState(StateRunning)
	c.loop.Unlock()
	c.refreshView()

	go func() {
		defer close(done)
		//the stopped loop may still finish its in-flight generation
		if prev != nil {
			<-prev
		}
		c.loop.bodies.Add(1)
		defer c.loop.bodies.Add(-1)
		switch b := props.Behaviour.(type) {
		case *Cycled:
			c.logger.Printf("cycled run started: cycles %v, delay %v", b.Cycles, props.Delay)
			c.cycledRun(b, stop)
		default:
			c.logger.Printf("simple run started: delay %v", props.Delay)
			c.simpleRun(stop)
		}
	}()
}

//Stop stops the loop, returns immediately
//the generation in flight is completed, no further generation is started
func (c *RunController) Stop() {
	c.loop.Lock()
	if !c.loop.active {
		c.loop.Unlock()
		return
	}
	c.loop.active = false
	close(c.loop.stop)
	c.running.Set(false)
	c.setRunningState(StateIdle)
	c.loop.Unlock()
	c.logger.Printf("stopped at generation %d", c.Status().Generation)
	c.refreshView()
}

//Wait blocks until the last started loop goroutine exits
func (c *RunController) Wait() {
	c.loop.Lock()
	done := c.loop.done
	c.loop.Unlock()
	if done != nil {
		<-done
	}
}

//Close stops the loop and closes all subscriptions
func (c *RunController) Close() {
	c.Stop()
	c.Wait()
	c.status.Close()
	c.running.Close()
	c.rule.Close()
	c.figure.Close()
}

//simpleRun advances the figure until stopped
func (c *RunController) simpleRun(stop chan struct{}) {
	for !stopped(stop) {
		c.step()
		c.refreshView()
		if c.limitReached() {
			c.finish(stop)
			return
		}
		if !c.wait(stop) {
			return
		}
	}
}

//cycledRun advances the figure until the cycles run out or stopped
//the cycle ends when the generation doesn't change the grid
func (c *RunController) cycledRun(b *Cycled, stop chan struct{}) {
	remaining := b.Cycles.Count()
	cs := b.Cycles.State()
	if cs != nil {
		cs.Reset()
	}
	for !stopped(stop) {
		changed := c.step()
		if cs != nil {
			cs.Increase(!changed)
			c.setCycleProgress(cs.Progress())
		}
		c.refreshView()
		if !changed {
			//infinite cycles start from 0 and saturate at -1, they never reach 0
			remaining--
			if remaining < -1 {
				remaining = -1
			}
			if remaining == 0 {
				c.logger.Printf("cycles are over at generation %d", c.Status().Generation)
				c.finish(stop)
				return
			}
			c.logger.Printf("stabilized at generation %d, next cycle", c.Status().Generation)
			c.figure.ReplaceFigure(b.NextFigure())
			c.publish()
		}
		if c.limitReached() {
			c.finish(stop)
			return
		}
		if !c.wait(stop) {
			return
		}
	}
}

//finish ends the loop by itself, it does nothing if the loop was already stopped
func (c *RunController) finish(stop chan struct{}) {
	c.loop.Lock()
	if !c.loop.active || c.loop.stop != stop {
		c.loop.Unlock()
		return
	}
	c.loop.active = false
	close(stop)
	c.running.Set(false)
	c.setRunningState(StateFinished)
	c.loop.Unlock()
	c.refreshView()
}

//wait sleeps for the delay, false means the loop was stopped
func (c *RunController) wait(stop chan struct{}) bool {
	delay := c.RunProperties().Delay
	if delay <= 0 {
		return !stopped(stop)
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return !stopped(stop)
	}
}

func stopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func (c *RunController) limitReached() bool {
	limit := c.options.MaxGenerations
	return limit > 0 && c.Status().Generation >= limit
}

//step does one generation and publishes the status, the views aren't refreshed
func (c *RunController) step() (changed bool) {
	start := time.Now()
	changed = c.figure.Advance(c.rule.Get())
	elapsed := time.Since(start)
	live := c.figure.LiveCells()

	c.state.Lock()
	c.state.Generation++
	c.state.LiveCells = live
	c.state.IterationTime = elapsed
	st := c.state.Status
	c.state.Unlock()

	c.status.Set(st)
	return
}

//mutated publishes the modification of the figure unless it failed
func (c *RunController) mutated(err error) error {
	if err != nil {
		return err
	}
	c.publish()
	return nil
}

//publish updates the status after the external modification of the figure and refreshes the views
func (c *RunController) publish() {
	live := c.figure.LiveCells()
	c.state.Lock()
	c.state.LiveCells = live
	st := c.state.Status
	c.state.Unlock()
	c.status.Set(st)
	c.refreshView()
}

func (c *RunController) setCycleProgress(p CycleProgress) {
	c.state.Lock()
	c.state.Cycle = p
	st := c.state.Status
	c.state.Unlock()
	c.status.Set(st)
}

//setRunningState switches the state to RunningState and publishes the status
//the caller refreshes the views after releasing its locks
func (c *RunController) setRunningState(to RunningState) {
	c.state.Lock()
	c.state.RunningMode = to
	st := c.state.Status
	c.state.Unlock()
	c.status.Set(st)
}

//refreshView calls Refresh event for all registered views
func (c *RunController) refreshView() {
	c.views.Lock()
	views := append([]Viewer(nil), c.views.list...)
	c.views.Unlock()
	for _, v := range views {
		v.Refresh()
	}
}
