package automaton

import (
	"fmt"
	"sync"
	"time"
)

//RunProperties controls the run loop
//Delay is read every iteration, Behaviour is captured when the run starts
type RunProperties struct {
	Delay     time.Duration
	Behaviour Behaviour
}

//Behaviour is either Simple or *Cycled
type Behaviour interface {
	behaviour()
}

//Simple runs until Stop is called
type Simple struct{}

func (Simple) behaviour() {}

//Cycled runs until the grid stabilizes (two consecutive generations are equal),
//then stops or swaps in the next figure, Cycles limits the number of such cycles
type Cycled struct {
	Cycles          Cycles
	NextCycleFigure func() *Figure //nil means the 1x1 dead figure
	OnCycleStart    func()         //optional, called before NextCycleFigure
}

func (*Cycled) behaviour() {}

//NextFigure calls OnCycleStart and returns the figure for the next cycle
func (c *Cycled) NextFigure() *Figure {
	if c.OnCycleStart != nil {
		c.OnCycleStart()
	}
	if c.NextCycleFigure == nil {
		return Zero()
	}
	if f := c.NextCycleFigure(); f != nil {
		return f
	}
	return Zero()
}

//RandomFigure returns the behaviour starting every cycle with the new random width x height figure
func RandomFigure(cycles Cycles, width int, height int, ratio float64) (*Cycled, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidShape, width, height)
	}
	return &Cycled{
		Cycles: cycles,
		NextCycleFigure: func() *Figure {
			f, _ := FromRandom(width, height, ratio)
			return f
		},
	}, nil
}

//SameFigure returns the behaviour starting every cycle with the snapshot of figure taken now
func SameFigure(cycles Cycles, figure *Figure) *Cycled {
	g := figure.Grid()
	return &Cycled{
		Cycles: cycles,
		NextCycleFigure: func() *Figure {
			return newFigure(g)
		},
	}
}

//Cycles is the number of cycles, either infinite or finite
type Cycles struct {
	count int //0 is infinite
	state *CycleState
}

//Infinite cycles never run out, only Stop ends the run
func Infinite() Cycles {
	return Cycles{}
}

//Finite creates count cycles, count must be positive
func Finite(count int) (Cycles, error) {
	if count <= 0 {
		return Cycles{}, fmt.Errorf("%w: %d, must be a positive integer", ErrInvalidCycles, count)
	}
	return Cycles{count: count, state: &CycleState{}}, nil
}

//MustFinite is like Finite but panics on the error
func MustFinite(count int) Cycles {
	c, err := Finite(count)
	if err != nil {
		panic(err)
	}
	return c
}

//IsInfinite reports whether the cycles never run out
func (c Cycles) IsInfinite() bool {
	return c.count == 0
}

//Count returns the number of cycles, 0 for infinite
func (c Cycles) Count() int {
	return c.count
}

//State returns the progress counters, nil for infinite cycles
func (c Cycles) State() *CycleState {
	return c.state
}

func (c Cycles) String() string {
	if c.IsInfinite() {
		return "infinite"
	}
	return fmt.Sprintf("%d", c.count)
}

//CycleState tracks the progress of finite cycles
type CycleState struct {
	mu           sync.Mutex
	currentStep  int
	currentCycle int
	cycleLength  int
	hasLength    bool
}

//CycleProgress is the snapshot of CycleState
type CycleProgress struct {
	CurrentStep    int
	CurrentCycle   int
	CycleLength    int  //the max steps before stabilization seen so far
	HasCycleLength bool //false until the first cycle is completed
}

//Increase counts the step, on the next cycle the step counter is saved to the cycle length and reset
func (s *CycleState) Increase(isNextCycle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isNextCycle {
		s.currentStep++
		return
	}
	if !s.hasLength || s.currentStep > s.cycleLength {
		s.cycleLength = s.currentStep
	}
	s.hasLength = true
	s.currentStep = 0
	s.currentCycle++
}

//Reset zeroes all counters
func (s *CycleState) Reset() {
	s.mu.Lock()
	s.currentStep, s.currentCycle, s.cycleLength, s.hasLength = 0, 0, 0, false
	s.mu.Unlock()
}

//Progress returns the snapshot of the counters
func (s *CycleState) Progress() CycleProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CycleProgress{
		CurrentStep:    s.currentStep,
		CurrentCycle:   s.currentCycle,
		CycleLength:    s.cycleLength,
		HasCycleLength: s.hasLength,
	}
}
