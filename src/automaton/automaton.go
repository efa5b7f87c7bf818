package automaton

import (
	"log"
	"time"

	"cellauto/src/observable"
)

//Automaton is the set of entry points consumed by viewers and input handlers
type Automaton interface {
	Status() Status
	StatusUpdates() *observable.Subscription[Status]
	Options() Options
	Grid() *Grid
	Figure() *Figure
	Rule() Rule
	IsRunning() bool
	RunProperties() RunProperties
	AddTemplate(tmpl Template)
	Templates() []string
	StampTemplate(name string) error
	Stamp(x int, y int, f *Figure) error
	StampCentered(f *Figure) error
	ToggleCell(x int, y int) error
	Randomize(ratio float64)
	Clear()
	SetFigure(f *Figure) error
	SetSize(width int, height int) error
	SetRule(r Rule)
	SetRunProperties(p RunProperties)
	NextGeneration() bool
	RegisterViewer(v Viewer)
	Run()
	Stop()
	Close()
}

//Options represents the automaton's configurable options
type Options struct {
	Width          int
	Height         int
	Delay          time.Duration
	MaxGenerations int     //0 means unlimited
	Workers        int     //1 uses BaseEngine, more uses MultithreadedEngine
	Seed           int64   //0 seeds from the clock
	FillingRatio   float64 //used by random fills of the controller, AnyRatio draws it
	Rule           Rule
	Logger         *log.Logger            //nil discards the log
	Advanced       map[string]interface{} //advanced options (engine specific)
}

//Status represents the status of the automaton at concrete moment
type Status struct {
	Generation    int
	RunningMode   RunningState
	LiveCells     int
	IterationTime time.Duration
	Cycle         CycleProgress //filled by finite cycled runs only
}

//Viewer is the interface to any Viewer - the object who can display automaton data or control the engine
type Viewer interface {
	Refresh()
	Register(a Automaton)
	Start()
}

//Template represent the seeding template which can used to stamp predefined data
type Template struct {
	Name        string  //template name
	Descr       string  //template descr
	Coordinates [][]int //array of [x,y] coordinates
}

//The automaton running status at the concrete moment
type RunningState int

//default options
const (
	DefDelay          = time.Millisecond * 100
	DefMaxGenerations = 0
	DefWidth          = 40
	DefHeight         = 15
	DefFillingRatio   = .5
)

const (
	StateIdle     RunningState = iota //waiting for commands
	StateStep                         //calculating the generation
	StateRunning                      //the run loop is active
	StateFinished                     //the run loop ended by itself, the automaton is idle
)

var DefaultOptions = Options{
	Width:          DefWidth,
	Height:         DefHeight,
	Delay:          DefDelay,
	MaxGenerations: DefMaxGenerations,
	Workers:        1,
	FillingRatio:   DefFillingRatio,
	Rule:           DefaultRule,
}

func (s RunningState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStep:
		return "step"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}
