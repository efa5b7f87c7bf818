package view

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"cellauto/src/automaton"
)

//ConsoleOut prints the run progress of the non-interactive mode
type ConsoleOut struct {
	mu        sync.Mutex
	a         automaton.Automaton
	w         io.Writer
	startTime time.Time
	every     int
	last      int
}

func NewConsoleOut(every int) *ConsoleOut {
	if every <= 0 {
		every = 10
	}
	return &ConsoleOut{w: os.Stdout, every: every}
}

func (c *ConsoleOut) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.a.Status()
	switch st.RunningMode {
	case automaton.StateFinished:
		if c.last == -1 {
			return
		}
		c.last = -1
		totalTime := time.Since(c.startTime).Round(time.Millisecond)
		resultData := map[string]interface{}{
			"Last generation": st.Generation,
			"Total time":      totalTime,
			"Live cells":      st.LiveCells,
		}
		if st.Cycle.HasCycleLength {
			resultData["Cycles done"] = st.Cycle.CurrentCycle
			resultData["Longest cycle"] = st.Cycle.CycleLength
		}
		fmt.Fprintln(c.w, "\nFinished:")
		c.printHashData(resultData)
	case automaton.StateRunning:
		if st.Generation%c.every == 0 && st.Generation != c.last {
			c.last = st.Generation
			fmt.Fprintf(c.w, "  Generations done: %v, live cells: %v\n", st.Generation, st.LiveCells)
		}
	}
}

func (c *ConsoleOut) Register(a automaton.Automaton) {
	c.a = a
	o := c.a.Options()
	fmt.Fprintln(c.w, "Running configuration:")
	fmt.Fprintf(c.w, "  Dimension: %v x %v\n", o.Width, o.Height)
	fmt.Fprintf(c.w, "  Delay: %v\n", c.a.RunProperties().Delay)
	fmt.Fprintf(c.w, "  Rule: %v\n", c.a.Rule())
	if o.MaxGenerations > 0 {
		fmt.Fprintf(c.w, "  Max generations: %v\n", o.MaxGenerations)
	}
	c.printHashData(o.Advanced)
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	fmt.Fprintln(c.w, "\nSimulation started...")
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		fmt.Fprintf(c.w, "  %s: %v\n", propName, d[propName])
	}
}
