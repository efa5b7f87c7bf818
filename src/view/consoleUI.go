package view

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"

	"cellauto/src/automaton"
)

//command is the key bound to the automaton action
type command struct {
	key    interface{}
	label  string
	descr  string
	pane   string //empty binds the key globally
	action func(v *gocui.View) error
}

//pane is the framed view placed by the layout
type pane struct {
	name   string
	title  string
	render func(v *gocui.View)
}

//ConsoleUI is the interactive terminal viewer and controller input
type ConsoleUI struct {
	a        automaton.Automaton
	g        *gocui.Gui
	commands []command
	ratio    float64
	next     int //index of the template stamped next

	live  string
	aging string
	dead  string
}

//the terminal must fit the minimal field and the help line
const (
	sideWidth = 32
	minHeight = 20
	helpLines = 2
)

var modeNames = map[automaton.RunningState]string{
	automaton.StateIdle:     aurora.Blue("waiting").String(),
	automaton.StateStep:     "do the step",
	automaton.StateRunning:  aurora.Cyan("running").String(),
	automaton.StateFinished: aurora.Red("finished").String(),
}

//NewViewTerminal creates the terminal viewer, ratio is used by the randomize key
func NewViewTerminal(ratio float64) *ConsoleUI {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln(err)
	}
	g.Mouse = true
	t := &ConsoleUI{
		g:     g,
		ratio: ratio,
		live:  aurora.Green("█").BgBrightGreen().String(),
		aging: aurora.Yellow("▓").String(),
		dead:  "░",
	}
	t.commands = []command{
		{gocui.KeyCtrlC, "^C", "Exit", "", func(*gocui.View) error { return gocui.ErrQuit }},
		{'n', "N", "Next generation", "", t.do(func() { t.a.NextGeneration() })},
		{'r', "R", "Run", "", t.do(func() { t.a.Run() })},
		{'s', "S", "Stop", "", t.do(func() { t.a.Stop() })},
		{'c', "C", "Clear", "", t.do(func() { t.a.Clear() })},
		{'w', "W", "Randomize", "", t.do(func() { t.a.Randomize(t.ratio) })},
		{'t', "T", "Stamp the next template", "", t.do(t.stampNextTemplate)},
		{gocui.MouseLeft, "MOUSE", "Toggle the cell", "field", t.toggle},
	}
	g.SetManagerFunc(t.layout)
	for _, c := range t.commands {
		action := c.action
		if err := g.SetKeybinding(c.pane, c.key, gocui.ModNone, func(_ *gocui.Gui, v *gocui.View) error {
			return action(v)
		}); err != nil {
			log.Panicln(err)
		}
	}
	return t
}

func (t *ConsoleUI) Register(a automaton.Automaton) {
	t.a = a
}

func (t *ConsoleUI) Start() {
	defer t.g.Close()
	if err := t.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

//Refresh redraws all panes, it is safe to call from any goroutine
func (t *ConsoleUI) Refresh() {
	t.g.Update(func(g *gocui.Gui) error {
		for _, p := range t.panes() {
			if v, err := g.View(p.name); err == nil {
				p.render(v)
			}
		}
		return nil
	})
}

func (t *ConsoleUI) do(f func()) func(*gocui.View) error {
	return func(*gocui.View) error {
		f()
		return nil
	}
}

//stampNextTemplate stamps the registered templates in turn, one per key press
func (t *ConsoleUI) stampNextTemplate() {
	names := t.a.Templates()
	if len(names) == 0 {
		return
	}
	name := names[t.next%len(names)]
	t.next = (t.next + 1) % len(names)
	//the template larger than the field is ignored
	_ = t.a.StampTemplate(name)
}

func (t *ConsoleUI) toggle(v *gocui.View) error {
	x, y := v.Cursor()
	//clicks outside the figure are ignored
	_ = t.a.ToggleCell(x, y)
	return nil
}

func (t *ConsoleUI) panes() []pane {
	return []pane{
		{"configuration", "Configuration", t.renderConfiguration},
		{"status", "Status", t.renderStatus},
		{"field", "Field", t.renderField},
	}
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if maxY < minHeight {
		for _, p := range t.panes() {
			_ = g.DeleteView(p.name)
		}
		_ = g.DeleteView("help")
		return t.header(g, maxX, maxY, "Terminal height too small")
	}
	if err := t.header(g, maxX, 3, "Cellular automaton"); err != nil {
		return err
	}

	bottom := maxY - helpLines - 3
	middle := 3 + (bottom-3)/2
	frames := map[string][4]int{
		"configuration": {0, 3, sideWidth, middle},
		"status":        {0, middle + 1, sideWidth, bottom},
		"field":         {sideWidth + 1, 3, maxX - 1, bottom},
	}
	for _, p := range t.panes() {
		r := frames[p.name]
		v, err := g.SetView(p.name, r[0], r[1], r[2], r[3])
		if err != nil && err != gocui.ErrUnknownView {
			return err
		}
		if err == gocui.ErrUnknownView {
			v.Title = p.title
			v.Frame = true
		}
		p.render(v)
	}

	v, err := g.SetView("help", -1, bottom, maxX, bottom+helpLines)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	if err == gocui.ErrUnknownView {
		v.Frame = false
		fmt.Fprintln(v, t.help())
	}
	return nil
}

func (t *ConsoleUI) header(g *gocui.Gui, maxX int, height int, text string) error {
	v, err := g.SetView("header", -1, -1, maxX+1, height)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	if err == gocui.ErrUnknownView {
		v.Frame = false
		v.BgColor = gocui.ColorCyan
		v.FgColor = gocui.ColorBlack
	}
	v.Clear()
	pad := (maxX - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprint(v, strings.Repeat("\n", height/2)+strings.Repeat(" ", pad)+text)
	return nil
}

func (t *ConsoleUI) help() string {
	items := make([]string, 0, len(t.commands))
	for _, c := range t.commands {
		items = append(items, aurora.Green(c.label).String()+": "+c.descr)
	}
	return "KEYBINDINGS: " + strings.Join(items, ", ")
}

func (t *ConsoleUI) renderField(v *gocui.View) {
	v.Clear()
	w, h := v.Size()
	fmt.Fprint(v, renderCells(t.a.Grid(), w, h, t.live, t.aging, t.dead))
}

func (t *ConsoleUI) renderStatus(v *gocui.View) {
	s := t.a.Status()
	v.Clear()
	fmt.Fprintln(v, prop("Generation", s.Generation))
	fmt.Fprintln(v, prop("Live Cells", s.LiveCells))
	fmt.Fprintln(v, prop("Evaluation time", s.IterationTime.Round(time.Microsecond)))
	fmt.Fprintln(v, prop("Mode", modeNames[s.RunningMode]))
	fmt.Fprintln(v, prop("Running", t.a.IsRunning()))
	if s.Cycle.CurrentCycle > 0 || s.Cycle.CurrentStep > 0 {
		fmt.Fprintln(v, prop("Cycle", fmt.Sprintf("%v step %v", s.Cycle.CurrentCycle, s.Cycle.CurrentStep)))
	}
}

func (t *ConsoleUI) renderConfiguration(v *gocui.View) {
	size := t.a.Figure().Size()
	p := t.a.RunProperties()
	v.Clear()
	fmt.Fprintln(v, prop("Dimension", fmt.Sprintf("%v x %v", size.W, size.H)))
	fmt.Fprintln(v, prop("Rule", t.a.Rule()))
	fmt.Fprintln(v, prop("Delay", p.Delay))
	fmt.Fprintln(v, prop("Behaviour", behaviourDescr(p.Behaviour)))
}

func prop(name string, value interface{}) string {
	return fmt.Sprintf(" %s: %v", aurora.Green(name), value)
}

func behaviourDescr(b automaton.Behaviour) string {
	if c, ok := b.(*automaton.Cycled); ok {
		return "cycled, " + c.Cycles.String() + " cycles"
	}
	return "simple"
}

//renderCells draws the grid cropped to maxW x maxH chars
//the last visible line warns when the grid doesn't fit
func renderCells(grid *automaton.Grid, maxW int, maxH int, live string, aging string, dead string) string {
	crop := grid.Cols() > maxW || grid.Rows() > maxH
	var b strings.Builder
	for i := 0; i < grid.Rows() && i < maxH; i++ {
		if i != 0 {
			b.WriteByte('\n')
		}
		if crop && i == maxH-1 {
			b.WriteString(aurora.Red("The field size is larger than the viewing area").BgBlack().String())
			break
		}
		for j := 0; j < grid.Cols() && j < maxW; j++ {
			switch c := grid.Get(i, j); {
			case c == automaton.Alive:
				b.WriteString(live)
			case c > automaton.Alive:
				b.WriteString(aging)
			default:
				b.WriteString(dead)
			}
		}
	}
	return b.String()
}
