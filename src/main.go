package main

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/integrii/flaggy"

	"cellauto/src/automaton"
	"cellauto/src/view"
)

var (
	engines = map[string]int{
		"base":          1,
		"multithreaded": automaton.DefWorkers,
	}

	behaviours = []string{"none", "random", "same"}
)

type EnvOptions struct {
	interactive bool
	randomData  bool
	engine      string
	rule        string
	aging       int
	template    string
	image       string
	scale       float64
	behaviour   string
	cycles      int
	verbose     bool
}

func main() {
	eo, o := initOptions()

	c := automaton.NewRunController(o)
	defer c.Close()

	for _, tmpl := range automaton.Templates() {
		c.AddTemplate(tmpl)
	}

	switch {
	case eo.image != "":
		f, err := loadImage(eo.image, c.Rule().Aging(), eo.scale)
		if err != nil {
			log.Fatalf("can't load the image %s: %v", eo.image, err)
		}
		if err := c.SetFigure(f); err != nil {
			log.Fatalf("can't set the image figure: %v", err)
		}
	case eo.randomData:
		c.Randomize(o.FillingRatio)
	default:
		if err := c.StampTemplate(eo.template); err != nil {
			log.Fatalf("can't stamp the template: %v", err)
		}
	}

	if err := setBehaviour(c, eo); err != nil {
		log.Fatalf("can't set the behaviour: %v", err)
	}

	if eo.interactive {
		v := view.NewViewTerminal(o.FillingRatio)
		c.RegisterViewer(v)
		v.Start()
		return
	}

	v := view.NewConsoleOut(10)
	c.RegisterViewer(v)
	v.Start()
	c.Run()
	c.Wait()
}

func setBehaviour(c *automaton.RunController, eo *EnvOptions) error {
	if eo.behaviour == "none" {
		return nil
	}
	cycles := automaton.Infinite()
	if eo.cycles > 0 {
		var err error
		if cycles, err = automaton.Finite(eo.cycles); err != nil {
			return err
		}
	}
	p := c.RunProperties()
	switch eo.behaviour {
	case "random":
		o := c.Options()
		b, err := automaton.RandomFigure(cycles, o.Width, o.Height, o.FillingRatio)
		if err != nil {
			return err
		}
		p.Behaviour = b
	case "same":
		p.Behaviour = automaton.SameFigure(cycles, c.Figure())
	}
	c.SetRunProperties(p)
	return nil
}

func loadImage(path string, aging int, scale float64) (*automaton.Figure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return automaton.FromImage(img, aging, scale)
}

func initOptions() (eo *EnvOptions, o *automaton.Options) {

	opts := automaton.DefaultOptions
	o = &opts
	engineNames := make([]string, 0, len(engines))
	for k := range engines {
		engineNames = append(engineNames, k)
	}
	sort.Strings(engineNames)
	templateNames := make([]string, 0)
	for _, t := range automaton.Templates() {
		templateNames = append(templateNames, t.Name)
	}
	eo = &EnvOptions{
		engine:    "base",
		rule:      automaton.DefaultRule.String(),
		aging:     -1,
		template:  automaton.Stables.Name,
		scale:     1,
		behaviour: "none",
	}
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.Int(&o.Width, "x", "width", "Width of a simulation field")
	flaggy.Int(&o.Height, "y", "height", "Height of a simulation field")
	flaggy.Duration(&o.Delay, "d", "delay", "Delay between the generations in format the number with 'ms' suffix, for example 150ms")
	flaggy.Int(&o.MaxGenerations, "m", "maxGenerations", "Limit the simulation to maxGenerations, 0 is unlimited")
	flaggy.String(&eo.rule, "u", "rule", "Rule in B/S/aging notation, for example B3S23/0")
	flaggy.Int(&eo.aging, "a", "aging", "Override the aging of the rule")
	flaggy.String(&eo.engine, "e", "engine", "Engine to use ["+strings.Join(engineNames, "|")+"]")
	flaggy.Bool(&eo.interactive, "n", "interactive", "Start interactive mode")
	flaggy.Bool(&eo.randomData, "r", "random", "Settle with random data")
	flaggy.String(&eo.template, "t", "template", "Template to stamp ["+strings.Join(templateNames, "|")+"]")
	flaggy.String(&eo.image, "g", "image", "Settle with the image file (png, jpeg, gif)")
	flaggy.Float64(&eo.scale, "k", "scale", "Scale factor of the image")
	flaggy.String(&eo.behaviour, "b", "behaviour", "Cycled behaviour ["+strings.Join(behaviours, "|")+"]")
	flaggy.Int(&eo.cycles, "c", "cycles", "Number of cycles of the cycled behaviour, 0 is infinite")
	flaggy.Int64(&o.Seed, "s", "seed", "Seed of the random data, 0 seeds from the clock")
	flaggy.Float64(&o.FillingRatio, "f", "ratio", "Alive cells ratio of the random data, -1 draws it")
	flaggy.Bool(&eo.verbose, "v", "verbose", "Log the run events to stderr")

	flaggy.Parse()

	workers, ok := engines[eo.engine]
	if !ok {
		flaggy.ShowHelpAndExit("unknown engine")
	}
	o.Workers = workers

	rule, err := automaton.ParseRule(eo.rule)
	if err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}
	if eo.aging >= 0 {
		if rule, err = rule.WithAging(eo.aging); err != nil {
			flaggy.ShowHelpAndExit(err.Error())
		}
	}
	o.Rule = rule

	if !contains(behaviours, eo.behaviour) {
		flaggy.ShowHelpAndExit("unknown behaviour")
	}
	if eo.cycles < 0 {
		flaggy.ShowHelpAndExit("negative cycles")
	}

	if eo.verbose {
		o.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if !eo.interactive {
		flaggy.ShowHelp("")
	}

	return
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
