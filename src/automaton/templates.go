package automaton

//Predefined templates, the coordinates are [x,y]
var (
	Blinker = Template{"blinker", "period 2 oscillator", [][]int{{1, 0}, {1, 1}, {1, 2}}}
	Block   = Template{"block", "2x2 still life", [][]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}}
	Glider  = Template{"glider", "the smallest spaceship", [][]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}}
	Stables = Template{"stables", "the test sample with 3 stable patterns", [][]int{
		{1, 1}, {1, 2},
		{2, 1}, {2, 2},
		{3, 3},
		{4, 2},
		{4, 3},
		{5, 3},
	}}
)

//Templates returns all predefined templates
func Templates() []Template {
	return []Template{Blinker, Block, Glider, Stables}
}
