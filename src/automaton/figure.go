package automaton

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"cellauto/src/observable"
)

//AnyRatio asks the random fill to draw the filling ratio uniformly from [0, 1)
const AnyRatio = -1.0

//Size describes the dimensions of a figure
type Size struct {
	W int
	H int
}

//Figure wraps the observable Grid and is the unit of composition
//All modifications replace the whole grid, readers always see a complete snapshot
//The writers are serialized by the figure's lock: the advance and the
//stamp/toggle/randomize/clear calls never interleave
type Figure struct {
	mu     sync.Mutex
	grid   *observable.Value[*Grid]
	engine Engine
	rng    *rand.Rand
}

//NewFigure creates the Figure from the copy of cells
func NewFigure(cells [][]int) (*Figure, error) {
	g, err := NewGrid(cells)
	if err != nil {
		return nil, err
	}
	return newFigure(g), nil
}

//MustFigure is like NewFigure but panics on the invalid shape
func MustFigure(cells [][]int) *Figure {
	return newFigure(MustGrid(cells))
}

func newFigure(g *Grid) *Figure {
	return &Figure{
		grid:   observable.New(g),
		engine: BaseEngine,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

//Grid returns the current grid snapshot
func (f *Figure) Grid() *Grid {
	return f.grid.Get()
}

//Subscribe returns the subscription delivering every new grid
func (f *Figure) Subscribe() *observable.Subscription[*Grid] {
	return f.grid.Subscribe()
}

//Width returns the number of columns
func (f *Figure) Width() int {
	return f.Grid().Cols()
}

//Height returns the number of rows
func (f *Figure) Height() int {
	return f.Grid().Rows()
}

//Size returns the figure dimensions
func (f *Figure) Size() Size {
	g := f.Grid()
	return Size{W: g.Cols(), H: g.Rows()}
}

//LiveCells calculates the count of alive cells
func (f *Figure) LiveCells() int {
	return f.Grid().LiveCells()
}

//Seed reseeds the figure's random source, random fills become reproducible
func (f *Figure) Seed(seed uint64) {
	f.mu.Lock()
	f.rng = rand.New(rand.NewPCG(seed, 0))
	f.mu.Unlock()
}

//SetEngine changes the engine used by Advance, nil restores BaseEngine
func (f *Figure) SetEngine(e Engine) {
	if e == nil {
		e = BaseEngine
	}
	f.mu.Lock()
	f.engine = e
	f.mu.Unlock()
}

//Advance calculates the next generation by the rule and replaces the grid
//changed reports whether the new grid differs from the previous one
func (f *Figure) Advance(rule Rule) (changed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, changed := f.engine(f.grid.Get(), rule)
	f.grid.Set(next)
	return changed
}

//MoreOrEqualThan reports whether both width and height are >= other's
func (f *Figure) MoreOrEqualThan(other *Figure) bool {
	return moreOrEqual(f.Grid(), other.Grid())
}

func moreOrEqual(g *Grid, o *Grid) bool {
	return g.Cols() >= o.Cols() && g.Rows() >= o.Rows()
}

//Stamp copies all cells of other to the figure at the offset x, y
//the cells crossing the edge wrap around to the opposite side
func (f *Figure) Stamp(x int, y int, other *Figure) error {
	src := other.Grid()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stamp(x, y, src)
}

//stamp must be called with the lock held
func (f *Figure) stamp(x int, y int, src *Grid) error {
	cur := f.grid.Get()
	if !moreOrEqual(cur, src) {
		return fmt.Errorf("%w: %d x %d doesn't fit into %d x %d", ErrSizeMismatch, src.Cols(), src.Rows(), cur.Cols(), cur.Rows())
	}
	if err := checkRange(cur, x, y); err != nil {
		return err
	}
	next := MustGrid(cur.cells)
	src.walk(func(i int, j int, cell int) {
		next.cells[(i+y)%cur.rows][(j+x)%cur.cols] = cell
	})
	f.grid.Set(next)
	return nil
}

func checkRange(g *Grid, x int, y int) error {
	if x < 0 || x >= g.Cols() || y < 0 || y >= g.Rows() {
		return fmt.Errorf("%w: (%d, %d) outside %d x %d", ErrOutOfRange, x, y, g.Cols(), g.Rows())
	}
	return nil
}

//StampCentered stamps other to the center of the figure
func (f *Figure) StampCentered(other *Figure) error {
	src := other.Grid()
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.grid.Get()
	x := cur.Cols()/2 - src.Cols()/2
	y := cur.Rows()/2 - src.Rows()/2
	return f.stamp(x, y, src)
}

//ToggleCell makes the dead cell alive, any other cell (alive or aging) becomes dead
func (f *Figure) ToggleCell(x int, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.grid.Get()
	if err := checkRange(cur, x, y); err != nil {
		return err
	}
	if cur.cells[y][x] == Dead {
		return f.stamp(x, y, oneGrid)
	}
	return f.stamp(x, y, zeroGrid)
}

//Randomize replaces the grid with the random one of the same size
//round(width*height*ratio) cells are alive, AnyRatio (or any negative ratio) draws the ratio at random
func (f *Figure) Randomize(ratio float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.grid.Get()
	f.grid.Set(randomGrid(f.rng, cur.Rows(), cur.Cols(), ratio))
}

//resize replaces the grid with the random one of the new size
func (f *Figure) resize(size Size, ratio float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grid.Set(randomGrid(f.rng, size.H, size.W, ratio))
}

//Clear kills all cells
func (f *Figure) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.grid.Get()
	f.grid.Set(createGrid(cur.Rows(), cur.Cols()))
}

//Replace validates the cells and replaces the grid, the size may change
func (f *Figure) Replace(cells [][]int) error {
	g, err := NewGrid(cells)
	if err != nil {
		return err
	}
	f.SetGrid(g)
	return nil
}

//ReplaceFigure replaces the grid with the current grid of other
func (f *Figure) ReplaceFigure(other *Figure) {
	f.SetGrid(other.Grid())
}

//SetGrid replaces the grid
func (f *Figure) SetGrid(g *Grid) {
	f.mu.Lock()
	f.grid.Set(g)
	f.mu.Unlock()
}

//Close closes the grid subscriptions
func (f *Figure) Close() {
	f.grid.Close()
}

//randomGrid creates the grid with exactly round(rows*cols*ratio) alive cells shuffled uniformly
func randomGrid(rng *rand.Rand, rows int, cols int, ratio float64) *Grid {
	if ratio < 0 {
		ratio = rng.Float64()
	}
	total := rows * cols
	units := 0
	if !math.IsNaN(ratio) {
		units = int(math.Round(float64(total) * math.Min(ratio, 1)))
	}
	b := make([]int, total)
	for i := 0; i < units; i++ {
		b[i] = Alive
	}
	rng.Shuffle(total, func(i, j int) {
		b[i], b[j] = b[j], b[i]
	})
	g := createGrid(rows, cols)
	for i := range g.cells {
		copy(g.cells[i], b[i*cols:(i+1)*cols])
	}
	return g
}
