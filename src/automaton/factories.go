package automaton

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/transform"

	"cellauto/src/observable"
)

//1x1 stamps used by ToggleCell
var (
	zeroGrid = MustGrid([][]int{{Dead}})
	oneGrid  = MustGrid([][]int{{Alive}})
)

//Zero returns the new 1x1 dead figure
func Zero() *Figure {
	return newFigure(zeroGrid)
}

//One returns the new 1x1 alive figure
func One() *Figure {
	return newFigure(oneGrid)
}

//Rectangle creates the width x height figure with all cells set to value
func Rectangle(width int, height int, value int) (*Figure, error) {
	g, err := FilledGrid(height, width, value)
	if err != nil {
		return nil, err
	}
	return newFigure(g), nil
}

//FromRandom creates the width x height figure filled at random, see Figure.Randomize for the ratio
func FromRandom(width int, height int, ratio float64) (*Figure, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidShape, width, height)
	}
	f := newFigure(zeroGrid)
	f.resize(Size{W: width, H: height}, ratio)
	return f, nil
}

//FromRandomAny creates the width x height figure with the filling ratio drawn at random
func FromRandomAny(width int, height int) (*Figure, error) {
	return FromRandom(width, height, AnyRatio)
}

//FromTemplate creates the smallest figure holding all template cells
func FromTemplate(tmpl Template) (*Figure, error) {
	if len(tmpl.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: template %q has no cells", ErrInvalidShape, tmpl.Name)
	}
	w, h := 0, 0
	for _, v := range tmpl.Coordinates {
		if len(v) != 2 || v[0] < 0 || v[1] < 0 {
			return nil, fmt.Errorf("%w: template %q has the bad coordinate %v", ErrOutOfRange, tmpl.Name, v)
		}
		if v[0] >= w {
			w = v[0] + 1
		}
		if v[1] >= h {
			h = v[1] + 1
		}
	}
	g := createGrid(h, w)
	for _, v := range tmpl.Coordinates {
		g.cells[v[1]][v[0]] = Alive
	}
	return newFigure(g), nil
}

//FillRandom creates the figure following the canvas size: the figure has
//size/cellSize cells (at least 1x1) and is filled at random again on every size change
//The size is watched by the background goroutine until the size Value is closed
func FillRandom(size *observable.Value[Size], cellSize int, ratio float64) *Figure {
	if cellSize <= 0 {
		cellSize = 1
	}
	sub := size.Subscribe()
	f := newFigure(zeroGrid)
	f.resize(cellsFor(size.Get(), cellSize), ratio)
	go func() {
		for s := range sub.C() {
			f.resize(cellsFor(s, cellSize), ratio)
		}
	}()
	return f
}

func cellsFor(canvas Size, cellSize int) Size {
	s := Size{W: canvas.W / cellSize, H: canvas.H / cellSize}
	if s.W < 1 {
		s.W = 1
	}
	if s.H < 1 {
		s.H = 1
	}
	return s
}

//FromImage samples the image into the figure
//the image is resized by scale first; the brightness (mean of r, g, b in [0, 1]) of every pixel
//gives the cell value: with aging == 0 the pixel is alive when brightness >= .5,
//otherwise the cell is int(aging*brightness)
func FromImage(img image.Image, aging int, scale float64) (*Figure, error) {
	if aging < 0 {
		return nil, fmt.Errorf("%w: aging %d must be >= 0", ErrInvalidRule, aging)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, fmt.Errorf("%w: scale %v must be a positive number", ErrInvalidShape, scale)
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image %d x %d scaled by %v", ErrInvalidShape, b.Dx(), b.Dy(), scale)
	}
	src := img
	if w != b.Dx() || h != b.Dy() {
		src = transform.Resize(img, w, h, transform.Linear)
	}
	sb := src.Bounds()
	g := createGrid(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			g.cells[i][j] = pixelCell(src.At(sb.Min.X+j, sb.Min.Y+i), aging)
		}
	}
	return newFigure(g), nil
}

func pixelCell(c color.Color, aging int) int {
	p := color.NRGBAModel.Convert(c).(color.NRGBA)
	brightness := (float64(p.R) + float64(p.G) + float64(p.B)) / 3 / 255
	if aging == 0 {
		if brightness < .5 {
			return Dead
		}
		return Alive
	}
	return int(float64(aging) * brightness)
}
