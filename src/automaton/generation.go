package automaton

import (
	"golang.org/x/sync/errgroup"
)

/*
	Generation engines
	an engine reads the whole current grid and writes the next generation to the new one,
	the current grid is never written so there is no read-your-own-write hazard
*/

//Engine calculates the next generation of cur
//changed reports whether any cell differs from cur
type Engine func(cur *Grid, rule Rule) (next *Grid, changed bool)

const (
	DefWorkers          = 10 //default workers
	DefMinRowsPerWorker = 3  //minimum rows for one worker
)

//BaseEngine calculates the whole grid in the calling goroutine
func BaseEngine(cur *Grid, rule Rule) (*Grid, bool) {
	next := createGrid(cur.rows, cur.cols)
	changed := calcRows(cur, next, rule, 0, cur.rows)
	return next, changed
}

//MultithreadedEngine returns the engine which splits the grid into row bands,
//each band is computed by its own goroutine
func MultithreadedEngine(workers int) Engine {
	if workers <= 0 {
		workers = DefWorkers
	}
	return func(cur *Grid, rule Rule) (*Grid, bool) {
		bands := splitRows(cur.rows, workers)
		if len(bands) < 2 {
			return BaseEngine(cur, rule)
		}
		next := createGrid(cur.rows, cur.cols)
		changed := make([]bool, len(bands))
		var eg errgroup.Group
		for i, b := range bands {
			i, b := i, b
			eg.Go(func() error {
				changed[i] = calcRows(cur, next, rule, b.y1, b.y2)
				return nil
			})
		}
		//workers never fail
		_ = eg.Wait()
		for _, c := range changed {
			if c {
				return next, true
			}
		}
		return next, false
	}
}

//rowBand is the half-open range of rows [y1, y2) computed by one worker
type rowBand struct {
	y1 int
	y2 int
}

//splitRows divides rows between the workers, every band has at least DefMinRowsPerWorker rows
func splitRows(rows int, workers int) []rowBand {
	linesPerWorker := rows / workers
	if linesPerWorker < DefMinRowsPerWorker {
		linesPerWorker = DefMinRowsPerWorker
	} else if linesPerWorker*workers < rows {
		linesPerWorker++
	}
	bands := make([]rowBand, 0, workers)
	for y1 := 0; y1 < rows; y1 += linesPerWorker {
		y2 := y1 + linesPerWorker
		if y2 > rows {
			y2 = rows
		}
		bands = append(bands, rowBand{y1, y2})
	}
	return bands
}

//calcRows writes the next states of rows [y1, y2) of cur into next
func calcRows(cur *Grid, next *Grid, rule Rule, y1 int, y2 int) (changed bool) {
	for i := y1; i < y2; i++ {
		for j := 0; j < cur.cols; j++ {
			c := cur.cells[i][j]
			n := rule.Next(c, liveNeighbours(cur, i, j))
			next.cells[i][j] = n
			changed = changed || n != c
		}
	}
	return
}

//liveNeighbours counts the alive cells among 8 toroidally wrapped neighbours
func liveNeighbours(g *Grid, row int, col int) int {
	n := 0
	for di := -1; di < 2; di++ {
		for dj := -1; dj < 2; dj++ {
			//skip my position
			if di == 0 && dj == 0 {
				continue
			}
			if g.Get(row+di, col+dj) == Alive {
				n++
			}
		}
	}
	return n
}
