package aggregators

// grid is a dense [time][instrument] count table stored row-major in a
// single slice. Every cell starts at zero, so a bucket that an instrument
// never reported stays zero.
type grid struct {
	ntimes       int
	ninstruments int
	cells        []int64
}

func newGrid(ntimes, ninstruments int) *grid {
	return &grid{
		ntimes:       ntimes,
		ninstruments: ninstruments,
		cells:        make([]int64, ntimes*ninstruments),
	}
}

func (g *grid) index(t, i int) int {
	return t*g.ninstruments + i
}

func (g *grid) at(t, i int) int64 {
	return g.cells[g.index(t, i)]
}

func (g *grid) set(t, i int, v int64) {
	g.cells[g.index(t, i)] = v
}

func (g *grid) row(t int) []int64 {
	return g.cells[t*g.ninstruments : (t+1)*g.ninstruments]
}

func (g *grid) rowSum(t int) int64 {
	var sum int64
	for _, v := range g.row(t) {
		sum += v
	}
	return sum
}

// fillGrid looks up every axis label in every instrument's sparse counts.
func fillGrid(labels []string, counts []map[string]int64) *grid {
	g := newGrid(len(labels), len(counts))
	for t, label := range labels {
		for i, m := range counts {
			if v, ok := m[label]; ok {
				g.set(t, i, v)
			}
		}
	}
	return g
}
