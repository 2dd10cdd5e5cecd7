package aggregators

import "monportal/core"

const (
	AllInstrumentsName = "All Instruments"
	seriesLineWidth    = 0
	seriesMarkerRadius = 3
)

func newSeries(name string, ntimes int) *core.Series {
	return &core.Series{
		Name:      name,
		LineWidth: seriesLineWidth,
		Marker:    core.Marker{Radius: seriesMarkerRadius},
		Data:      make([]core.DataPoint, 0, ntimes),
	}
}

func seriesByInstrument(instruments []core.Instrument, a *axis, g *grid) []*core.Series {
	series := make([]*core.Series, 0, len(instruments))
	for col, inst := range instruments {
		s := newSeries(inst.Name, a.len())
		for row := 0; row < a.len(); row++ {
			s.Data = append(s.Data, core.DataPoint{a.millis[row], g.at(row, col)})
		}
		series = append(series, s)
	}
	return series
}

func seriesSummed(a *axis, g *grid) []*core.Series {
	s := newSeries(AllInstrumentsName, a.len())
	for row := 0; row < a.len(); row++ {
		s.Data = append(s.Data, core.DataPoint{a.millis[row], g.rowSum(row)})
	}
	return []*core.Series{s}
}
