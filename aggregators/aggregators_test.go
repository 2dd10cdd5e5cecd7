package aggregators

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monportal/core"
	"monportal/util"
)

var errStorageDown = errors.New("storage unavailable")

type fakeSource struct {
	instruments []core.Instrument
	counts      map[int64]map[string]int64
	failOn      int64
	listErr     error
	queries     int
}

func (f *fakeSource) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instruments, nil
}

func (f *fakeSource) CountByBucket(ctx context.Context, instrumentID int64, res core.Resolution, start time.Time) (map[string]int64, error) {
	f.queries++
	if f.failOn != 0 && f.failOn == instrumentID {
		return nil, errStorageDown
	}
	m := map[string]int64{}
	for k, v := range f.counts[instrumentID] {
		m[k] = v
	}
	return m, nil
}

func scenarioSource() *fakeSource {
	return &fakeSource{
		instruments: []core.Instrument{
			{ID: 1, Name: "A"},
			{ID: 2, Name: "B"},
		},
		counts: map[int64]map[string]int64{
			1: {"2024-01-01T00:00": 3, "2024-01-01T00:02": 1},
			2: {"2024-01-01T00:01": 5},
		},
	}
}

func counts(s *core.Series) []int64 {
	out := []int64{}
	for _, pt := range s.Data {
		out = append(out, pt.Count())
	}
	return out
}

func timestamps(s *core.Series) []int64 {
	out := []int64{}
	for _, pt := range s.Data {
		out = append(out, pt.Timestamp())
	}
	return out
}

func TestAggregateByInstrument(t *testing.T) {
	start := util.MustParseTime("2023-12-31T22:00:00Z")
	series, err := Aggregate(context.Background(), scenarioSource(), core.Minute, start, true)
	require.NoError(t, err)
	require.Len(t, series, 2)

	base := util.MustParseTime("2024-01-01T00:00:00Z").UnixNano() / int64(time.Millisecond)
	minute := int64(time.Minute / time.Millisecond)
	wantTimes := []int64{base, base + minute, base + 2*minute}

	require.Equal(t, "A", series[0].Name)
	require.Equal(t, []int64{3, 0, 1}, counts(series[0]))
	require.Equal(t, wantTimes, timestamps(series[0]))

	require.Equal(t, "B", series[1].Name)
	require.Equal(t, []int64{0, 5, 0}, counts(series[1]))
	require.Equal(t, wantTimes, timestamps(series[1]))

	for _, s := range series {
		require.Equal(t, 0, s.LineWidth)
		require.Equal(t, core.Marker{Radius: 3}, s.Marker)
	}
}

func TestAggregateSummed(t *testing.T) {
	start := util.MustParseTime("2023-12-31T22:00:00Z")
	series, err := Aggregate(context.Background(), scenarioSource(), core.Minute, start, false)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, AllInstrumentsName, series[0].Name)
	require.Equal(t, []int64{3, 5, 1}, counts(series[0]))
}

func TestSumMatchesByInstrument(t *testing.T) {
	src := &fakeSource{
		instruments: []core.Instrument{{ID: 4, Name: "x"}, {ID: 7, Name: "y"}, {ID: 9, Name: "z"}},
		counts: map[int64]map[string]int64{
			4: {"2015-07-01T17": 2, "2015-07-01T19": 8, "2015-07-02T01": 1},
			7: {"2015-07-01T19": 3},
			9: {"2015-07-01T18": 6, "2015-07-02T01": 4, "2015-06-30T23": 10},
		},
	}
	start := util.MustParseTime("2015-06-24T00:00:00Z")

	byInst, err := Aggregate(context.Background(), src, core.Hour, start, true)
	require.NoError(t, err)
	summed, err := Aggregate(context.Background(), src, core.Hour, start, false)
	require.NoError(t, err)

	require.Len(t, summed, 1)
	for row, pt := range summed[0].Data {
		var sum int64
		for _, s := range byInst {
			require.Equal(t, pt.Timestamp(), s.Data[row].Timestamp())
			sum += s.Data[row].Count()
		}
		require.Equal(t, sum, pt.Count())
	}
	require.Equal(t, []int64{10, 2, 6, 11, 5}, counts(summed[0]))
}

func TestAxisIsSortedUnion(t *testing.T) {
	m := []map[string]int64{
		{"2015-07-03": 1, "2015-07-01": 2},
		{},
		{"2015-07-02": 1, "2015-07-03": 9},
		{"2014-12-31": 1},
	}
	a, err := buildAxis(core.Day, m)
	require.NoError(t, err)

	want := map[string]struct{}{}
	for _, mm := range m {
		for k := range mm {
			want[k] = struct{}{}
		}
	}
	wantLabels := []string{}
	for k := range want {
		wantLabels = append(wantLabels, k)
	}
	sort.Strings(wantLabels)

	require.Equal(t, wantLabels, a.labels)
	require.Equal(t, []string{"2014-12-31", "2015-07-01", "2015-07-02", "2015-07-03"}, a.labels)
	for i := 1; i < len(a.millis); i++ {
		require.Less(t, a.millis[i-1], a.millis[i])
	}
}

func TestAxisRejectsMalformedLabel(t *testing.T) {
	_, err := buildAxis(core.Minute, []map[string]int64{{"2015-07-08T14": 1}})
	require.Error(t, err)

	src := &fakeSource{
		instruments: []core.Instrument{{ID: 1, Name: "A"}},
		counts:      map[int64]map[string]int64{1: {"not a time": 1}},
	}
	series, err := Aggregate(context.Background(), src, core.Day, time.Time{}, true)
	require.Error(t, err)
	require.Nil(t, series)
}

func TestGridZeroFill(t *testing.T) {
	src := scenarioSource()
	m := []map[string]int64{src.counts[1], src.counts[2]}
	a, err := buildAxis(core.Minute, m)
	require.NoError(t, err)
	g := fillGrid(a.labels, m)

	require.Equal(t, 3, g.ntimes)
	require.Equal(t, 2, g.ninstruments)
	for row, label := range a.labels {
		require.Len(t, g.row(row), 2)
		for col := range m {
			v, ok := m[col][label]
			if !ok {
				require.Equal(t, int64(0), g.at(row, col))
			} else {
				require.Equal(t, v, g.at(row, col))
			}
		}
	}
	require.Equal(t, []int64{3, 0, 0, 5, 1, 0}, g.cells)
	require.Equal(t, int64(5), g.rowSum(1))
}

func TestAggregateNoMeasurements(t *testing.T) {
	src := &fakeSource{
		instruments: []core.Instrument{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
	}

	series, err := Aggregate(context.Background(), src, core.Day, time.Now(), true)
	require.NoError(t, err)
	require.Len(t, series, 2)
	for _, s := range series {
		require.Empty(t, s.Data)
		require.NotNil(t, s.Data)
	}

	series, err = Aggregate(context.Background(), src, core.Day, time.Now(), false)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Empty(t, series[0].Data)

	bs, err := json.Marshal(series)
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":"All Instruments","lineWidth":0,"marker":{"radius":3},"data":[]}]`, string(bs))
}

func TestAggregateNoInstruments(t *testing.T) {
	series, err := Aggregate(context.Background(), &fakeSource{}, core.Hour, time.Now(), true)
	require.NoError(t, err)
	require.Empty(t, series)

	series, err = Aggregate(context.Background(), &fakeSource{}, core.Hour, time.Now(), false)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Empty(t, series[0].Data)
}

func TestAggregateInvalidResolution(t *testing.T) {
	src := scenarioSource()
	series, err := Aggregate(context.Background(), src, core.Resolution("fortnight"), time.Now(), true)
	require.ErrorIs(t, err, core.ErrInvalidResolution)
	require.Nil(t, series)
	require.Equal(t, 0, src.queries)
}

func TestAggregateSourceFailure(t *testing.T) {
	src := scenarioSource()
	src.failOn = 2
	series, err := Aggregate(context.Background(), src, core.Minute, time.Now(), true)
	require.ErrorIs(t, err, errStorageDown)
	require.Nil(t, series)

	src = scenarioSource()
	src.listErr = errStorageDown
	series, err = Aggregate(context.Background(), src, core.Minute, time.Now(), false)
	require.ErrorIs(t, err, errStorageDown)
	require.Nil(t, series)
	require.Equal(t, 0, src.queries)
}

func TestInstrumentListMismatch(t *testing.T) {
	instruments := []core.Instrument{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	_, err := BuildSeries(core.Minute, instruments, []map[string]int64{{}}, true)
	require.ErrorIs(t, err, core.ErrInstrumentListMismatch)

	src := &fakeSource{
		instruments: []core.Instrument{{ID: 1, Name: "A"}, {ID: 1, Name: "A again"}},
	}
	_, err = Aggregate(context.Background(), src, core.Minute, time.Now(), true)
	require.ErrorIs(t, err, core.ErrInstrumentListMismatch)
}

func TestAggregateIdempotent(t *testing.T) {
	src := &fakeSource{
		instruments: []core.Instrument{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}},
		counts: map[int64]map[string]int64{
			1: {"2015-07-08T14:34": 3, "2015-07-08T14:36": 2, "2015-07-08T15:00": 1},
			2: {"2015-07-08T14:35": 5, "2015-07-08T14:36": 7},
			3: {"2015-07-08T13:59": 1},
		},
	}
	for _, byInstrument := range []bool{true, false} {
		s0, err := Aggregate(context.Background(), src, core.Minute, time.Time{}, byInstrument)
		require.NoError(t, err)
		s1, err := Aggregate(context.Background(), src, core.Minute, time.Time{}, byInstrument)
		require.NoError(t, err)

		b0, err := json.Marshal(s0)
		require.NoError(t, err)
		b1, err := json.Marshal(s1)
		require.NoError(t, err)
		require.Equal(t, b0, b1)
	}
}

func TestBucketize(t *testing.T) {
	base := util.MustParseTime("2015-07-08T14:34:10Z")
	ts := []time.Time{
		base.Add(-time.Hour),
		base,
		base.Add(20 * time.Second),
		base.Add(time.Minute),
		base.Add(26 * time.Hour),
	}

	require.Equal(t, map[string]int64{
		"2015-07-08T14:34": 2,
		"2015-07-08T14:35": 1,
		"2015-07-09T16:34": 1,
	}, Bucketize(ts, core.Minute, base))

	require.Equal(t, map[string]int64{
		"2015-07-08": 4,
		"2015-07-09": 1,
	}, Bucketize(ts, core.Day, time.Time{}))

	require.Empty(t, Bucketize(nil, core.Hour, base))
}
