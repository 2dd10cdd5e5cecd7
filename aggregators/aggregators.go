package aggregators

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"monportal/core"
)

// Source supplies the instrument listing and the sparse per-bucket
// measurement counts the aggregator works from.
type Source interface {
	// ListInstruments returns every instrument in canonical order. The ids and
	// names must come from the same read.
	ListInstruments(ctx context.Context) ([]core.Instrument, error)
	// CountByBucket counts the instrument's measurements at or after start,
	// keyed by the bucket label of res. Empty buckets are absent.
	CountByBucket(ctx context.Context, instrumentID int64, res core.Resolution, start time.Time) (map[string]int64, error)
}

// Aggregate counts measurements per res bucket since start and returns them
// as chart series: one per instrument when byInstrument is set, otherwise a
// single series summing all instruments. Buckets in which an instrument
// recorded nothing are reported as zero.
func Aggregate(ctx context.Context, src Source, res core.Resolution, start time.Time, byInstrument bool) ([]*core.Series, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}

	t0 := time.Now()

	instruments, err := src.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}

	counts := make([]map[string]int64, len(instruments))
	for i, inst := range instruments {
		m, err := src.CountByBucket(ctx, inst.ID, res, start)
		if err != nil {
			return nil, fmt.Errorf("count measurements of instrument %d: %w", inst.ID, err)
		}
		counts[i] = m
	}

	series, err := BuildSeries(res, instruments, counts, byInstrument)
	if err != nil {
		return nil, err
	}

	log.Debugf("aggregate %s since %s over %d instruments took %s", res, start.UTC().Format(time.RFC3339), len(instruments), time.Since(t0))

	return series, nil
}

// BuildSeries shapes already fetched counts. counts[i] must belong to
// instruments[i].
func BuildSeries(res core.Resolution, instruments []core.Instrument, counts []map[string]int64, byInstrument bool) ([]*core.Series, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := checkAligned(instruments, counts); err != nil {
		return nil, err
	}

	a, err := buildAxis(res, counts)
	if err != nil {
		return nil, err
	}
	g := fillGrid(a.labels, counts)

	if byInstrument {
		return seriesByInstrument(instruments, a, g), nil
	}
	return seriesSummed(a, g), nil
}

func checkAligned(instruments []core.Instrument, counts []map[string]int64) error {
	if len(instruments) != len(counts) {
		return fmt.Errorf("%w: %d instruments, %d count results", core.ErrInstrumentListMismatch, len(instruments), len(counts))
	}
	ids := make(map[int64]struct{}, len(instruments))
	for _, inst := range instruments {
		if _, ok := ids[inst.ID]; ok {
			return fmt.Errorf("%w: instrument %d listed twice", core.ErrInstrumentListMismatch, inst.ID)
		}
		ids[inst.ID] = struct{}{}
	}
	return nil
}
