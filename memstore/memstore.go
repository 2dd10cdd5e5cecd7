package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"monportal/aggregators"
	"monportal/core"
)

var (
	errInstrumentDoesNotExist = errors.New("instrument does not exist")
	errMeasurementRequired    = errors.New("measurement required for insert")
	errCreatedAtRequired      = errors.New("measurement created_at is required")
)

type instrument struct {
	core.Instrument
	siteID  int64
	lastURL string
}

// Store keeps instruments and measurements in memory.
type Store struct {
	mu           sync.RWMutex
	sites        map[int64]string
	instruments  map[int64]*instrument
	measurements map[int64][]time.Time
	last         *core.Measurement
	timezone     string
}

func New() *Store {
	return &Store{
		sites:        map[int64]string{},
		instruments:  map[int64]*instrument{},
		measurements: map[int64][]time.Time{},
	}
}

func (s *Store) AddSite(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[id] = name
}

func (s *Store) AddInstrument(siteID int64, inst core.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[inst.ID] = &instrument{Instrument: inst, siteID: siteID}
}

func (s *Store) SetProfileTimezone(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timezone = name
}

func (s *Store) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		out = append(out, inst.Instrument)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountByBucket(ctx context.Context, instrumentID int64, res core.Resolution, start time.Time) (map[string]int64, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregators.Bucketize(s.measurements[instrumentID], res, start), nil
}

// InsertMeasurements rejects the whole batch if any instrument is unknown.
func (s *Store) InsertMeasurements(ctx context.Context, measurements []*core.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range measurements {
		if m == nil {
			return errMeasurementRequired
		}
		if m.CreatedAt.IsZero() {
			return errCreatedAtRequired
		}
		if _, ok := s.instruments[m.InstrumentID]; !ok {
			return errInstrumentDoesNotExist
		}
	}
	for _, m := range measurements {
		s.measurements[m.InstrumentID] = append(s.measurements[m.InstrumentID], m.CreatedAt)
		if m.URL != "" {
			s.instruments[m.InstrumentID].lastURL = m.URL
		}
		s.last = m
	}
	return nil
}

func (s *Store) Summary(ctx context.Context) (*core.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &core.Summary{
		SiteCount:       int64(len(s.sites)),
		InstrumentCount: int64(len(s.instruments)),
	}
	for _, ts := range s.measurements {
		summary.MeasurementCount += int64(len(ts))
	}
	if s.last != nil {
		if inst, ok := s.instruments[s.last.InstrumentID]; ok {
			summary.LastURL = inst.lastURL
		}
	}
	return summary, nil
}

func (s *Store) ProfileTimezone(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timezone, nil
}
