package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"

	"monportal/aggregators"
	"monportal/core"
	"monportal/timezone"
	"monportal/util"
)

const measurementsContentType = "application/x.monportal.measurements"

var (
	errStartInvalid        = errors.New("start must be unix milliseconds")
	errByInstrumentInvalid = errors.New("by_instrument must be true or false")

	// how far back each resolution looks when no start is given
	defaultSpans = map[core.Resolution]time.Duration{
		core.Minute: 2 * time.Hour,
		core.Hour:   7 * 24 * time.Hour,
		core.Day:    30 * 24 * time.Hour,
	}
)

// Store is what the HTTP layer needs from a storage backend.
type Store interface {
	aggregators.Source
	InsertMeasurements(ctx context.Context, measurements []*core.Measurement) error
	Summary(ctx context.Context) (*core.Summary, error)
	ProfileTimezone(ctx context.Context) (string, error)
}

type Server struct {
	store           Store
	zones           *timezone.Resolver
	defaultTimezone string
	lineBufferSize  int
	now             func() time.Time
}

func New(store Store, zones *timezone.Resolver, defaultTimezone string, lineBufferSize int) *Server {
	if lineBufferSize <= 0 {
		lineBufferSize = bufio.MaxScanTokenSize
	}
	return &Server{
		store:           store,
		zones:           zones,
		defaultTimezone: defaultTimezone,
		lineBufferSize:  lineBufferSize,
		now:             time.Now,
	}
}

func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/dashboard", s.DashboardHandler)
	router.GET("/series", s.SeriesHandler)
	router.POST("/insert_measurements", s.InsertMeasurementsHandler)
	return router
}

func (s *Server) ListenAndServe(cfg *util.HTTPConfig) error {
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort),
		Handler:        s.Router(),
		ReadTimeout:    cfg.ReadTimeoutDuration(),
		WriteTimeout:   cfg.WriteTimeoutDuration(),
		MaxHeaderBytes: 1 << 20,
	}
	log.Infof("listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

func write400Error(w http.ResponseWriter, err string) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	return json.NewEncoder(w).Encode(&ServerError{
		Error: err,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err)
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func (s *Server) timeContext(ctx context.Context, now time.Time) (timezone.Context, error) {
	name, err := s.store.ProfileTimezone(ctx)
	if err != nil {
		return timezone.Context{}, err
	}
	if name == "" {
		name = s.defaultTimezone
	}
	return s.zones.Resolve(name, now)
}

/*
Returns 200 with the dashboard data
Returns 500 on server failure
*/
func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	log.Infof("dashboard request from %s", r.RemoteAddr)

	ctx := r.Context()
	now := s.now()

	summary, err := s.store.Summary(ctx)
	if err != nil {
		log.Errorf("dashboard: summary: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	tc, err := s.timeContext(ctx, now)
	if err != nil {
		log.Errorf("dashboard: time zone: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp := &DashboardResponse{
		Metrics: summary,
		Context: tc,
		EndTime: toMillis(now),
	}

	panels := []struct {
		res          core.Resolution
		byInstrument bool
		start        *int64
		samples      *[]*core.Series
	}{
		{core.Minute, true, &resp.StartTimeByMinute, &resp.SamplesByMinute},
		{core.Hour, true, &resp.StartTimeByHour, &resp.SamplesByHour},
		{core.Day, false, &resp.StartTimeByDay, &resp.SamplesByDay},
	}
	for _, p := range panels {
		start := now.Add(-defaultSpans[p.res])
		series, err := aggregators.Aggregate(ctx, s.store, p.res, start, p.byInstrument)
		if err != nil {
			log.Errorf("dashboard: samples by %s: %s", p.res, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		*p.start = toMillis(start)
		*p.samples = series
	}

	writeJSON(w, resp)
}

/*
Returns 400 on invalid request
Returns 200 with the series
Returns 500 on server failure
*/
func (s *Server) SeriesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	log.Infof("series request from %s", r.RemoteAddr)

	q := r.URL.Query()

	res, err := core.ParseResolution(q.Get("resolution"))
	if err != nil {
		log.Error(err)
		if err0 := write400Error(w, err.Error()); err0 != nil {
			log.Error(err0)
		}
		return
	}

	start := s.now().Add(-defaultSpans[res])
	if v := q.Get("start"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err == nil && (ms < math.MinInt64/int64(time.Millisecond) || ms > math.MaxInt64/int64(time.Millisecond)) {
			err = fmt.Errorf("start %d out of range", ms)
		}
		if err != nil {
			log.Error(err)
			if err0 := write400Error(w, errStartInvalid.Error()); err0 != nil {
				log.Error(err0)
			}
			return
		}
		start = time.Unix(0, ms*int64(time.Millisecond))
	}

	byInstrument := true
	if v := q.Get("by_instrument"); v != "" {
		byInstrument, err = strconv.ParseBool(v)
		if err != nil {
			log.Error(err)
			if err0 := write400Error(w, errByInstrumentInvalid.Error()); err0 != nil {
				log.Error(err0)
			}
			return
		}
	}

	series, err := aggregators.Aggregate(r.Context(), s.store, res, start, byInstrument)
	if err != nil {
		log.Errorf("series: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, series)
}

/*
Returns 400 on invalid request
Returns 200 on successful insertion
*/
func (s *Server) InsertMeasurementsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	log.Infof("insert_measurements request from %s", r.RemoteAddr)

	typeHeader := r.Header.Values("Content-Type")

	if len(typeHeader) != 1 {
		log.Error("insert_measurements: content-type not set")
		if err0 := write400Error(w, "content-type not set"); err0 != nil {
			log.Error(err0)
		}
		return
	}

	if typeHeader[0] != measurementsContentType {
		log.Error("insert_measurements: content-type must be " + measurementsContentType)
		if err0 := write400Error(w, "content-type must be "+measurementsContentType); err0 != nil {
			log.Error(err0)
		}
		return
	}

	defer r.Body.Close()

	scanner := bufio.NewScanner(r.Body)
	buf := make([]byte, s.lineBufferSize)
	scanner.Buffer(buf, s.lineBufferSize)
	measurements := []*core.Measurement{}
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		m, err := util.ParseLine(scanner.Text())
		if err != nil {
			log.Error(err)
			if err0 := write400Error(w, err.Error()); err0 != nil {
				log.Error(err0)
			}
			return
		}
		measurements = append(measurements, m)
	}
	if err := scanner.Err(); err != nil {
		log.Error(err)
		if err0 := write400Error(w, err.Error()); err0 != nil {
			log.Error(err0)
		}
		return
	}

	if err := s.store.InsertMeasurements(r.Context(), measurements); err != nil {
		log.Error(err)
		if err0 := write400Error(w, err.Error()); err0 != nil {
			log.Error(err0)
		}
		return
	}

	writeJSON(w, &InsertMeasurementsResponse{Inserted: len(measurements)})
}
