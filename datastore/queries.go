package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"monportal/core"
)

var (
	insertBatchSize           = 200
	errDBClosed               = errors.New("database is closed")
	errInstrumentRequired     = errors.New("instrument id is required")
	errCreatedAtRequired      = errors.New("measurement created_at is required")
	errSiteNameRequired       = errors.New("site name is required")
	errInstrumentNameRequired = errors.New("instrument name is required")
	errMeasurementRequired    = errors.New("measurement required for insert query")
	bytesPerMB                = float64(1 << 20)
)

func min1(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (db *DB) CreateSite(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errSiteNameRequired
	}
	var id int64
	err := db.Query(ctx, priorityIngest, func(session *sql.DB) error {
		query := fmt.Sprintf("INSERT INTO %s (name) VALUES ($1) RETURNING id", sitesTable)
		return session.QueryRowContext(ctx, query, name).Scan(&id)
	})
	return id, err
}

func (db *DB) CreateInstrument(ctx context.Context, siteID int64, name string) (int64, error) {
	if name == "" {
		return 0, errInstrumentNameRequired
	}
	var id int64
	err := db.Query(ctx, priorityIngest, func(session *sql.DB) error {
		query := fmt.Sprintf("INSERT INTO %s (site_id, name) VALUES ($1, $2) RETURNING id", instrumentsTable)
		return session.QueryRowContext(ctx, query, siteID, name).Scan(&id)
	})
	return id, err
}

func (db *DB) SetProfileTimezone(ctx context.Context, name string) error {
	return db.Query(ctx, priorityIngest, func(session *sql.DB) error {
		tx, err := session.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", profilesTable)); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (timezone) VALUES ($1)", profilesTable), name); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// ListInstruments reads ids and names in one statement so both come from the
// same snapshot.
func (db *DB) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	var instruments []core.Instrument
	err := db.Query(ctx, priorityDashboard, func(session *sql.DB) error {
		query := fmt.Sprintf("SELECT id, name FROM %s ORDER BY id ASC", instrumentsTable)
		scanner, err := session.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer scanner.Close()

		for scanner.Next() {
			var inst core.Instrument
			if err := scanner.Scan(&inst.ID, &inst.Name); err != nil {
				return err
			}
			instruments = append(instruments, inst)
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, err
	}
	return instruments, nil
}

func (db *DB) CountByBucket(ctx context.Context, instrumentID int64, res core.Resolution, start time.Time) (map[string]int64, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	err := db.Query(ctx, priorityDashboard, func(session *sql.DB) error {
		t0 := time.Now()
		query := fmt.Sprintf(`SELECT to_char(created_at AT TIME ZONE 'UTC', $3), count(*) FROM %s WHERE instrument_id = $1 AND created_at >= $2 GROUP BY 1`, measurementsTable)
		scanner, err := session.QueryContext(ctx, query, instrumentID, start.UTC(), res.PGFormat())
		if err != nil {
			return err
		}
		defer scanner.Close()

		var (
			label string
			count int64
		)
		for scanner.Next() {
			if err := scanner.Scan(&label, &count); err != nil {
				return err
			}
			counts[label] = count
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		log.Debugf("count by %s for instrument %d took %s", res, instrumentID, time.Since(t0))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func generateInsertStringsAndValues(measurements []*core.Measurement) (string, []interface{}, map[int64]string, error) {
	valuesStrBuilder := &strings.Builder{}
	values := []interface{}{}
	lastURLs := map[int64]string{}
	var i = 1
	for z, m := range measurements {
		if m == nil {
			return "", nil, nil, errMeasurementRequired
		}
		if m.InstrumentID == 0 {
			return "", nil, nil, errInstrumentRequired
		}
		if m.CreatedAt.IsZero() {
			return "", nil, nil, errCreatedAtRequired
		}

		values = append(values, m.InstrumentID, m.CreatedAt.UTC())

		valuesStrBuilder.WriteString(fmt.Sprintf("($%d,$%d)", i, i+1))
		if z+1 < len(measurements) {
			valuesStrBuilder.WriteString(",")
		}
		i += 2

		if m.URL != "" {
			lastURLs[m.InstrumentID] = m.URL
		}
	}
	return valuesStrBuilder.String(), values, lastURLs, nil
}

// InsertMeasurements writes measurements in batches of insertBatchSize
// inside one transaction and records the newest url per instrument.
func (db *DB) InsertMeasurements(ctx context.Context, measurements []*core.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}
	return db.Query(ctx, priorityIngest, func(session *sql.DB) error {
		tx, err := session.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for i := 0; i < len(measurements); i += insertBatchSize {
			batch := measurements[i:min1(i+insertBatchSize, len(measurements))]
			valuesStr, values, lastURLs, err := generateInsertStringsAndValues(batch)
			if err != nil {
				tx.Rollback()
				return err
			}
			query := fmt.Sprintf("INSERT INTO %s (instrument_id,created_at) VALUES %s", measurementsTable, valuesStr)
			if _, err := tx.ExecContext(ctx, query, values...); err != nil {
				if err0 := tx.Rollback(); err0 != nil {
					log.Errorf("insert measurements rollback error: %s", err0)
				}
				return err
			}
			for id, url := range lastURLs {
				query := fmt.Sprintf("UPDATE %s SET last_url = $1 WHERE id = $2", instrumentsTable)
				if _, err := tx.ExecContext(ctx, query, url, id); err != nil {
					if err0 := tx.Rollback(); err0 != nil {
						log.Errorf("update last url rollback error: %s", err0)
					}
					return err
				}
			}
		}
		return tx.Commit()
	})
}

func (db *DB) Summary(ctx context.Context) (*core.Summary, error) {
	summary := &core.Summary{}
	err := db.Query(ctx, priorityDashboard, func(session *sql.DB) error {
		var size int64
		if err := session.QueryRowContext(ctx, "SELECT pg_database_size(current_database())").Scan(&size); err != nil {
			return err
		}
		summary.DBSizeMB = float64(size) / bytesPerMB

		query := fmt.Sprintf("SELECT (SELECT count(*) FROM %s), (SELECT count(*) FROM %s), (SELECT count(*) FROM %s)", measurementsTable, sitesTable, instrumentsTable)
		if err := session.QueryRowContext(ctx, query).Scan(&summary.MeasurementCount, &summary.SiteCount, &summary.InstrumentCount); err != nil {
			return err
		}

		query = fmt.Sprintf("SELECT i.last_url FROM %s m JOIN %s i ON i.id = m.instrument_id ORDER BY m.id DESC LIMIT 1", measurementsTable, instrumentsTable)
		err := session.QueryRowContext(ctx, query).Scan(&summary.LastURL)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ProfileTimezone returns the zone of the first profile, "" when there is
// no profile yet.
func (db *DB) ProfileTimezone(ctx context.Context) (string, error) {
	var tz string
	err := db.Query(ctx, priorityDashboard, func(session *sql.DB) error {
		query := fmt.Sprintf("SELECT timezone FROM %s ORDER BY id ASC LIMIT 1", profilesTable)
		err := session.QueryRowContext(ctx, query).Scan(&tz)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	return tz, err
}
