package datastore

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

const (
	sitesTable        = "monportal_sites"
	instrumentsTable  = "monportal_instruments"
	measurementsTable = "monportal_measurements"
	profilesTable     = "monportal_profiles"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + sitesTable + ` (
	id bigserial PRIMARY KEY,
	name text NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS ` + instrumentsTable + ` (
	id bigserial PRIMARY KEY,
	site_id bigint REFERENCES ` + sitesTable + `(id),
	name text NOT NULL,
	last_url text NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS ` + measurementsTable + ` (
	id bigserial PRIMARY KEY,
	instrument_id bigint NOT NULL REFERENCES ` + instrumentsTable + `(id),
	created_at timestamptz NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ` + measurementsTable + `_instrument_id_created_at ON ` + measurementsTable + `(instrument_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS ` + profilesTable + ` (
	id bigserial PRIMARY KEY,
	timezone text NOT NULL DEFAULT 'UTC'
)`,
}

func connString(pgUser, pgPassword, pgHost string, pgPort int, pgDB, pgSSLMode string) string {
	var passwordString string
	if pgPassword != "" {
		passwordString = fmt.Sprintf("password='%s' ", pgPassword)
	}
	var dbString string
	if pgDB != "" {
		dbString = fmt.Sprintf("dbname=%s ", pgDB)
	}
	return fmt.Sprintf("user=%s %shost='%s' port=%d %ssslmode=%s", pgUser, passwordString, pgHost, pgPort, dbString, pgSSLMode)
}

// InitDB connects to postgres, creates pgDB and the portal tables when they
// are missing and starts workers goroutines serving queries.
func InitDB(pgUser, pgPassword, pgHost string, pgPort int, pgDB, pgSSLMode string, workers int) (*DB, error) {
	session, err := sql.Open("postgres", connString(pgUser, pgPassword, pgHost, pgPort, "", pgSSLMode))
	if err != nil {
		return nil, err
	}
	if err := session.Ping(); err != nil {
		session.Close()
		return nil, err
	}
	exists, err := databaseExists(pgDB, session)
	if err != nil {
		session.Close()
		return nil, err
	}
	if !exists {
		if _, err := session.Exec(fmt.Sprintf("CREATE DATABASE %s", pgDB)); err != nil {
			session.Close()
			return nil, err
		}
		log.Infof("created database %s", pgDB)
	}
	if err := session.Close(); err != nil {
		return nil, err
	}

	session, err = sql.Open("postgres", connString(pgUser, pgPassword, pgHost, pgPort, pgDB, pgSSLMode))
	if err != nil {
		return nil, err
	}
	if err := session.Ping(); err != nil {
		session.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := session.Exec(stmt); err != nil {
			session.Close()
			return nil, err
		}
	}

	return newDB(session, workers), nil
}

func databaseExists(name string, session *sql.DB) (bool, error) {
	var found bool
	row := session.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name)
	if err := row.Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
