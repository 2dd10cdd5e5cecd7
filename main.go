package main

import (
	"flag"
	"io"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"

	"monportal/datastore"
	"monportal/memstore"
	"monportal/server"
	"monportal/timezone"
	"monportal/util"
)

func main() {
	cfgPath := flag.String("config", "./config/monportal.toml", "Path to the TOML config file")
	flag.Parse()

	// load config
	cfg, err := util.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	zones, err := timezone.NewResolver(cfg.TimezoneCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := zones.Location(cfg.Timezone); err != nil {
		log.Fatal(err)
	}

	// init store
	var store server.Store
	switch cfg.Storage {
	case util.StorageMemory:
		log.Warn("using in-memory storage, measurements are lost on exit")
		store = memstore.New()
	default:
		pg := cfg.Postgres
		db, err := datastore.InitDB(pg.Username, pg.Password, pg.Host, pg.Port, pg.DB, pg.SSLMode, pg.Workers)
		if err != nil {
			log.Fatal(err)
		}
		store = db
	}

	// init server
	s := server.New(store, zones, cfg.Timezone, cfg.HTTP.LineBufferSize)
	err = s.ListenAndServe(&cfg.HTTP)
	if c, ok := store.(io.Closer); ok {
		if err0 := c.Close(); err0 != nil {
			log.Error(err0)
		}
	}
	log.Fatal(err)
}
