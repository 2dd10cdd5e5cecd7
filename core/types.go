package core

import "time"

type Instrument struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Measurement struct {
	InstrumentID int64     `json:"instrumentId"`
	CreatedAt    time.Time `json:"createdAt"`
	URL          string    `json:"url,omitempty"`
}

// DataPoint is a [timestamp_ms, count] pair as charting front ends expect it.
type DataPoint [2]int64

func (p DataPoint) Timestamp() int64 {
	return p[0]
}

func (p DataPoint) Count() int64 {
	return p[1]
}

type Marker struct {
	Radius int `json:"radius"`
}

type Series struct {
	Name      string      `json:"name"`
	LineWidth int         `json:"lineWidth"`
	Marker    Marker      `json:"marker"`
	Data      []DataPoint `json:"data"`
}

type Summary struct {
	DBSizeMB         float64 `json:"dbSizeMb"`
	MeasurementCount int64   `json:"measurementCount"`
	SiteCount        int64   `json:"siteCount"`
	InstrumentCount  int64   `json:"instrumentCount"`
	LastURL          string  `json:"lastUrl"`
}
