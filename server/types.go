package server

import (
	"monportal/core"
	"monportal/timezone"
)

type ServerError struct {
	Error string `json:"error"`
}

// DashboardResponse carries everything the dashboard page plots. Times are
// UTC epoch milliseconds; the time zone fields only help display them.
type DashboardResponse struct {
	Metrics *core.Summary `json:"metrics"`
	timezone.Context
	StartTimeByMinute int64          `json:"startTimeByMinute"`
	SamplesByMinute   []*core.Series `json:"samplesByMinute"`
	StartTimeByHour   int64          `json:"startTimeByHour"`
	SamplesByHour     []*core.Series `json:"samplesByHour"`
	StartTimeByDay    int64          `json:"startTimeByDay"`
	SamplesByDay      []*core.Series `json:"samplesByDay"`
	EndTime           int64          `json:"endTime"`
}

type InsertMeasurementsResponse struct {
	Inserted int `json:"inserted"`
}
