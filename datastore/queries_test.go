package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monportal/core"
	"monportal/util"
)

func TestGenerateInsertStringsAndValues(t *testing.T) {
	ts := util.MustParseTime("2015-07-08T14:34:00Z")
	valuesStr, values, lastURLs, err := generateInsertStringsAndValues([]*core.Measurement{
		{InstrumentID: 3, CreatedAt: ts, URL: "http://x.example/old"},
		{InstrumentID: 4, CreatedAt: ts.Add(time.Second)},
		{InstrumentID: 3, CreatedAt: ts.Add(2 * time.Second), URL: "http://x.example/new"},
	})
	require.NoError(t, err)
	require.Equal(t, "($1,$2),($3,$4),($5,$6)", valuesStr)
	require.Equal(t, []interface{}{
		int64(3), ts,
		int64(4), ts.Add(time.Second),
		int64(3), ts.Add(2 * time.Second),
	}, values)
	require.Equal(t, map[int64]string{3: "http://x.example/new"}, lastURLs)
}

func TestGenerateInsertStringsAndValuesErrors(t *testing.T) {
	_, _, _, err := generateInsertStringsAndValues([]*core.Measurement{{CreatedAt: time.Now()}})
	require.ErrorIs(t, err, errInstrumentRequired)

	_, _, _, err = generateInsertStringsAndValues([]*core.Measurement{{InstrumentID: 1}})
	require.ErrorIs(t, err, errCreatedAtRequired)

	_, _, _, err = generateInsertStringsAndValues([]*core.Measurement{nil})
	require.ErrorIs(t, err, errMeasurementRequired)
}

func TestConnString(t *testing.T) {
	require.Equal(t, "user=portal password='pw' host='db' port=5432 dbname=monportal sslmode=disable",
		connString("portal", "pw", "db", 5432, "monportal", "disable"))
	require.Equal(t, "user=portal host='db' port=5433 sslmode=require",
		connString("portal", "", "db", 5433, "", "require"))
}
