package util

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"monportal/core"
)

var (
	lineMatchRe      = regexp.MustCompile(`^\s*([0-9]+)\s+([0-9]+)(?:\s+(\S+))?\s*$`)
	errNoMatches     = errors.New("parse line: invalid line protocol syntax - no matches")
	errInvalidSyntax = errors.New("parse line: invalid line protocol syntax")
)

// ParseLine parses one "<instrument_id> <unix_nano_timestamp> [url]" line.
func ParseLine(line string) (*core.Measurement, error) {
	strs := lineMatchRe.FindAllStringSubmatch(line, -1)
	if len(strs) != 1 {
		return nil, errNoMatches
	}

	match := strs[0]

	if len(match) != 4 {
		return nil, errInvalidSyntax
	}

	instrumentID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil, err
	}

	timestamp, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return nil, err
	}

	return &core.Measurement{
		InstrumentID: instrumentID,
		CreatedAt:    time.Unix(0, timestamp).UTC(),
		URL:          match[3],
	}, nil
}
