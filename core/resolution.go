package core

import (
	"fmt"
	"time"
)

// Resolution is the width of a count bucket.
type Resolution string

const (
	Minute Resolution = "minute"
	Hour   Resolution = "hour"
	Day    Resolution = "day"
)

func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

func (r Resolution) Validate() error {
	switch r {
	case Minute, Hour, Day:
		return nil
	}
	return ErrInvalidResolution
}

// Bucket labels are fixed width and zero padded, most significant field first.
func (r Resolution) layout() string {
	switch r {
	case Minute:
		return "2006-01-02T15:04"
	case Hour:
		return "2006-01-02T15"
	case Day:
		return "2006-01-02"
	}
	return ""
}

// ISOSuffix completes a bucket label into an RFC 3339 UTC timestamp.
func (r Resolution) ISOSuffix() string {
	switch r {
	case Minute:
		return ":00+00:00"
	case Hour:
		return ":00:00+00:00"
	case Day:
		return "T00:00:00+00:00"
	}
	return ""
}

// PGFormat is the to_char pattern that renders the same label as Label.
func (r Resolution) PGFormat() string {
	switch r {
	case Minute:
		return `YYYY-MM-DD"T"HH24:MI`
	case Hour:
		return `YYYY-MM-DD"T"HH24`
	case Day:
		return `YYYY-MM-DD`
	}
	return ""
}

func (r Resolution) Label(t time.Time) string {
	return t.UTC().Format(r.layout())
}

// LabelMillis returns the UTC epoch milliseconds of the start of the bucket.
func (r Resolution) LabelMillis(label string) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	t, err := time.Parse(time.RFC3339, label+r.ISOSuffix())
	if err != nil {
		return 0, fmt.Errorf("bucket label %q at %s resolution: %w", label, r, err)
	}
	return t.UnixNano() / int64(time.Millisecond), nil
}
