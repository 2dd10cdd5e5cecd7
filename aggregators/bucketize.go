package aggregators

import (
	"time"

	"monportal/core"
)

// Bucketize counts the timestamps at or after start per res bucket label.
func Bucketize(timestamps []time.Time, res core.Resolution, start time.Time) map[string]int64 {
	buckets := map[string]int64{}
	for _, ts := range timestamps {
		if ts.Before(start) {
			continue
		}
		buckets[res.Label(ts)]++
	}
	return buckets
}
