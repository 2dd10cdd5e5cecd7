package aggregators

import (
	"sort"

	"monportal/core"
)

type axis struct {
	labels []string
	millis []int64
}

func (a *axis) len() int {
	return len(a.labels)
}

// buildAxis returns the union of every bucket label in counts, ordered by
// the instant each label stands for. For the fixed width label layouts this
// is the same order a plain string sort gives.
func buildAxis(res core.Resolution, counts []map[string]int64) (*axis, error) {
	seen := map[string]int64{}
	for _, m := range counts {
		for label := range m {
			if _, ok := seen[label]; ok {
				continue
			}
			ms, err := res.LabelMillis(label)
			if err != nil {
				return nil, err
			}
			seen[label] = ms
		}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		mi, mj := seen[labels[i]], seen[labels[j]]
		if mi != mj {
			return mi < mj
		}
		return labels[i] < labels[j]
	})

	millis := make([]int64, len(labels))
	for i, label := range labels {
		millis[i] = seen[label]
	}

	return &axis{
		labels: labels,
		millis: millis,
	}, nil
}
