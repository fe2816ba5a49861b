// Package insight synthesizes weekly summaries of diary activity.
package insight

import (
	"sort"
	"time"

	"github.com/easeaico/memorify/internal/types"
)

// WeekRange returns the calendar week containing now: the most recent Sunday
// at 00:00 through the following Saturday at 23:59:59.999, in now's location.
func WeekRange(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	start := midnight.AddDate(0, 0, -int(midnight.Weekday()))
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}

// EntriesInRange returns the entries with start <= CreatedAt <= end, oldest first.
func EntriesInRange(entries []types.DiaryEntry, start, end time.Time) []types.DiaryEntry {
	var out []types.DiaryEntry
	for _, e := range entries {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Histogram counts primary emotions across entries.
func Histogram(entries []types.DiaryEntry) map[types.Emotion]int {
	hist := make(map[types.Emotion]int)
	for _, e := range entries {
		if e.Emotion.Primary == "" {
			continue
		}
		hist[e.Emotion.Primary]++
	}
	return hist
}
