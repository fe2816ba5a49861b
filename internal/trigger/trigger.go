// Package trigger decides whether the diary history warrants a proactive check-in.
// Evaluators are pure: they read the entries and settings and never touch storage.
package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/easeaico/memorify/internal/types"
)

// MilestoneKind distinguishes streak milestones from entry count milestones.
type MilestoneKind string

const (
	MilestoneStreak MilestoneKind = "streak"
	MilestoneCount  MilestoneKind = "count"
)

// Candidate is a check-in an evaluator wants to raise.
type Candidate struct {
	Trigger types.TriggerType
	Context string

	// DaysInactive is set by the inactivity evaluator.
	DaysInactive int
	// Emotions holds the recent primaries seen by the emotional pattern evaluator.
	Emotions []types.Emotion
	// MilestoneKind and MilestoneValue are set by the milestone evaluator.
	MilestoneKind  MilestoneKind
	MilestoneValue int
}

// Policy holds the milestone tables.
type Policy struct {
	StreakMilestones []int
	EntryMilestones  []int
}

// DefaultPolicy returns the 7/14/30 day streak and 10/25/50/100 entry tables.
func DefaultPolicy() Policy {
	return Policy{
		StreakMilestones: []int{7, 14, 30},
		EntryMilestones:  []int{10, 25, 50, 100},
	}
}

// Evaluator is one named trigger rule.
type Evaluator struct {
	Trigger  types.TriggerType
	Evaluate func(entries []types.DiaryEntry, settings types.AgentSettings, now time.Time) *Candidate
}

// Evaluators returns the inactivity, emotional pattern and milestone rules in run order.
func Evaluators(policy Policy) []Evaluator {
	return []Evaluator{
		{Trigger: types.TriggerInactivity, Evaluate: Inactivity},
		{Trigger: types.TriggerEmotionalPattern, Evaluate: func(entries []types.DiaryEntry, _ types.AgentSettings, _ time.Time) *Candidate {
			return EmotionalPattern(entries)
		}},
		{Trigger: types.TriggerMilestone, Evaluate: func(entries []types.DiaryEntry, _ types.AgentSettings, now time.Time) *Candidate {
			return Milestone(entries, now, policy)
		}},
	}
}

// Inactivity raises a check-in when the newest entry is at least the frequency threshold old.
func Inactivity(entries []types.DiaryEntry, settings types.AgentSettings, now time.Time) *Candidate {
	if len(entries) == 0 {
		return nil
	}
	newest := types.SortNewestFirst(entries)[0]
	days := int(now.Sub(newest.CreatedAt) / (24 * time.Hour))
	if days < settings.CheckInFrequency.ThresholdDays() {
		return nil
	}
	return &Candidate{
		Trigger:      types.TriggerInactivity,
		Context:      fmt.Sprintf("%d days since last entry", days),
		DaysInactive: days,
	}
}

// EmotionalPattern raises a check-in when at least two of the three newest entries are concerning.
func EmotionalPattern(entries []types.DiaryEntry) *Candidate {
	if len(entries) < 3 {
		return nil
	}
	recent := types.SortNewestFirst(entries)[:3]

	emotions := make([]types.Emotion, 0, len(recent))
	names := make([]string, 0, len(recent))
	concerning := 0
	for _, entry := range recent {
		emotions = append(emotions, entry.Emotion.Primary)
		names = append(names, string(entry.Emotion.Primary))
		if entry.Emotion.Primary.Concerning() {
			concerning++
		}
	}
	if concerning < 2 {
		return nil
	}
	return &Candidate{
		Trigger:  types.TriggerEmotionalPattern,
		Context:  "Recent pattern: " + strings.Join(names, ", "),
		Emotions: emotions,
	}
}

// Milestone raises at most one check-in, preferring a streak milestone over a count milestone.
func Milestone(entries []types.DiaryEntry, now time.Time, policy Policy) *Candidate {
	streak := Streak(entries, now)
	if lo.Contains(policy.StreakMilestones, streak) {
		return &Candidate{
			Trigger:        types.TriggerMilestone,
			Context:        fmt.Sprintf("%d-day journaling streak", streak),
			MilestoneKind:  MilestoneStreak,
			MilestoneValue: streak,
		}
	}
	total := len(entries)
	if lo.Contains(policy.EntryMilestones, total) {
		return &Candidate{
			Trigger:        types.TriggerMilestone,
			Context:        fmt.Sprintf("%d journal entries written", total),
			MilestoneKind:  MilestoneCount,
			MilestoneValue: total,
		}
	}
	return nil
}

// Streak counts consecutive calendar days with at least one entry, ending at the newest
// entry's day. It is zero when the newest entry is older than yesterday. Days are taken
// in now's location.
func Streak(entries []types.DiaryEntry, now time.Time) int {
	if len(entries) == 0 {
		return 0
	}
	loc := now.Location()
	sorted := types.SortNewestFirst(entries)

	today := dayNumber(now, loc)
	newest := dayNumber(sorted[0].CreatedAt, loc)
	if today-newest > 1 {
		return 0
	}

	streak := 1
	prev := newest
	for _, entry := range sorted[1:] {
		day := dayNumber(entry.CreatedAt, loc)
		if day == prev {
			continue
		}
		if prev-day != 1 {
			break
		}
		streak++
		prev = day
	}
	return streak
}

// dayNumber maps t to a calendar day index that is stable across DST changes.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
