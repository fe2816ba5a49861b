package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/easeaico/memorify/internal/types"
)

const (
	maxDominant   = 3
	trendMargin   = 0.1
	defaultTheme  = "Daily reflections"
	maxThemeCount = 4
)

var themeKeywords = []struct {
	theme    string
	keywords []string
}{
	{"Work and career", []string{"work", "job", "office", "meeting", "project", "boss", "career", "deadline"}},
	{"Relationships", []string{"friend", "partner", "family", "mom", "dad", "sister", "brother", "date"}},
	{"Health and rest", []string{"sleep", "exercise", "gym", "run", "tired", "sick", "health", "yoga"}},
	{"Learning", []string{"learn", "study", "read", "class", "course", "book"}},
	{"Creativity", []string{"write", "paint", "music", "draw", "create", "song"}},
	{"Nature and outdoors", []string{"walk", "park", "outside", "garden", "beach", "hike"}},
	{"Self-reflection", []string{"realize", "reflect", "wonder", "grateful", "myself"}},
}

// DominantEmotions returns up to three histogram keys by descending count.
// Ties are broken by name.
func DominantEmotions(hist map[types.Emotion]int) []types.Emotion {
	keys := make([]types.Emotion, 0, len(hist))
	for e, n := range hist {
		if n > 0 {
			keys = append(keys, e)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if hist[keys[i]] != hist[keys[j]] {
			return hist[keys[i]] > hist[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > maxDominant {
		keys = keys[:maxDominant]
	}
	return keys
}

// MoodTrendOf compares the average intensity of the later half of the
// chronologically ordered entries with the earlier half.
func MoodTrendOf(chronological []types.DiaryEntry) types.MoodTrend {
	mid := len(chronological) / 2
	if mid == 0 {
		return types.MoodStable
	}
	delta := averageIntensity(chronological[mid:]) - averageIntensity(chronological[:mid])
	switch {
	case delta > trendMargin:
		return types.MoodImproving
	case delta < -trendMargin:
		return types.MoodDeclining
	default:
		return types.MoodStable
	}
}

func averageIntensity(entries []types.DiaryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += e.Emotion.Intensity
	}
	return sum / float64(len(entries))
}

// Themes returns the keyword-matched themes found in text.
func Themes(text string) []string {
	lower := strings.ToLower(text)
	var themes []string
	for _, candidate := range themeKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				themes = append(themes, candidate.theme)
				break
			}
		}
		if len(themes) == maxThemeCount {
			break
		}
	}
	if len(themes) == 0 {
		return []string{defaultTheme}
	}
	return themes
}

func growthObservations(count int, dominant types.Emotion) []string {
	return []string{
		fmt.Sprintf("You showed up for yourself %d %s this week.", count, plural(count, "time", "times")),
		fmt.Sprintf("You gave space to %s and noticed how it shaped your days.", dominant),
	}
}

func recommendedActions(dominant types.Emotion) []string {
	first := fmt.Sprintf("Write down one thing that brought you %s and try to make room for it again.", dominant)
	if dominant.Concerning() {
		first = fmt.Sprintf("When %s shows up, try a five-minute breathing or grounding exercise.", dominant)
	}
	return []string{
		first,
		"Set aside ten quiet minutes this Sunday to look back on the week.",
	}
}

func visualPrompt(trend types.MoodTrend, dominant types.Emotion) string {
	light := "steady"
	switch trend {
	case types.MoodImproving:
		light = "brightening"
	case types.MoodDeclining:
		light = "softly dimming"
	}
	return fmt.Sprintf("An abstract watercolor of a week colored by %s, with %s light and gentle flowing shapes.", dominant, light)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Fallback computes a complete insight body from the week's entries alone.
func Fallback(chronological []types.DiaryEntry, hist map[types.Emotion]int, text string) Body {
	dominant := DominantEmotions(hist)
	lead := types.EmotionCalm
	if len(dominant) > 0 {
		lead = dominant[0]
	}
	trend := MoodTrendOf(chronological)
	return Body{
		DominantEmotions:   dominant,
		Themes:             Themes(text),
		GrowthObservations: growthObservations(len(chronological), lead),
		RecommendedActions: recommendedActions(lead),
		MoodTrend:          trend,
		VisualPrompt:       visualPrompt(trend, lead),
	}
}
