package types

import (
	"sort"
	"strings"
	"time"
)

// Emotion is one of the fixed diary emotion categories.
type Emotion string

const (
	EmotionJoy           Emotion = "joy"
	EmotionMelancholy    Emotion = "melancholy"
	EmotionAnxiety       Emotion = "anxiety"
	EmotionExcitement    Emotion = "excitement"
	EmotionCalm          Emotion = "calm"
	EmotionGratitude     Emotion = "gratitude"
	EmotionFrustration   Emotion = "frustration"
	EmotionLove          Emotion = "love"
	EmotionContemplative Emotion = "contemplative"
	EmotionHope          Emotion = "hope"
)

// Emotions lists every category in display order.
var Emotions = []Emotion{
	EmotionJoy, EmotionMelancholy, EmotionAnxiety, EmotionExcitement, EmotionCalm,
	EmotionGratitude, EmotionFrustration, EmotionLove, EmotionContemplative, EmotionHope,
}

// Valid reports whether e is a known category.
func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// Concerning reports whether e belongs to the set that warrants an emotional check-in.
func (e Emotion) Concerning() bool {
	return e == EmotionAnxiety || e == EmotionMelancholy
}

// ChatRole tags who authored a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleCompanion ChatRole = "companion"
)

// ChatTurn is one message of the conversation attached to an entry.
type ChatTurn struct {
	Role ChatRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// EmotionRecord is the emotion tagged on a diary entry.
type EmotionRecord struct {
	Primary   Emotion  `json:"primary"`
	Intensity float64  `json:"intensity"`
	Secondary *Emotion `json:"secondary,omitempty"`
	Color     string   `json:"color,omitempty"`
	Glyph     string   `json:"glyph,omitempty"`
}

// DiaryEntry is a read-only journal entry owned by the diary service.
type DiaryEntry struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Chat      []ChatTurn    `json:"chat"`
	Narrative string        `json:"narrative"`
	Emotion   EmotionRecord `json:"emotion"`
	PhotoURL  string        `json:"photo_url,omitempty"`
	Summary   string        `json:"summary,omitempty"`
}

// UserText concatenates the user-authored chat turns of the entry.
func (e DiaryEntry) UserText() string {
	parts := make([]string, 0, len(e.Chat))
	for _, turn := range e.Chat {
		if turn.Role != ChatRoleUser {
			continue
		}
		if text := strings.TrimSpace(turn.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// SortNewestFirst orders entries by timestamp, newest first, without mutating the input.
func SortNewestFirst(entries []DiaryEntry) []DiaryEntry {
	sorted := make([]DiaryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}
