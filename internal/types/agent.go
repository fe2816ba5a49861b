package types

import "time"

// Identity is the authenticated caller every operation is scoped to.
type Identity struct {
	UserID string
}

// Valid reports whether the identity resolves to an owner.
func (i Identity) Valid() bool {
	return i.UserID != ""
}

// MemoryKind classifies a long-term memory.
type MemoryKind string

const (
	MemoryPattern    MemoryKind = "pattern"
	MemoryPreference MemoryKind = "preference"
	MemoryMilestone  MemoryKind = "milestone"
	MemoryConcern    MemoryKind = "concern"
)

// Valid reports whether k is one of the four memory kinds.
func (k MemoryKind) Valid() bool {
	switch k {
	case MemoryPattern, MemoryPreference, MemoryMilestone, MemoryConcern:
		return true
	}
	return false
}

// AgentMemory is a ranked fact inferred from journaling text.
type AgentMemory struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id" validate:"required"`
	Kind             MemoryKind `json:"memory_type" validate:"oneof=pattern preference milestone concern"`
	Content          string     `json:"content" validate:"required"`
	EmotionalContext []string   `json:"emotional_context"`
	Importance       float64    `json:"importance_score" validate:"gte=0,lte=1"`
	CreatedAt        time.Time  `json:"created_at"`
	LastAccessedAt   time.Time  `json:"last_accessed"`
	AccessCount      int        `json:"access_count"`
	Embedding        []float32  `json:"-"`
}

// TriggerType is what raised a check-in.
type TriggerType string

const (
	TriggerInactivity       TriggerType = "inactivity"
	TriggerEmotionalPattern TriggerType = "emotional_pattern"
	TriggerMilestone        TriggerType = "milestone"
	TriggerScheduled        TriggerType = "scheduled"
)

// AgentCheckin is a proactive message surfaced to the user.
type AgentCheckin struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id" validate:"required"`
	TriggerType      TriggerType `json:"trigger_type" validate:"oneof=inactivity emotional_pattern milestone scheduled"`
	Message          string      `json:"message" validate:"required"`
	EmotionalContext string      `json:"emotional_context,omitempty"`
	IsRead           bool        `json:"is_read"`
	CreatedAt        time.Time   `json:"created_at"`
	RespondedAt      *time.Time  `json:"responded_at,omitempty"`
}

// MoodTrend classifies how a week's intensity evolved.
type MoodTrend string

const (
	MoodImproving MoodTrend = "improving"
	MoodDeclining MoodTrend = "declining"
	MoodStable    MoodTrend = "stable"
)

// Valid reports whether t is one of the three trends.
func (t MoodTrend) Valid() bool {
	return t == MoodImproving || t == MoodDeclining || t == MoodStable
}

// WeeklyInsight is a synthesized summary of one calendar week.
type WeeklyInsight struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	WeekStart           time.Time       `json:"week_start"`
	WeekEnd             time.Time       `json:"week_end"`
	DominantEmotions    []Emotion       `json:"dominant_emotions"`
	EmotionDistribution map[Emotion]int `json:"emotion_distribution"`
	Themes              []string        `json:"themes"`
	GrowthObservations  []string        `json:"growth_observations"`
	RecommendedActions  []string        `json:"recommended_actions"`
	MoodTrend           MoodTrend       `json:"mood_trend"`
	VisualPrompt        string          `json:"visual_prompt,omitempty"`
	VisualURL           string          `json:"visual_url,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Personality is the tonal preset used for generated messages.
type Personality string

const (
	PersonalityTherapist   Personality = "therapist"
	PersonalityPoet        Personality = "poet"
	PersonalityCoach       Personality = "coach"
	PersonalityFriend      Personality = "friend"
	PersonalityPhilosopher Personality = "philosopher"
)

// Frequency is how often the user wants inactivity check-ins.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyEvery2Days Frequency = "every_2_days"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyAsNeeded   Frequency = "as_needed"
)

// ThresholdDays maps a frequency to the inactivity threshold in days.
// Unknown values fall back to the daily threshold.
func (f Frequency) ThresholdDays() int {
	switch f {
	case FrequencyEvery2Days:
		return 2
	case FrequencyWeekly:
		return 7
	case FrequencyAsNeeded:
		return 14
	default:
		return 1
	}
}

// AgentSettings is the per-user companion configuration.
type AgentSettings struct {
	UserID             string      `json:"user_id" validate:"required"`
	AgenticModeEnabled bool        `json:"agentic_mode_enabled"`
	PersonalityType    Personality `json:"personality_type" validate:"oneof=therapist poet coach friend philosopher"`
	CheckInFrequency   Frequency   `json:"check_in_frequency" validate:"oneof=daily every_2_days weekly as_needed"`
	ProactiveInsights  bool        `json:"proactive_insights"`
	VisualGeneration   bool        `json:"visual_generation"`
	LastCheckIn        *time.Time  `json:"last_check_in,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// DefaultSettings returns the settings lazily created on first access.
func DefaultSettings(userID string) AgentSettings {
	return AgentSettings{
		UserID:             userID,
		AgenticModeEnabled: true,
		PersonalityType:    PersonalityFriend,
		CheckInFrequency:   FrequencyDaily,
		ProactiveInsights:  true,
		VisualGeneration:   false,
	}
}

// SettingsUpdate is a partial settings change; nil fields are left untouched.
type SettingsUpdate struct {
	AgenticModeEnabled *bool        `json:"agentic_mode_enabled,omitempty"`
	PersonalityType    *Personality `json:"personality_type,omitempty" validate:"omitempty,oneof=therapist poet coach friend philosopher"`
	CheckInFrequency   *Frequency   `json:"check_in_frequency,omitempty" validate:"omitempty,oneof=daily every_2_days weekly as_needed"`
	ProactiveInsights  *bool        `json:"proactive_insights,omitempty"`
	VisualGeneration   *bool        `json:"visual_generation,omitempty"`
}

// Apply returns s with every non-nil field of u applied.
func (u SettingsUpdate) Apply(s AgentSettings) AgentSettings {
	if u.AgenticModeEnabled != nil {
		s.AgenticModeEnabled = *u.AgenticModeEnabled
	}
	if u.PersonalityType != nil {
		s.PersonalityType = *u.PersonalityType
	}
	if u.CheckInFrequency != nil {
		s.CheckInFrequency = *u.CheckInFrequency
	}
	if u.ProactiveInsights != nil {
		s.ProactiveInsights = *u.ProactiveInsights
	}
	if u.VisualGeneration != nil {
		s.VisualGeneration = *u.VisualGeneration
	}
	return s
}
