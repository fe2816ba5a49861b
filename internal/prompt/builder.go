// Package prompt assembles generator requests for check-ins, insights and memory extraction.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/types"
)

// CheckinInput contains all inputs for a check-in message prompt.
type CheckinInput struct {
	Personality types.Personality
	Trigger     types.TriggerType
	Context     string
	Memories    []types.AgentMemory
}

// InsightInput contains all inputs for a weekly insight prompt.
type InsightInput struct {
	Start       time.Time
	End         time.Time
	Count       int
	Histogram   map[types.Emotion]int
	EntriesText string
}

// Builder renders prompt templates into generator requests.
type Builder struct {
	nowFunc func() time.Time
}

// NewBuilder creates a prompt Builder.
func NewBuilder() *Builder {
	return &Builder{nowFunc: time.Now}
}

// Checkin builds the request for a proactive check-in message.
func (b *Builder) Checkin(in CheckinInput) (generator.Request, error) {
	system, err := render(checkinSystemTemplate, struct{ Persona Persona }{PersonaFor(in.Personality)})
	if err != nil {
		return generator.Request{}, err
	}
	user, err := render(checkinUserTemplate, struct {
		Reason   string
		Context  string
		Now      string
		Memories []types.AgentMemory
	}{
		Reason:   triggerReason(in.Trigger),
		Context:  in.Context,
		Now:      b.nowFunc().Format("Monday, January 2"),
		Memories: in.Memories,
	})
	if err != nil {
		return generator.Request{}, err
	}
	return generator.Request{
		System:      system,
		Turns:       []generator.Turn{{Role: generator.RoleUser, Text: user}},
		MaxTokens:   200,
		Temperature: 0.8,
	}, nil
}

// Insight builds the request for a weekly insight JSON object.
func (b *Builder) Insight(in InsightInput) (generator.Request, error) {
	names := make([]string, 0, len(types.Emotions))
	for _, e := range types.Emotions {
		names = append(names, string(e))
	}
	system, err := render(insightSystemTemplate, struct{ Emotions string }{strings.Join(names, ", ")})
	if err != nil {
		return generator.Request{}, err
	}

	type bucket struct {
		Emotion types.Emotion
		Count   int
	}
	histogram := make([]bucket, 0, len(in.Histogram))
	for e, c := range in.Histogram {
		histogram = append(histogram, bucket{Emotion: e, Count: c})
	}
	sort.Slice(histogram, func(i, j int) bool {
		if histogram[i].Count != histogram[j].Count {
			return histogram[i].Count > histogram[j].Count
		}
		return histogram[i].Emotion < histogram[j].Emotion
	})

	user, err := render(insightUserTemplate, struct {
		Count       int
		Start       string
		End         string
		Histogram   []bucket
		EntriesText string
	}{
		Count:       in.Count,
		Start:       in.Start.Format("2006-01-02"),
		End:         in.End.Format("2006-01-02"),
		Histogram:   histogram,
		EntriesText: in.EntriesText,
	})
	if err != nil {
		return generator.Request{}, err
	}
	return generator.Request{
		System:      system,
		Turns:       []generator.Turn{{Role: generator.RoleUser, Text: user}},
		MaxTokens:   1024,
		Temperature: 0.6,
		JSON:        true,
	}, nil
}

// Extraction builds the request for memory extraction from journal text.
func (b *Builder) Extraction(text string, emotion types.Emotion) (generator.Request, error) {
	system, err := render(extractionSystemTemplate, nil)
	if err != nil {
		return generator.Request{}, err
	}
	user, err := render(extractionUserTemplate, struct {
		Emotion types.Emotion
		Text    string
	}{emotion, text})
	if err != nil {
		return generator.Request{}, err
	}
	return generator.Request{
		System:      system,
		Turns:       []generator.Turn{{Role: generator.RoleUser, Text: user}},
		MaxTokens:   512,
		Temperature: 0.2,
		JSON:        true,
	}, nil
}

func triggerReason(trigger types.TriggerType) string {
	switch trigger {
	case types.TriggerInactivity:
		return "the user has not written in their journal for a while"
	case types.TriggerEmotionalPattern:
		return "the user's recent entries show a difficult emotional pattern"
	case types.TriggerMilestone:
		return "the user just reached a journaling milestone"
	case types.TriggerScheduled:
		return "the user's weekly reflection is ready"
	default:
		return "a friendly check-in"
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
