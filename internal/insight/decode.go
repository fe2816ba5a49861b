package insight

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/jsonx"
	"github.com/easeaico/memorify/internal/types"
)

// Body is the narrative part of an insight produced by the generator or the fallback.
type Body struct {
	DominantEmotions   []types.Emotion
	Themes             []string
	GrowthObservations []string
	RecommendedActions []string
	MoodTrend          types.MoodTrend
	VisualPrompt       string
}

// Field holds a decoded value. OK is false when the field was missing or malformed.
type Field[T any] struct {
	Value T
	OK    bool
}

// Draft is a decoded generator response, field by field.
type Draft struct {
	DominantEmotions   Field[[]types.Emotion]
	Themes             Field[[]string]
	GrowthObservations Field[[]string]
	RecommendedActions Field[[]string]
	MoodTrend          Field[types.MoodTrend]
	VisualPrompt       Field[string]
}

// Decode reads the first JSON object in text. It fails with a malformed error
// only when no object is found; individual bad fields are reported through Draft.
func Decode(text string) (Draft, error) {
	raw, ok := jsonx.FirstObject(text)
	if !ok {
		return Draft{}, apperr.Errorf(apperr.KindMalformed, "decode_insight", "no JSON object in response")
	}

	var d Draft
	fields := gjson.GetMany(raw,
		"dominant_emotions",
		"themes",
		"growth_observations",
		"recommended_actions",
		"mood_trend",
		"visual_prompt",
	)
	d.DominantEmotions = decodeEmotions(fields[0])
	d.Themes = decodeStrings(fields[1])
	d.GrowthObservations = decodeStrings(fields[2])
	d.RecommendedActions = decodeStrings(fields[3])
	if fields[4].Type == gjson.String {
		trend := types.MoodTrend(strings.ToLower(strings.TrimSpace(fields[4].Str)))
		d.MoodTrend = Field[types.MoodTrend]{Value: trend, OK: trend.Valid()}
	}
	if fields[5].Type == gjson.String {
		prompt := strings.TrimSpace(fields[5].Str)
		d.VisualPrompt = Field[string]{Value: prompt, OK: prompt != ""}
	}
	return d, nil
}

// Merge substitutes fallback values for every field that did not decode and
// returns the names of the substituted fields.
func (d Draft) Merge(fallback Body) (Body, []string) {
	var substituted []string
	pick := func(name string, ok bool) bool {
		if !ok {
			substituted = append(substituted, name)
		}
		return ok
	}

	body := fallback
	if pick("dominant_emotions", d.DominantEmotions.OK) {
		body.DominantEmotions = d.DominantEmotions.Value
	}
	if pick("themes", d.Themes.OK) {
		body.Themes = d.Themes.Value
	}
	if pick("growth_observations", d.GrowthObservations.OK) {
		body.GrowthObservations = d.GrowthObservations.Value
	}
	if pick("recommended_actions", d.RecommendedActions.OK) {
		body.RecommendedActions = d.RecommendedActions.Value
	}
	if pick("mood_trend", d.MoodTrend.OK) {
		body.MoodTrend = d.MoodTrend.Value
	}
	if pick("visual_prompt", d.VisualPrompt.OK) {
		body.VisualPrompt = d.VisualPrompt.Value
	}
	return body, substituted
}

func decodeEmotions(r gjson.Result) Field[[]types.Emotion] {
	if !r.IsArray() {
		return Field[[]types.Emotion]{}
	}
	var out []types.Emotion
	for _, item := range r.Array() {
		if item.Type != gjson.String {
			continue
		}
		e := types.Emotion(strings.ToLower(strings.TrimSpace(item.Str)))
		if !e.Valid() {
			continue
		}
		out = append(out, e)
		if len(out) == maxDominant {
			break
		}
	}
	return Field[[]types.Emotion]{Value: out, OK: len(out) > 0}
}

func decodeStrings(r gjson.Result) Field[[]string] {
	if !r.IsArray() {
		return Field[[]string]{}
	}
	var out []string
	for _, item := range r.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.Str); s != "" {
			out = append(out, s)
		}
	}
	return Field[[]string]{Value: out, OK: len(out) > 0}
}
