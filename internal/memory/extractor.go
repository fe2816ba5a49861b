package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/jsonx"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/types"
)

// Candidate is an extracted memory before it is persisted.
type Candidate struct {
	Kind       types.MemoryKind
	Content    string
	Importance float64
}

// candidateSchema describes one item of the extraction response.
var candidateSchema = mustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"kind", "content", "importance"},
	Properties: map[string]*jsonschema.Schema{
		"kind": {
			Type: "string",
			Enum: []any{
				string(types.MemoryPattern),
				string(types.MemoryPreference),
				string(types.MemoryMilestone),
				string(types.MemoryConcern),
			},
		},
		"content":    {Type: "string", MinLength: jsonschema.Ptr(1)},
		"importance": {Type: "number", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(1.0)},
	},
})

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := s.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

// Extractor asks the generator for memory candidates.
type Extractor struct {
	gen     generator.Generator
	prompts *prompt.Builder
	logger  *slog.Logger
}

// NewExtractor creates an Extractor. A nil generator makes every call use the heuristics.
func NewExtractor(gen generator.Generator, prompts *prompt.Builder, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{gen: gen, prompts: prompts, logger: logger}
}

// Extract returns the valid candidates found in text. Items that fail the
// schema are dropped. When the call itself fails, the heuristics are used.
func (e *Extractor) Extract(ctx context.Context, text string, emotion types.Emotion) []Candidate {
	if e.gen == nil {
		return Heuristic(text)
	}
	candidates, err := e.extract(ctx, text, emotion)
	if err != nil {
		apperr.LogWithSeverity(ctx, e.logger, err, apperr.SeverityLow, "extract_memories", "fallback", true)
		return Heuristic(text)
	}
	return candidates
}

func (e *Extractor) extract(ctx context.Context, text string, emotion types.Emotion) ([]Candidate, error) {
	const op = "extract_memories"
	req, err := e.prompts.Extraction(text, emotion)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, op, err)
	}
	raw, err := e.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	obj, ok := jsonx.FirstObject(raw)
	if !ok {
		return nil, apperr.Errorf(apperr.KindMalformed, op, "no JSON object in response")
	}
	items := gjson.Get(obj, "memories")
	if !items.IsArray() {
		return nil, apperr.Errorf(apperr.KindMalformed, op, "memories is not a list")
	}

	var out []Candidate
	for i, item := range items.Array() {
		candidate, err := decodeCandidate(item.Raw)
		if err != nil {
			e.logger.Debug("discarding invalid memory candidate",
				"action", op,
				"index", i,
				"severity", string(apperr.SeverityLow),
				"error", err.Error(),
			)
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

func decodeCandidate(raw string) (Candidate, error) {
	var instance map[string]any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return Candidate{}, apperr.E(apperr.KindMalformed, "decode_memory", err)
	}
	if err := candidateSchema.Validate(instance); err != nil {
		return Candidate{}, apperr.E(apperr.KindValidation, "decode_memory", err)
	}
	content := strings.TrimSpace(instance["content"].(string))
	if content == "" {
		return Candidate{}, apperr.Errorf(apperr.KindValidation, "decode_memory", "blank content")
	}
	return Candidate{
		Kind:       types.MemoryKind(instance["kind"].(string)),
		Content:    content,
		Importance: instance["importance"].(float64),
	}, nil
}

var (
	frequencyWords = []string{"always", "usually", "often"}
	affinityWords  = []string{"love", "enjoy", "like"}
)

const maxHeuristicContent = 200

// Heuristic derives at most one pattern and one preference from keyword matches.
func Heuristic(text string) []Candidate {
	var out []Candidate
	if sentence, ok := sentenceWith(text, frequencyWords); ok {
		out = append(out, Candidate{Kind: types.MemoryPattern, Content: sentence, Importance: 0.6})
	}
	if sentence, ok := sentenceWith(text, affinityWords); ok {
		out = append(out, Candidate{Kind: types.MemoryPreference, Content: sentence, Importance: 0.5})
	}
	return out
}

// sentenceWith returns the first sentence containing any of words as a whole word.
func sentenceWith(text string, words []string) (string, bool) {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	for _, sentence := range sentences {
		tokens := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		for _, token := range tokens {
			for _, w := range words {
				if token == w {
					return clip(strings.TrimSpace(sentence), maxHeuristicContent), true
				}
			}
		}
	}
	return "", false
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
