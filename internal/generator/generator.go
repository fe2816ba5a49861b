// Package generator turns prompt requests into text completions over a model.LLM.
package generator

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/models"
	"github.com/easeaico/memorify/internal/retry"
)

// Role tags a prompt turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one role-tagged prompt message.
type Turn struct {
	Role Role
	Text string
}

// Request is a single text generation call.
type Request struct {
	System      string
	Turns       []Turn
	MaxTokens   int32
	Temperature float32
	// JSON asks the provider for a JSON object. Output is still parsed defensively.
	JSON bool
}

// Generator produces a completion or a classified error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// LLMGenerator implements Generator over an ADK model with rate limiting and retry.
type LLMGenerator struct {
	llm     model.LLM
	limiter *rate.Limiter
	retrier *retry.Retrier
}

// New creates an LLMGenerator. rps <= 0 disables rate limiting.
func New(llm model.LLM, retrier *retry.Retrier, rps float64) *LLMGenerator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &LLMGenerator{llm: llm, limiter: limiter, retrier: retrier}
}

// Generate sends req and returns the concatenated text of the response.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Turns) == 0 {
		return "", apperr.Errorf(apperr.KindValidation, "generate_text", "request has no turns")
	}
	return retry.Do(ctx, g.retrier, "generate_text", func(ctx context.Context) (string, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", models.Classify("generate_text", err)
		}
		return g.once(ctx, req)
	})
}

func (g *LLMGenerator) once(ctx context.Context, req Request) (string, error) {
	llmReq := buildLLMRequest(req)

	var sb strings.Builder
	for resp, err := range g.llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return "", models.Classify("generate_text", err)
		}
		if resp == nil {
			continue
		}
		sb.WriteString(ExtractText(resp.Content))
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", apperr.Errorf(apperr.KindMalformed, "generate_text", "empty completion from %s", g.llm.Name())
	}
	return text, nil
}

func buildLLMRequest(req Request) *model.LLMRequest {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return &model.LLMRequest{Contents: contents, Config: config}
}

// ExtractText returns all text parts joined together.
func ExtractText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
