package models

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/easeaico/memorify/internal/apperr"
)

// NewLLM returns the text model for the configured provider.
func NewLLM(ctx context.Context, provider, modelName, apiKey string) (model.LLM, error) {
	switch provider {
	case "grok":
		return NewGrokModel(ctx, modelName, apiKey)
	case "openrouter":
		return NewOpenRouterModel(ctx, modelName, apiKey)
	case "openai":
		return NewOpenAIModel(ctx, modelName, apiKey)
	case "gemini", "":
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("API key is required")
		}
		llm, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

// Image is a rendered picture returned by the image model.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the image inline.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

type ImageGenerator struct {
	client      *genai.Client
	model       string
	aspectRatio string
}

func NewGeminiImageGenerator(ctx context.Context, apiKey, model, aspectRatio string) (*ImageGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &ImageGenerator{
		client:      client,
		model:       strings.TrimSpace(model),
		aspectRatio: normalizeAspectRatio(aspectRatio),
	}, nil
}

func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	if g == nil || g.client == nil {
		return Image{}, fmt.Errorf("image generator not configured")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, apperr.Errorf(apperr.KindValidation, "generate_image", "prompt cannot be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: g.aspectRatio,
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return Image{}, Classify("generate_image", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return Image{}, apperr.Errorf(apperr.KindMalformed, "generate_image", "empty image response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := strings.TrimSpace(part.InlineData.MIMEType)
		if mimeType == "" {
			mimeType = "image/png"
		}
		return Image{Data: part.InlineData.Data, MIMEType: mimeType}, nil
	}
	return Image{}, apperr.Errorf(apperr.KindMalformed, "generate_image", "image data missing in response")
}

func normalizeAspectRatio(value string) string {
	value = strings.TrimSpace(value)
	switch value {
	case "1:1", "3:4", "4:3", "9:16", "16:9":
		return value
	default:
		return "16:9"
	}
}
