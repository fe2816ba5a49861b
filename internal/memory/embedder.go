// Package memory mines durable facts about the user from journal text.
package memory

import (
	"context"
	"log/slog"

	"google.golang.org/genai"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/models"
)

// Embedder turns memory content into a vector used for near-duplicate detection.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// GenAIEmbedder embeds text with a Gemini embedding model.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

const embeddingDimensions = 768

// NewGenAIEmbedder creates the Gemini embedding client.
func NewGenAIEmbedder(ctx context.Context, apiKey, modelName string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, apperr.Errorf(apperr.KindAuth, "new_embedder", "google api key is required for embeddings")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, models.Classify("new_embedder", err)
	}

	return &GenAIEmbedder{
		client: client,
		model:  modelName,
	}, nil
}

// EmbedDocument embeds text for storage alongside a memory.
func (e *GenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: genai.Ptr(int32(embeddingDimensions)),
	})
	if err != nil {
		return nil, models.Classify("embed_content", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, apperr.Errorf(apperr.KindMalformed, "embed_content", "empty embedding response")
	}
	values := resp.Embeddings[0].Values
	if len(values) == embeddingDimensions {
		return values, nil
	}
	if len(values) > embeddingDimensions {
		slog.Warn("embedding dimensions exceed target, truncating", "actual", len(values), "target", embeddingDimensions, "model", e.model)
		return values[:embeddingDimensions], nil
	}
	return nil, apperr.Errorf(apperr.KindMalformed, "embed_content", "embedding dimensions mismatch: got %d want %d", len(values), embeddingDimensions)
}
