// Package models 提供各家模型提供方的适配器实现。
package models

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/memorify/internal/apperr"
)

// openaiModel 封装 OpenAI 兼容的聊天客户端。
type openaiModel struct {
	client             *openai.Client
	name               string
	versionHeaderValue string
}

// NewOpenAIModel creates a model.LLM backed by the OpenAI API.
func NewOpenAIModel(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	return newOpenAICompatible(modelName, apiKey, "openai-go", "")
}

// NewGrokModel creates a model.LLM that targets the x.ai OpenAI-compatible endpoint
// (e.g., "grok-4-fast", "grok-2-1212").
func NewGrokModel(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	return newOpenAICompatible(modelName, apiKey, "grok-go", "https://api.x.ai/v1")
}

// NewOpenRouterModel creates a model.LLM routed through OpenRouter.
func NewOpenRouterModel(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	return newOpenAICompatible(modelName, apiKey, "openrouter-go", "https://openrouter.ai/api/v1")
}

func newOpenAICompatible(modelName, apiKey, agent, baseURL string) (model.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	// 创建时一次性生成 UA 头，避免每次请求重复拼接。
	headerValue := fmt.Sprintf("%s/%s go/%s",
		agent, "1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	return &openaiModel{
		name:               modelName,
		client:             &client,
		versionHeaderValue: headerValue,
	}, nil
}

func (m *openaiModel) Name() string {
	return m.name
}

// GenerateContent 只支持整段返回；stream 参数被忽略。
func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.maybeAppendUserContent(req)

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.name)

	resp, err := m.client.Chat.Completions.New(ctx, *params, option.WithHeader("User-Agent", m.versionHeaderValue))
	if err != nil {
		slog.Debug("llm API call failed", "model", m.name, "error", err.Error())
		return nil, Classify("chat_completion", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, apperr.Errorf(apperr.KindMalformed, "chat_completion", "response has no choices")
	}

	message := resp.Choices[0].Message
	content := &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{},
	}
	if message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: message.Content})
	}

	return &model.LLMResponse{
		Content:      content,
		TurnComplete: true,
	}, nil
}

func (m *openaiModel) maybeAppendUserContent(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Handle the requests as specified in the System Instruction.", "user"))
	}

	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != "user" {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue processing previous requests as instructed.", "user"))
	}
}
