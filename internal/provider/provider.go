package provider

import (
	"context"
	"errors"

	"tripmate/internal/chat"
)

// ErrModelUnavailable 模型调用在重试后仍失败；上层据此走降级回复。
// ErrModelUnavailable marks a model call that failed past retries; callers
// degrade to a fallback reply instead of surfacing the raw transport error.
var ErrModelUnavailable = errors.New("model unavailable")

// ChatRequest 封装一次模型请求
// ChatRequest wraps a single model call
type ChatRequest struct {
	Model       string
	Messages    []chat.Message
	Tools       []chat.ToolDef
	// ToolChoice "required" 强制模型每轮都产生工具调用。
	// ToolChoice "required" forces the model to emit a tool call every turn.
	ToolChoice  string
	Temperature *float64
	MaxTokens   int
}

// Usage token 用量统计
// Usage reports token consumption
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse 完整响应
// ChatResponse is the complete response
type ChatResponse struct {
	Content      string
	ToolCalls    []chat.ToolCall
	FinishReason string
	Usage        Usage
}

// ModelInfo 模型基本信息
// ModelInfo describes a model
type ModelInfo struct {
	ID      string
	OwnedBy string
}

// Provider 模型提供方接口
// Provider is the model backend interface
type Provider interface {
	// Chat sends a request and returns the complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ListModels lists available models.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name returns the provider name.
	Name() string

	// CurrentModel returns the current active model.
	CurrentModel() string

	// SetModel switches the active model.
	SetModel(model string) error
}
