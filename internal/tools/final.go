package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"tripmate/internal/chat"
)

// FinalAnswerName is the tool the model calls to end the loop and answer the user.
const FinalAnswerName = "final_answer"

// FinalAnswer is the parsed payload of a final_answer call.
type FinalAnswer struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
}

// FinalAnswerTool 终止工具：模型通过它给出最终回复。
// FinalAnswerTool is the terminator: the model calls it to deliver the final reply.
type FinalAnswerTool struct{}

func NewFinalAnswerTool() *FinalAnswerTool { return &FinalAnswerTool{} }

func (t *FinalAnswerTool) Name() string { return FinalAnswerName }

func (t *FinalAnswerTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Provide the final answer to the user in natural language. Use this once you have everything you need.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"answer": map[string]any{
						"type":        "string",
						"description": "The final answer to provide to the user",
					},
					"tools_used": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Names of the tools that were used to produce the answer",
					},
				},
				"required": []string{"answer"},
			},
		},
	}
}

func (t *FinalAnswerTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	fa, err := ParseFinalAnswer(args)
	if err != nil {
		return "", err
	}
	return mustJSON(map[string]any{
		"answer":     fa.Answer,
		"tools_used": fa.ToolsUsed,
	}), nil
}

// ParseFinalAnswer decodes final_answer arguments.
func ParseFinalAnswer(args json.RawMessage) (FinalAnswer, error) {
	var fa FinalAnswer
	if err := json.Unmarshal(args, &fa); err != nil {
		return FinalAnswer{}, fmt.Errorf("final_answer args: %w", err)
	}
	if fa.ToolsUsed == nil {
		fa.ToolsUsed = []string{}
	}
	return fa, nil
}
