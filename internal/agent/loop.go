package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tripmate/internal/chat"
	"tripmate/internal/provider"
	"tripmate/internal/tools"
)

// Step 记录循环中的一次工具调用及其输出。
// Step records one tool invocation and its output within the loop.
type Step struct {
	CallID string
	Tool   string
	Args   json.RawMessage
	Result string
	Failed bool
}

// Outcome is the result of one loop run.
type Outcome struct {
	Answer    string
	ToolsUsed []string
	Steps     []Step
	// CapReached 表示在迭代上限内没有收到 final_answer。
	// CapReached means the loop hit the iteration cap without a final_answer.
	CapReached bool
}

// Loop 有界的工具调用循环：每轮强制模型选择一个工具，
// 执行后把调用与输出追加到便笺，直到 final_answer 或达到上限。
// Loop is the bounded tool-calling loop: every turn the model is forced to pick
// a tool, the call and its output are appended to the scratchpad, and the loop
// ends on final_answer or at the iteration cap.
type Loop struct {
	provider      provider.Provider
	registry      *tools.Registry
	maxIterations int
	logger        *zap.Logger
}

func NewLoop(p provider.Provider, registry *tools.Registry, maxIterations int, logger *zap.Logger) *Loop {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		provider:      p,
		registry:      registry,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Run drives the loop for one user message under the given system prompt.
func (l *Loop) Run(ctx context.Context, systemPrompt, input string) (Outcome, error) {
	messages := []chat.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: input},
	}
	defs := l.registry.Definitions()

	var out Outcome
	var lastResult string
	for i := 0; i < l.maxIterations; i++ {
		resp, err := l.provider.Chat(ctx, provider.ChatRequest{
			Messages:   messages,
			Tools:      defs,
			ToolChoice: "required",
		})
		if err != nil {
			return Outcome{}, err
		}
		if len(resp.ToolCalls) == 0 {
			// 强制工具选择下不应发生；若发生则把正文当作最终回答。
			// Should not happen under forced tool choice; if it does, treat the
			// content as the final answer.
			out.Answer = resp.Content
			return out, nil
		}

		call := resp.ToolCalls[0]
		callID := strings.TrimSpace(call.ID)
		if callID == "" {
			callID = "call_" + uuid.NewString()
			call.ID = callID
		}
		args := json.RawMessage(call.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		messages = append(messages, chat.Message{
			Role:      "assistant",
			ToolCalls: []chat.ToolCall{call},
		})

		step := Step{CallID: callID, Tool: call.Function.Name, Args: args}
		result, err := l.registry.Execute(ctx, call.Function.Name, args)
		if err != nil {
			if !l.registry.Has(call.Function.Name) {
				return Outcome{}, err
			}
			// 工具执行失败写回便笺，让模型自行调整。
			// Tool failures go back into the scratchpad so the model can adjust.
			data, _ := json.Marshal(map[string]string{"status": "error", "message": err.Error()})
			result = string(data)
			step.Failed = true
		}
		step.Result = result
		out.Steps = append(out.Steps, step)
		lastResult = result

		messages = append(messages, chat.Message{
			Role:       "tool",
			ToolCallID: callID,
			Content:    result,
		})
		l.logger.Debug("tool step",
			zap.Int("iteration", i),
			zap.String("tool", call.Function.Name),
			zap.Bool("failed", step.Failed))

		if call.Function.Name == tools.FinalAnswerName {
			// 参数畸形的 final_answer 同样留在便笺里让模型重试。
			// A malformed final_answer stays in the scratchpad like any other
			// failed tool so the model can retry within the cap.
			if step.Failed {
				continue
			}
			fa, err := tools.ParseFinalAnswer(args)
			if err != nil {
				return Outcome{}, err
			}
			out.Answer = fa.Answer
			out.ToolsUsed = fa.ToolsUsed
			return out, nil
		}
		out.ToolsUsed = append(out.ToolsUsed, call.Function.Name)
	}

	// 到达上限：直接把最后一个工具的原始输出作为回答返回。
	// Cap reached: the last tool's raw output becomes the answer as-is;
	// tools_used is only reported through an explicit final_answer.
	out.Answer = lastResult
	out.ToolsUsed = nil
	out.CapReached = true
	return out, nil
}
