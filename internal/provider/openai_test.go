package provider

import (
	"testing"

	"tripmate/internal/chat"
)

func TestBuildSDKRequestForcesToolChoice(t *testing.T) {
	tools := []chat.ToolDef{{
		Type:     "function",
		Function: chat.ToolFunction{Name: "final_answer"},
	}}

	req := buildSDKRequest("gpt-4o", ChatRequest{Tools: tools, ToolChoice: "required"})
	if req.ToolChoice != "required" {
		t.Errorf("tool_choice = %v, want required", req.ToolChoice)
	}
	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "final_answer" {
		t.Errorf("tools not converted: %+v", req.Tools)
	}

	// Defaults to auto when tools are present but no choice given.
	req = buildSDKRequest("gpt-4o", ChatRequest{Tools: tools})
	if req.ToolChoice != "auto" {
		t.Errorf("tool_choice = %v, want auto", req.ToolChoice)
	}

	// No tools means no tool_choice at all.
	req = buildSDKRequest("gpt-4o", ChatRequest{})
	if req.ToolChoice != nil {
		t.Errorf("tool_choice = %v, want nil", req.ToolChoice)
	}
}

func TestConvertMessagesPreservesToolPlumbing(t *testing.T) {
	msgs := []chat.Message{
		{Role: "system", Content: "You are a travel assistant."},
		{Role: "assistant", ToolCalls: []chat.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: chat.ToolCallFunction{
				Name:      "create_todo_list",
				Arguments: `{"title":"Trip"}`,
			},
		}}},
		{Role: "tool", ToolCallID: "call_1", Content: `{"status":"success"}`},
	}

	out := convertMessages(msgs)
	if len(out) != 3 {
		t.Fatalf("messages = %d", len(out))
	}
	if len(out[1].ToolCalls) != 1 || out[1].ToolCalls[0].Function.Name != "create_todo_list" {
		t.Errorf("tool call lost: %+v", out[1])
	}
	if out[2].ToolCallID != "call_1" {
		t.Errorf("tool call id = %q", out[2].ToolCallID)
	}
}

func TestSetModel(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"})
	if p.CurrentModel() != "gpt-4o" {
		t.Errorf("model = %q", p.CurrentModel())
	}
	if err := p.SetModel("  "); err == nil {
		t.Error("expected error for blank model")
	}
	if err := p.SetModel("gpt-4o-mini"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if p.CurrentModel() != "gpt-4o-mini" {
		t.Errorf("model = %q", p.CurrentModel())
	}
}
