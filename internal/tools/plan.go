package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// CreateTravelPlanTool 保存旅行计划文本并设为活跃计划。
// CreateTravelPlanTool saves a travel plan and marks it active.
type CreateTravelPlanTool struct {
	store   *docstore.Store
	active  ActiveTracker
	indexer Invalidator
}

func NewCreateTravelPlanTool(store *docstore.Store, active ActiveTracker, indexer Invalidator) *CreateTravelPlanTool {
	return &CreateTravelPlanTool{store: store, active: active, indexer: indexer}
}

func (t *CreateTravelPlanTool) Name() string { return "create_travel_plan" }

func (t *CreateTravelPlanTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Create a travel plan for a destination, covering activities, accommodation, dining, " +
				"and transport. Only use this when the user explicitly asks to save a travel plan. Organize the " +
				"content with clear sections using bullet points or free text. If the plan is country specific, " +
				"add the country flag emoji to the title.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"destination": map[string]any{
						"type":        "string",
						"description": `The destination for the travel plan (e.g., "Thailand")`,
					},
					"content": map[string]any{
						"type":        "string",
						"description": "The full content of the travel plan",
					},
				},
				"required": []string{"destination", "content"},
			},
		},
	}
}

func (t *CreateTravelPlanTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Destination string `json:"destination"`
		Content     string `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("create_travel_plan args: %w", err)
	}
	if strings.TrimSpace(in.Destination) == "" {
		return "", fmt.Errorf("create_travel_plan: destination is required")
	}

	filename, err := t.store.CreateTravelPlan(in.Destination, in.Content)
	if err != nil {
		return "", err
	}
	if t.active != nil {
		t.active.SetActiveDocument(docstore.KindPlan, filename)
	}
	if t.indexer != nil {
		t.indexer.Invalidate()
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": filename,
		"message":  fmt.Sprintf("Saved travel plan for %s!", in.Destination),
	}), nil
}
