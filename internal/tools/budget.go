package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// CreateBudgetTool 新建预算并设为会话的活跃预算。
// CreateBudgetTool creates a budget and marks it as the session's active budget.
type CreateBudgetTool struct {
	store   *docstore.Store
	active  ActiveTracker
	indexer Invalidator
}

// AddBudgetItemTool appends an expense to a named, active, or newest budget.
type AddBudgetItemTool struct {
	store   *docstore.Store
	active  ActiveTracker
	indexer Invalidator
}

func NewCreateBudgetTool(store *docstore.Store, active ActiveTracker, indexer Invalidator) *CreateBudgetTool {
	return &CreateBudgetTool{store: store, active: active, indexer: indexer}
}

func NewAddBudgetItemTool(store *docstore.Store, active ActiveTracker, indexer Invalidator) *AddBudgetItemTool {
	return &AddBudgetItemTool{store: store, active: active, indexer: indexer}
}

func (t *CreateBudgetTool) Name() string  { return "create_budget" }
func (t *AddBudgetItemTool) Name() string { return "add_budget_item" }

func (t *CreateBudgetTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Create a new budget with a given title, adding initial expense entries if the user " +
				"specifies any. Use this when the user wants to start tracking travel expenses.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Title of the budget",
					},
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":   map[string]any{"type": "string"},
								"amount": map[string]any{"type": "number"},
							},
							"required": []string{"name", "amount"},
						},
						"description": "Initial expenses, each with a name and amount",
					},
				},
				"required": []string{"title"},
			},
		},
	}
}

func (t *AddBudgetItemTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Add an expense to the specified budget, or to the budget currently being discussed " +
				"when no filename is given.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Name of the expense",
					},
					"amount": map[string]any{
						"type":        "number",
						"description": "Amount of the expense",
					},
					"filename": map[string]any{
						"type":        "string",
						"description": "Filename of the budget to add to; omit to use the current budget",
					},
				},
				"required": []string{"name", "amount"},
			},
		},
	}
}

func (t *CreateBudgetTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Title string                 `json:"title"`
		Items []docstore.BudgetEntry `json:"items"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("create_budget args: %w", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("create_budget: title is required")
	}
	for _, item := range in.Items {
		if item.Amount < 0 {
			return "", fmt.Errorf("create_budget: amount must be non-negative, got %v for %q", item.Amount, item.Name)
		}
	}

	filename, err := t.store.CreateBudget(in.Title, in.Items)
	if err != nil {
		return "", err
	}
	if t.active != nil {
		t.active.SetActiveDocument(docstore.KindBudget, filename)
	}
	if t.indexer != nil {
		t.indexer.Invalidate()
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": filename,
		"message":  fmt.Sprintf("Created a new budget called '%s'! You can add expenses to it now.", in.Title),
	}), nil
}

func (t *AddBudgetItemTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Name     string  `json:"name"`
		Amount   float64 `json:"amount"`
		Filename string  `json:"filename"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("add_budget_item args: %w", err)
	}
	if strings.TrimSpace(in.Name) == "" {
		return "", fmt.Errorf("add_budget_item: name is required")
	}
	if in.Amount < 0 {
		return "", fmt.Errorf("add_budget_item: amount must be non-negative, got %v", in.Amount)
	}

	filename, err := resolveTarget(t.store, t.active, docstore.KindBudget, in.Filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return mustJSON(map[string]any{
				"status":  "info",
				"message": "No budgets found. Create one first!",
			}), nil
		}
		return "", err
	}

	budget, err := t.store.ReadBudget(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errorResult("Budget '%s' not found. Use list_available_documents to see available files.", filename), nil
		}
		return "", err
	}

	budget.Items = append(budget.Items, docstore.BudgetItem{
		ID:      len(budget.Items) + 1,
		Name:    in.Name,
		Amount:  in.Amount,
		Created: time.Now(),
	})
	if err := t.store.UpdateBudget(filename, budget.Items); err != nil {
		return "", err
	}
	if t.active != nil {
		t.active.SetActiveDocument(docstore.KindBudget, filename)
	}
	if t.indexer != nil {
		t.indexer.Invalidate()
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": filename,
		"message":  fmt.Sprintf("Added '%s' ($%.2f) to your budget!", in.Name, in.Amount),
	}), nil
}
