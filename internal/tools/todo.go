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

// CreateTodoListTool 新建待办清单并将其设为会话的活跃清单。
// CreateTodoListTool creates a todo list and marks it as the session's active list.
type CreateTodoListTool struct {
	store   *docstore.Store
	active  ActiveTracker
	indexer Invalidator
}

// AddTodoItemTool appends items to a named, active, or newest todo list.
type AddTodoItemTool struct {
	store   *docstore.Store
	active  ActiveTracker
	indexer Invalidator
}

func NewCreateTodoListTool(store *docstore.Store, active ActiveTracker, indexer Invalidator) *CreateTodoListTool {
	return &CreateTodoListTool{store: store, active: active, indexer: indexer}
}

func NewAddTodoItemTool(store *docstore.Store, active ActiveTracker, indexer Invalidator) *AddTodoItemTool {
	return &AddTodoItemTool{store: store, active: active, indexer: indexer}
}

func (t *CreateTodoListTool) Name() string { return "create_todo_list" }
func (t *AddTodoItemTool) Name() string    { return "add_todo_item" }

func (t *CreateTodoListTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Create a new todo list with a given title, adding items if the user specifies any. " +
				"Each element of 'items' must be one separate todo item: for 'buy clothes, book hotel' pass " +
				`["buy clothes", "book hotel"]. Never join multiple items into one string.`,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Title of the todo list, formatted with a relevant emoji",
					},
					"items": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Initial todo items, one string per item",
					},
				},
				"required": []string{"title"},
			},
		},
	}
}

func (t *AddTodoItemTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Add items to the specified todo list, or to the list currently being discussed " +
				"when no filename is given. Each element of 'items' must be one separate todo item. " +
				"Items that already exist in the list are not added again.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Todo items to add, one string per item",
					},
					"filename": map[string]any{
						"type":        "string",
						"description": "Filename of the todo list to add to; omit to use the current list",
					},
				},
				"required": []string{"items"},
			},
		},
	}
}

func (t *CreateTodoListTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Title string   `json:"title"`
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("create_todo_list args: %w", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("create_todo_list: title is required")
	}

	filename, err := t.store.CreateTodoList(in.Title, in.Items)
	if err != nil {
		return "", err
	}
	if t.active != nil {
		t.active.SetActiveDocument(docstore.KindTodo, filename)
	}
	if t.indexer != nil {
		t.indexer.Invalidate()
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": filename,
		"message":  fmt.Sprintf("Created a new todo list called '%s'! You can add more items to it at any time.", in.Title),
	}), nil
}

func (t *AddTodoItemTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Items    []string `json:"items"`
		Filename string   `json:"filename"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("add_todo_item args: %w", err)
	}
	if len(in.Items) == 0 {
		return "", fmt.Errorf("add_todo_item: items is required")
	}

	filename, err := resolveTarget(t.store, t.active, docstore.KindTodo, in.Filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return mustJSON(map[string]any{
				"status":  "info",
				"message": "You don't have any todo lists yet. Create one first by saying 'create a new todo list'.",
			}), nil
		}
		return "", err
	}

	list, err := t.store.ReadTodoList(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errorResult("Todo list '%s' not found. Use list_available_documents to see available files.", filename), nil
		}
		return "", err
	}

	// 重复判断为精确、大小写敏感的文本相等。
	// Duplicate detection is exact, case-sensitive text equality.
	existing := make(map[string]bool, len(list.Items))
	for _, item := range list.Items {
		existing[item.Text] = true
	}

	var added, skipped []string
	for _, text := range in.Items {
		if existing[text] {
			skipped = append(skipped, text)
			continue
		}
		list.Items = append(list.Items, docstore.TodoItem{
			ID:      len(list.Items) + 1,
			Text:    text,
			Created: time.Now(),
		})
		existing[text] = true
		added = append(added, text)
	}

	if len(added) > 0 {
		if err := t.store.UpdateTodoList(filename, list.Items); err != nil {
			return "", err
		}
		if t.indexer != nil {
			t.indexer.Invalidate()
		}
	}
	if t.active != nil {
		t.active.SetActiveDocument(docstore.KindTodo, filename)
	}

	var msg strings.Builder
	for _, text := range skipped {
		fmt.Fprintf(&msg, "The item '%s' is already in your todo list, so I didn't add it again. ", text)
	}
	if len(added) == 1 {
		fmt.Fprintf(&msg, "I've added '%s' to your todo list!", added[0])
	} else if len(added) > 1 {
		fmt.Fprintf(&msg, "I've added '%s' to your todo list!", strings.Join(added, "', '"))
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": filename,
		"added":    len(added),
		"skipped":  len(skipped),
		"message":  strings.TrimSpace(msg.String()),
	}), nil
}

// resolveTarget 目标文件解析顺序：显式 filename > 会话活跃文档 > 最新文件。
// resolveTarget resolves the target file: explicit filename, then the session's
// active document, then the newest file of the kind.
func resolveTarget(store *docstore.Store, active ActiveTracker, kind docstore.Kind, filename string) (string, error) {
	if strings.TrimSpace(filename) != "" {
		return strings.TrimSpace(filename), nil
	}
	if active != nil {
		if name, ok := active.ActiveDocument(kind); ok {
			return name, nil
		}
	}
	return store.Latest(kind)
}
