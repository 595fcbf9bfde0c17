package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// ShowDocumentTool 把某个文档标记为需要在前端展示。
// ShowDocumentTool surfaces a document for display in the client.
type ShowDocumentTool struct {
	store  *docstore.Store
	active ActiveTracker
}

func NewShowDocumentTool(store *docstore.Store, active ActiveTracker) *ShowDocumentTool {
	return &ShowDocumentTool{store: store, active: active}
}

func (t *ShowDocumentTool) Name() string { return "show_document" }

func (t *ShowDocumentTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name: t.Name(),
			Description: "Show a travel plan, todo list, or budget to the user. Use this when the user asks to " +
				"see or display a document. Omit filename to show the most recent document of the given type.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"document_type": map[string]any{
						"type":        "string",
						"enum":        []string{"travel_plan", "todo_list", "budget"},
						"description": "Which kind of document to show",
					},
					"filename": map[string]any{
						"type":        "string",
						"description": "Filename of the document to show; omit to use the current one",
					},
				},
				"required": []string{"document_type"},
			},
		},
	}
}

func (t *ShowDocumentTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		DocumentType string `json:"document_type"`
		Filename     string `json:"filename"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("show_document args: %w", err)
	}

	kind := docstore.Kind(strings.TrimSpace(in.DocumentType))
	switch kind {
	case docstore.KindPlan, docstore.KindTodo, docstore.KindBudget:
	default:
		return "", fmt.Errorf("show_document: unknown document_type %q", in.DocumentType)
	}

	filename, err := resolveTarget(t.store, t.active, kind, in.Filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return mustJSON(map[string]any{
				"status":  "info",
				"message": fmt.Sprintf("No %s documents found yet.", in.DocumentType),
			}), nil
		}
		return "", err
	}

	content, err := t.store.ReadDocument(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errorResult("Document '%s' not found. Use list_available_documents to see available files.", filename), nil
		}
		return "", err
	}
	if t.active != nil {
		t.active.SetActiveDocument(kind, filename)
	}
	return mustJSON(map[string]any{
		"status":        "success",
		"document_type": string(kind),
		"filename":      filename,
		"content":       content,
		"message":       fmt.Sprintf("Showing %s", filename),
	}), nil
}
