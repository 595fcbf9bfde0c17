package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
	"tripmate/internal/index"
)

// ListDocumentsTool lists every stored document grouped by type.
type ListDocumentsTool struct {
	store *docstore.Store
}

// ReadDocumentTool reads one document's content by filename.
type ReadDocumentTool struct {
	store *docstore.Store
}

// SearchDocumentsTool 对文档集合做相似度检索。
// SearchDocumentsTool runs a similarity search over the document collection.
type SearchDocumentsTool struct {
	retriever *index.Retriever
}

// DocumentStatsTool summarizes the document collection.
type DocumentStatsTool struct {
	store *docstore.Store
}

func NewListDocumentsTool(store *docstore.Store) *ListDocumentsTool {
	return &ListDocumentsTool{store: store}
}

func NewReadDocumentTool(store *docstore.Store) *ReadDocumentTool {
	return &ReadDocumentTool{store: store}
}

func NewSearchDocumentsTool(retriever *index.Retriever) *SearchDocumentsTool {
	return &SearchDocumentsTool{retriever: retriever}
}

func NewDocumentStatsTool(store *docstore.Store) *DocumentStatsTool {
	return &DocumentStatsTool{store: store}
}

func (t *ListDocumentsTool) Name() string   { return "list_available_documents" }
func (t *ReadDocumentTool) Name() string    { return "read_specific_document" }
func (t *SearchDocumentsTool) Name() string { return "search_documents_by_keyword" }
func (t *DocumentStatsTool) Name() string   { return "get_document_statistics" }

func (t *ListDocumentsTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "List all available documents organized by type. Use this when the user asks what documents are available.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *ReadDocumentTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Read the content of a specific document by filename. Use this when the user asks about a specific document.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filename": map[string]any{
						"type":        "string",
						"description": `The name of the file to read (e.g., "thailand_20251223_095643.txt")`,
					},
				},
				"required": []string{"filename"},
			},
		},
	}
}

func (t *SearchDocumentsTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Search for documents containing specific keywords or phrases. Use this when the user wants to find documents about specific topics.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keyword": map[string]any{
						"type":        "string",
						"description": "The keyword or phrase to search for",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return (default: 5)",
					},
				},
				"required": []string{"keyword"},
			},
		},
	}
}

func (t *DocumentStatsTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Get statistics about the document collection. Use this when the user wants an overview of their documents.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *ListDocumentsTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	summary, err := t.store.Summary()
	if err != nil {
		return errorResult("Error listing documents: %s", err), nil
	}
	return mustJSON(map[string]any{
		"status":    "success",
		"documents": summary,
		"message": fmt.Sprintf("Found documents: %d travel plans, %d budgets, %d todo lists, %d other documents",
			len(summary.TravelPlans), len(summary.Budgets), len(summary.TodoLists), len(summary.Other)),
	}), nil
}

func (t *ReadDocumentTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("read_specific_document args: %w", err)
	}

	content, err := t.store.ReadDocument(in.Filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errorResult("Document '%s' not found. Use list_available_documents to see available files.", in.Filename), nil
		}
		return "", err
	}
	return mustJSON(map[string]any{
		"status":   "success",
		"filename": in.Filename,
		"content":  content,
		"message":  fmt.Sprintf("Successfully read document: %s", in.Filename),
	}), nil
}

func (t *SearchDocumentsTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Keyword    string `json:"keyword"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("search_documents_by_keyword args: %w", err)
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 5
	}

	hits, err := t.retriever.Search(in.Keyword, in.MaxResults)
	if err != nil {
		return errorResult("Error searching documents: %s", err), nil
	}
	if len(hits) == 0 {
		return mustJSON(map[string]any{
			"status":  "info",
			"keyword": in.Keyword,
			"results": []any{},
			"message": fmt.Sprintf("No documents found containing '%s'", in.Keyword),
		}), nil
	}

	type searchResult struct {
		Filename       string `json:"filename"`
		ContentSnippet string `json:"content_snippet"`
	}
	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{
			Filename:       h.Source,
			ContentSnippet: snippet(h.Text, 200),
		})
	}
	return mustJSON(map[string]any{
		"status":  "success",
		"keyword": in.Keyword,
		"results": results,
		"message": fmt.Sprintf("Found %d documents containing '%s'", len(results), in.Keyword),
	}), nil
}

func (t *DocumentStatsTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return errorResult("Error getting statistics: %s", err), nil
	}
	return mustJSON(map[string]any{
		"status":          "success",
		"total_documents": stats.TotalDocuments,
		"by_type":         stats.ByType,
		"recent_files":    stats.RecentFiles,
		"message":         fmt.Sprintf("Document collection contains %d total files", stats.TotalDocuments),
	}), nil
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
