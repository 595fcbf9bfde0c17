package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response   string   `json:"response"`
	ToolsUsed  []string `json:"tools_used"`
	ShowPlan   string   `json:"show_plan,omitempty"`
	ShowTodo   string   `json:"show_todo,omitempty"`
	ShowBudget string   `json:"show_budget,omitempty"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := s.engine.HandleChat(r.Context(), s.sess, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.respondJSON(w, http.StatusOK, chatResponse{
		Response:   reply.Answer,
		ToolsUsed:  reply.ToolsUsed,
		ShowPlan:   reply.ShowPlan,
		ShowTodo:   reply.ShowTodo,
		ShowBudget: reply.ShowBudget,
	})
}

func (s *Server) getHistory(w http.ResponseWriter, _ *http.Request) {
	history := s.sess.History()
	if history == nil {
		history = []chat.Turn{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) clearHistory(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.ResetHistory(s.sess); err != nil {
		s.logger.Error("clear history", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "History cleared successfully"})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Title   string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "Content is required")
		return
	}

	filename, err := s.store.SaveUpload(req.Title, req.Content)
	if err != nil {
		s.logger.Error("save upload", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// New content must become searchable.
	s.retriever.Invalidate()

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Document uploaded successfully",
		"filename": filename,
	})
}

func (s *Server) listAllDocuments(w http.ResponseWriter, _ *http.Request) {
	summary, err := s.store.Summary()
	if err != nil {
		s.logger.Error("document summary", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		s.logger.Error("document stats", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"summary":    summary,
		"statistics": stats,
		"message":    "Documents listed successfully",
	})
}

func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		s.respondError(w, http.StatusBadRequest, "Keyword is required")
		return
	}

	context, err := s.retriever.Context(req.Keyword)
	if err != nil {
		s.logger.Error("document search", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"keyword": req.Keyword,
		"context": context,
		"message": "Search completed for: " + req.Keyword,
	})
}

func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	content, err := s.store.ReadDocument(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Document not found")
			return
		}
		s.logger.Error("read document", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"filename": filename,
		"content":  content,
		"message":  "Document read successfully: " + filename,
	})
}

func (s *Server) listTravelPlans(w http.ResponseWriter, _ *http.Request) {
	plans, err := s.store.ListPlans()
	if err != nil {
		s.logger.Error("list travel plans", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if plans == nil {
		plans = []docstore.PlanInfo{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) getTravelPlan(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	content, err := s.store.ReadPlan(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Travel plan not found")
			return
		}
		s.logger.Error("read travel plan", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"filename":    filename,
		"destination": planDestination(filename, content),
		"content":     content,
	})
}

func (s *Server) deleteTravelPlan(w http.ResponseWriter, r *http.Request) {
	s.deleteDocument(w, r, docstore.KindPlan, "Travel plan")
}

func (s *Server) listTodoLists(w http.ResponseWriter, _ *http.Request) {
	lists, err := s.store.ListTodoLists()
	if err != nil {
		s.logger.Error("list todo lists", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if lists == nil {
		lists = []docstore.TodoListInfo{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

func (s *Server) getTodoList(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	list, err := s.store.ReadTodoList(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Todo list not found")
			return
		}
		s.logger.Error("read todo list", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"title":    list.Title,
		"created":  list.Created,
		"updated":  list.Updated,
		"items":    list.Items,
	})
}

func (s *Server) updateTodoList(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	var req struct {
		Items []docstore.TodoItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.store.UpdateTodoList(filename, req.Items); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Todo list not found")
			return
		}
		s.logger.Error("update todo list", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Todo list updated successfully",
		"filename": filename,
	})
}

func (s *Server) deleteTodoList(w http.ResponseWriter, r *http.Request) {
	s.deleteDocument(w, r, docstore.KindTodo, "Todo list")
}

func (s *Server) listBudgets(w http.ResponseWriter, _ *http.Request) {
	budgets, err := s.store.ListBudgets()
	if err != nil {
		s.logger.Error("list budgets", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if budgets == nil {
		budgets = []docstore.BudgetInfo{}
	}
	// The web client reads this key as-is; renaming it breaks the budgets view.
	s.respondJSON(w, http.StatusOK, map[string]any{"documents/budgets": budgets})
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	budget, err := s.store.ReadBudget(filename)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Budget not found")
			return
		}
		s.logger.Error("read budget", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"title":    budget.Title,
		"created":  budget.Created,
		"updated":  budget.Updated,
		"items":    budget.Items,
	})
}

func (s *Server) updateBudget(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	var req struct {
		Items []docstore.BudgetItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.store.UpdateBudget(filename, req.Items); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Budget not found")
			return
		}
		s.logger.Error("update budget", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Budget updated successfully",
		"filename": filename,
	})
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	s.deleteDocument(w, r, docstore.KindBudget, "Budget")
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request, kind docstore.Kind, label string) {
	filename := chi.URLParam(r, "filename")
	if err := s.store.Delete(kind, filename); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, label+" not found")
			return
		}
		s.logger.Error("delete document", zap.String("kind", string(kind)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.retriever.Invalidate()
	s.respondJSON(w, http.StatusOK, map[string]string{"message": label + " deleted successfully"})
}

// planDestination prefers the document header, falling back to the filename's
// leading slug token.
func planDestination(filename, content string) string {
	if rest, ok := strings.CutPrefix(content, "Travel Plan for "); ok {
		if line, _, found := strings.Cut(rest, "\n"); found {
			return strings.TrimSpace(line)
		}
		return strings.TrimSpace(rest)
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	dest, _, _ := strings.Cut(base, "_")
	if dest == "" {
		return ""
	}
	runes := []rune(dest)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
