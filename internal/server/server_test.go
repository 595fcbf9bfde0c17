package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripmate/internal/agent"
	"tripmate/internal/chat"
	"tripmate/internal/contextmgr"
	"tripmate/internal/docstore"
	"tripmate/internal/index"
	"tripmate/internal/provider"
	"tripmate/internal/session"
	"tripmate/internal/tools"
)

// scriptedProvider replays canned model responses for handler tests.
type scriptedProvider struct {
	responses []provider.ChatResponse
}

func (s *scriptedProvider) Chat(context.Context, provider.ChatRequest) (provider.ChatResponse, error) {
	if len(s.responses) == 0 {
		return provider.ChatResponse{}, fmt.Errorf("%w: script exhausted", provider.ErrModelUnavailable)
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}
func (s *scriptedProvider) Name() string          { return "scripted" }
func (s *scriptedProvider) CurrentModel() string  { return "test-model" }
func (s *scriptedProvider) SetModel(string) error { return nil }

func finalAnswer(answer string) provider.ChatResponse {
	args, _ := json.Marshal(map[string]any{"answer": answer, "tools_used": []string{}})
	return provider.ChatResponse{
		ToolCalls: []chat.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: chat.ToolCallFunction{Name: "final_answer", Arguments: string(args)},
		}},
	}
}

func newTestServer(t *testing.T, responses ...provider.ChatResponse) (http.Handler, *docstore.Store) {
	t.Helper()
	store := docstore.New(t.TempDir())
	retriever := index.NewRetriever(store, index.NewBleveSearcher(), 0.7, 5)
	assembler := contextmgr.New(retriever, store, 5)

	factory := func(active tools.ActiveTracker) *tools.Registry {
		return tools.NewRegistry(
			tools.NewCreateTodoListTool(store, active, retriever),
			tools.NewCreateBudgetTool(store, active, retriever),
			tools.NewFinalAnswerTool(),
		)
	}
	engine := agent.NewEngine(&scriptedProvider{responses: responses}, assembler, factory, nil, 3, nil)
	srv := New(engine, store, retriever, session.New(), "http://localhost:3000", nil)
	return srv.Routes(), store
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestChatReturnsResponse(t *testing.T) {
	h, _ := newTestServer(t, finalAnswer("Bangkok sounds great!"))

	rec := doRequest(t, h, http.MethodPost, "/chat", map[string]string{"message": "plan a trip"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["response"] != "Bangkok sounds great!" {
		t.Errorf("response = %v", body["response"])
	}

	// The turn lands in history.
	rec = doRequest(t, h, http.MethodGet, "/history", nil)
	history := decodeBody(t, rec)["history"].([]any)
	if len(history) != 1 {
		t.Fatalf("history = %v", history)
	}
	turn := history[0].(map[string]any)
	if turn["user"] != "plan a trip" || turn["assistant"] != "Bangkok sounds great!" {
		t.Errorf("turn = %v", turn)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodPost, "/chat", map[string]string{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Message is required" {
		t.Errorf("body = %v", body)
	}
}

func TestChatDegradesWhenModelUnavailable(t *testing.T) {
	h, _ := newTestServer(t) // no scripted responses: every call fails

	rec := doRequest(t, h, http.MethodPost, "/chat", map[string]string{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["response"] != agent.FallbackAnswer {
		t.Errorf("response = %v", body["response"])
	}
}

func TestClearHistory(t *testing.T) {
	h, _ := newTestServer(t, finalAnswer("ok"))

	doRequest(t, h, http.MethodPost, "/chat", map[string]string{"message": "hello"})
	rec := doRequest(t, h, http.MethodDelete, "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "History cleared successfully" {
		t.Errorf("body = %v", body)
	}

	rec = doRequest(t, h, http.MethodGet, "/history", nil)
	if history := decodeBody(t, rec)["history"].([]any); len(history) != 0 {
		t.Errorf("history = %v", history)
	}
}

func TestUploadDocument(t *testing.T) {
	h, store := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/documents", map[string]string{
		"title":   "Visa Notes",
		"content": "Thailand visa on arrival is 30 days.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	filename, _ := body["filename"].(string)
	if body["message"] != "Document uploaded successfully" || filename == "" {
		t.Fatalf("body = %v", body)
	}

	content, err := store.ReadDocument(filename)
	if err != nil {
		t.Fatal(err)
	}
	if content != "Thailand visa on arrival is 30 days." {
		t.Errorf("content = %q", content)
	}
}

func TestUploadDocumentRequiresContent(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodPost, "/documents", map[string]string{"title": "Empty"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTravelPlanEndpoints(t *testing.T) {
	h, store := newTestServer(t)
	filename, err := store.CreateTravelPlan("Thailand", "Day 1: Bangkok")
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/travel-plans", nil)
	plans := decodeBody(t, rec)["plans"].([]any)
	if len(plans) != 1 {
		t.Fatalf("plans = %v", plans)
	}

	rec = doRequest(t, h, http.MethodGet, "/travel-plans/"+filename, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["destination"] != "Thailand" {
		t.Errorf("destination = %v", body["destination"])
	}

	rec = doRequest(t, h, http.MethodDelete, "/travel-plans/"+filename, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/travel-plans/"+filename, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Travel plan not found" {
		t.Errorf("body = %v", body)
	}
}

func TestTodoListEndpoints(t *testing.T) {
	h, store := newTestServer(t)
	filename, err := store.CreateTodoList("Packing", []string{"passport"})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/todo-lists", nil)
	lists := decodeBody(t, rec)["lists"].([]any)
	if len(lists) != 1 {
		t.Fatalf("lists = %v", lists)
	}
	info := lists[0].(map[string]any)
	if info["item_count"] != float64(1) {
		t.Errorf("item_count = %v", info["item_count"])
	}

	rec = doRequest(t, h, http.MethodPut, "/todo-lists/"+filename, map[string]any{
		"items": []map[string]any{
			{"id": 1, "text": "passport", "completed": true},
			{"id": 2, "text": "sunscreen", "completed": false},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d body = %s", rec.Code, rec.Body.String())
	}

	list, err := store.ReadTodoList(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 || !list.Items[0].Completed {
		t.Errorf("items = %+v", list.Items)
	}

	rec = doRequest(t, h, http.MethodPut, "/todo-lists/missing.json", map[string]any{"items": []any{}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing put status = %d", rec.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	h, store := newTestServer(t)
	filename, err := store.CreateBudget("Thailand", []docstore.BudgetEntry{{Name: "hotel", Amount: 500}})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/budgets", nil)
	body := decodeBody(t, rec)
	budgets, ok := body["documents/budgets"].([]any)
	if !ok || len(budgets) != 1 {
		t.Fatalf("body = %v", body)
	}
	info := budgets[0].(map[string]any)
	if info["total_amount"] != float64(500) {
		t.Errorf("total_amount = %v", info["total_amount"])
	}

	rec = doRequest(t, h, http.MethodGet, "/budgets/"+filename, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodDelete, "/budgets/"+filename, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodDelete, "/budgets/"+filename, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestSearchDocuments(t *testing.T) {
	h, store := newTestServer(t)
	if _, err := store.CreateTravelPlan("Thailand", "Visit Bangkok temples and markets"); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodPost, "/documents/search", map[string]string{"keyword": "Bangkok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["keyword"] != "Bangkok" {
		t.Errorf("keyword = %v", body["keyword"])
	}
	if body["context"] == "" {
		t.Error("empty context")
	}

	rec = doRequest(t, h, http.MethodPost, "/documents/search", map[string]string{"keyword": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty keyword status = %d", rec.Code)
	}
}

func TestReadDocumentNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/documents/read/nope.txt", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Document not found" {
		t.Errorf("body = %v", body)
	}
}

func TestListAllDocuments(t *testing.T) {
	h, store := newTestServer(t)
	if _, err := store.CreateTodoList("Packing", []string{"passport"}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/documents/list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]any)
	if lists := summary["todo_lists"].([]any); len(lists) != 1 {
		t.Errorf("summary = %v", summary)
	}
	stats := body["statistics"].(map[string]any)
	if stats["total_documents"] != float64(1) {
		t.Errorf("statistics = %v", stats)
	}
}
