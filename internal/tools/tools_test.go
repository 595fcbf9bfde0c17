package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tripmate/internal/docstore"
)

type fakeTracker struct {
	docs map[docstore.Kind]string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{docs: map[docstore.Kind]string{}}
}

func (f *fakeTracker) ActiveDocument(kind docstore.Kind) (string, bool) {
	name, ok := f.docs[kind]
	return name, ok
}

func (f *fakeTracker) SetActiveDocument(kind docstore.Kind, filename string) {
	f.docs[kind] = filename
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

func decodeResult(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, raw)
	}
	return out
}

func TestCreateTodoListTool(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()
	inv := &fakeInvalidator{}
	tool := NewCreateTodoListTool(store, tracker, inv)

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"title":"Thailand Trip","items":["Book flights","Get visa"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "success" {
		t.Errorf("status = %v", res["status"])
	}
	filename, _ := res["filename"].(string)
	if filename == "" {
		t.Fatal("no filename in result")
	}

	list, err := store.ReadTodoList(filename)
	if err != nil {
		t.Fatalf("ReadTodoList: %v", err)
	}
	if len(list.Items) != 2 || list.Items[0].ID != 1 || list.Items[1].ID != 2 {
		t.Errorf("items = %+v", list.Items)
	}
	if active, _ := tracker.ActiveDocument(docstore.KindTodo); active != filename {
		t.Errorf("active = %q, want %q", active, filename)
	}
	if inv.calls != 1 {
		t.Errorf("invalidations = %d", inv.calls)
	}
}

func TestCreateTodoListToolRequiresTitle(t *testing.T) {
	tool := NewCreateTodoListTool(docstore.New(t.TempDir()), nil, nil)
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"items":["x"]}`)); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestAddTodoItemDedup(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()
	inv := &fakeInvalidator{}

	filename, err := store.CreateTodoList("Trip", []string{"Book flights"})
	if err != nil {
		t.Fatal(err)
	}
	tool := NewAddTodoItemTool(store, tracker, inv)

	// Exact duplicate is skipped, case variant is added.
	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"items":["Book flights","book flights","Get visa"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["added"] != float64(2) || res["skipped"] != float64(1) {
		t.Errorf("added=%v skipped=%v", res["added"], res["skipped"])
	}
	msg, _ := res["message"].(string)
	if !strings.Contains(msg, "already in your todo list") {
		t.Errorf("message = %q", msg)
	}

	list, err := store.ReadTodoList(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(list.Items))
	}
	if list.Items[2].ID != 3 {
		t.Errorf("last id = %d", list.Items[2].ID)
	}

	// Re-adding the same items changes nothing.
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"items":["Get visa"]}`)); err != nil {
		t.Fatal(err)
	}
	list, _ = store.ReadTodoList(filename)
	if len(list.Items) != 3 {
		t.Errorf("items after re-add = %d, want 3", len(list.Items))
	}
}

func TestAddTodoItemNoListsYet(t *testing.T) {
	tool := NewAddTodoItemTool(docstore.New(t.TempDir()), newFakeTracker(), nil)
	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"items":["x"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "info" {
		t.Errorf("status = %v", res["status"])
	}
	if !strings.Contains(res["message"].(string), "don't have any todo lists yet") {
		t.Errorf("message = %v", res["message"])
	}
}

func TestAddTodoItemPrefersActiveOverLatest(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()

	first, err := store.CreateTodoList("First", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateTodoList("Second", []string{"b"}); err != nil {
		t.Fatal(err)
	}
	tracker.SetActiveDocument(docstore.KindTodo, first)

	tool := NewAddTodoItemTool(store, tracker, nil)
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"items":["c"]}`)); err != nil {
		t.Fatal(err)
	}

	list, err := store.ReadTodoList(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Errorf("active list items = %d, want 2", len(list.Items))
	}
}

func TestCreateTravelPlanTool(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()
	tool := NewCreateTravelPlanTool(store, tracker, &fakeInvalidator{})

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"destination":"Thailand","content":"Day 1: Bangkok"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "success" {
		t.Errorf("status = %v", res["status"])
	}
	filename := res["filename"].(string)
	text, err := store.ReadPlan(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "Travel Plan for Thailand\n") {
		t.Errorf("plan header missing:\n%s", text)
	}
	if active, _ := tracker.ActiveDocument(docstore.KindPlan); active != filename {
		t.Errorf("active plan = %q", active)
	}
}

func TestBudgetTools(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()
	inv := &fakeInvalidator{}

	create := NewCreateBudgetTool(store, tracker, inv)
	add := NewAddBudgetItemTool(store, tracker, inv)

	// Adding before any budget exists is an informational result, not an error.
	raw, err := add.Execute(context.Background(), json.RawMessage(`{"name":"Flights","amount":800}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res := decodeResult(t, raw); res["status"] != "info" {
		t.Errorf("status = %v", res["status"])
	}

	raw, err = create.Execute(context.Background(), json.RawMessage(`{"title":"Thailand","items":[{"name":"Hotel","amount":450.5}]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	filename := decodeResult(t, raw)["filename"].(string)

	raw, err = add.Execute(context.Background(), json.RawMessage(`{"name":"Flights","amount":800}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if !strings.Contains(res["message"].(string), "Added 'Flights' ($800.00)") {
		t.Errorf("message = %v", res["message"])
	}

	budget, err := store.ReadBudget(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(budget.Items) != 2 || budget.Items[1].ID != 2 {
		t.Errorf("items = %+v", budget.Items)
	}
	if budget.Items[1].Created.IsZero() {
		t.Error("appended item has zero created timestamp")
	}
}

func TestBudgetToolsRejectNegativeAmounts(t *testing.T) {
	store := docstore.New(t.TempDir())
	create := NewCreateBudgetTool(store, nil, nil)
	add := NewAddBudgetItemTool(store, nil, nil)

	if _, err := create.Execute(context.Background(), json.RawMessage(`{"title":"Trip","items":[{"name":"Refund","amount":-5}]}`)); err == nil {
		t.Error("create_budget accepted a negative amount")
	}

	if _, err := store.CreateBudget("Trip", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := add.Execute(context.Background(), json.RawMessage(`{"name":"Refund","amount":-1}`)); err == nil {
		t.Error("add_budget_item accepted a negative amount")
	}
}

func TestDocumentTools(t *testing.T) {
	store := docstore.New(t.TempDir())
	if _, err := store.CreateTravelPlan("Thailand", "Visit Bangkok"); err != nil {
		t.Fatal(err)
	}
	planName, err := store.Latest(docstore.KindPlan)
	if err != nil {
		t.Fatal(err)
	}

	list := NewListDocumentsTool(store)
	raw, err := list.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	res := decodeResult(t, raw)
	if !strings.Contains(res["message"].(string), "1 travel plans") {
		t.Errorf("message = %v", res["message"])
	}

	read := NewReadDocumentTool(store)
	raw, err = read.Execute(context.Background(), json.RawMessage(`{"filename":"`+planName+`"}`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	res = decodeResult(t, raw)
	if !strings.Contains(res["content"].(string), "Visit Bangkok") {
		t.Errorf("content = %v", res["content"])
	}

	raw, err = read.Execute(context.Background(), json.RawMessage(`{"filename":"missing.txt"}`))
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	res = decodeResult(t, raw)
	if res["status"] != "error" || !strings.Contains(res["message"].(string), "not found") {
		t.Errorf("missing doc result = %v", res)
	}

	stats := NewDocumentStatsTool(store)
	raw, err = stats.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	res = decodeResult(t, raw)
	if res["total_documents"] != float64(1) {
		t.Errorf("total = %v", res["total_documents"])
	}
}

func TestShowDocumentTool(t *testing.T) {
	store := docstore.New(t.TempDir())
	tracker := newFakeTracker()
	tool := NewShowDocumentTool(store, tracker)

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"document_type":"budget"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res := decodeResult(t, raw); res["status"] != "info" {
		t.Errorf("status = %v", res["status"])
	}

	filename, err := store.CreateBudget("Thailand", nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err = tool.Execute(context.Background(), json.RawMessage(`{"document_type":"budget"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "success" || res["filename"] != filename {
		t.Errorf("result = %v", res)
	}
	if active, _ := tracker.ActiveDocument(docstore.KindBudget); active != filename {
		t.Errorf("active = %q", active)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"document_type":"diary"}`)); err == nil {
		t.Error("expected error for unknown document_type")
	}
}

func TestFinalAnswerTool(t *testing.T) {
	tool := NewFinalAnswerTool()
	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"answer":"Here is your plan.","tools_used":["create_travel_plan"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["answer"] != "Here is your plan." {
		t.Errorf("answer = %v", res["answer"])
	}

	fa, err := ParseFinalAnswer(json.RawMessage(`{"answer":"hi"}`))
	if err != nil {
		t.Fatalf("ParseFinalAnswer: %v", err)
	}
	if fa.ToolsUsed == nil || len(fa.ToolsUsed) != 0 {
		t.Errorf("tools_used = %v", fa.ToolsUsed)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry(NewFinalAnswerTool())
	if _, err := reg.Execute(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
	if !reg.Has(FinalAnswerName) {
		t.Error("final_answer missing from registry")
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	store := docstore.New(t.TempDir())
	reg := NewRegistry(
		NewFinalAnswerTool(),
		NewCreateTodoListTool(store, nil, nil),
		NewListDocumentsTool(store),
	)
	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("defs = %d", len(defs))
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Function.Name > defs[i].Function.Name {
			t.Errorf("definitions not sorted: %q > %q", defs[i-1].Function.Name, defs[i].Function.Name)
		}
	}
}
