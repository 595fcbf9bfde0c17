package legacy

import (
	"strings"
	"testing"

	"tripmate/internal/docstore"
)

func TestExtractTodoItem(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"add sunscreen to my list", "sunscreen"},
		{"please add travel insurance to the todo", "travel insurance"},
		{"Add Passport Renewal to my checklist", "passport renewal"},
		{"put snorkel gear to the list", "snorkel gear"},
		{"what's the weather in bangkok", ""},
	}
	for _, tc := range cases {
		if got := ExtractTodoItem(tc.message); got != tc.want {
			t.Errorf("ExtractTodoItem(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestExtractBudgetItem(t *testing.T) {
	cases := []struct {
		message    string
		wantName   string
		wantAmount float64
		wantOK     bool
	}{
		{"add hotel $120 to my budget", "hotel", 120, true},
		{"add food 50 to the budget", "food", 50, true},
		{"add scuba lesson $89.50", "scuba lesson", 89.50, true},
		{"Add Train Tickets 42.25", "Train Tickets", 42.25, true},
		{"add something to my budget", "", 0, false},
	}
	for _, tc := range cases {
		name, amount, ok := ExtractBudgetItem(tc.message)
		if ok != tc.wantOK || name != tc.wantName || amount != tc.wantAmount {
			t.Errorf("ExtractBudgetItem(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tc.message, name, amount, ok, tc.wantName, tc.wantAmount, tc.wantOK)
		}
	}
}

func TestRespondAddsTodoItemToLatestList(t *testing.T) {
	store := docstore.New(t.TempDir())
	filename, err := store.CreateTodoList("Packing", []string{"passport"})
	if err != nil {
		t.Fatal(err)
	}

	r := NewResponder(store, nil)
	reply, handled := r.Respond("add sunscreen to my list")
	if !handled {
		t.Fatal("message not handled")
	}
	if reply != "I've added 'sunscreen' to your todo list!" {
		t.Errorf("reply = %q", reply)
	}

	list, err := store.ReadTodoList(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 || list.Items[1].Text != "sunscreen" || list.Items[1].ID != 2 {
		t.Errorf("items = %+v", list.Items)
	}
}

func TestRespondAddsBudgetItem(t *testing.T) {
	store := docstore.New(t.TempDir())
	filename, err := store.CreateBudget("Thailand", nil)
	if err != nil {
		t.Fatal(err)
	}

	r := NewResponder(store, nil)
	reply, handled := r.Respond("add hotel $120 to my budget")
	if !handled {
		t.Fatal("message not handled")
	}
	if reply != "I've added 'hotel' ($120.00) to your budget!" {
		t.Errorf("reply = %q", reply)
	}

	budget, err := store.ReadBudget(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(budget.Items) != 1 || budget.Items[0].Name != "hotel" || budget.Items[0].Amount != 120 {
		t.Errorf("items = %+v", budget.Items)
	}
}

func TestRespondWithoutDocuments(t *testing.T) {
	r := NewResponder(docstore.New(t.TempDir()), nil)

	if reply, handled := r.Respond("add sunscreen to my list"); !handled || !strings.Contains(reply, "don't have any todo lists") {
		t.Errorf("todo reply = %q handled=%v", reply, handled)
	}
	if reply, handled := r.Respond("add hotel $120 to my budget"); !handled || !strings.Contains(reply, "don't have any budget lists") {
		t.Errorf("budget reply = %q handled=%v", reply, handled)
	}
}

func TestRespondBadBudgetFormat(t *testing.T) {
	store := docstore.New(t.TempDir())
	if _, err := store.CreateBudget("Thailand", nil); err != nil {
		t.Fatal(err)
	}

	r := NewResponder(store, nil)
	reply, handled := r.Respond("add something nice to my budget")
	if !handled || !strings.Contains(reply, "couldn't understand the budget item format") {
		t.Errorf("reply = %q handled=%v", reply, handled)
	}
}

func TestRespondIgnoresUnrelatedMessages(t *testing.T) {
	r := NewResponder(docstore.New(t.TempDir()), nil)
	if reply, handled := r.Respond("plan a trip to thailand"); handled {
		t.Errorf("unexpectedly handled: %q", reply)
	}
}
