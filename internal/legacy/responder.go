// Package legacy 提供不依赖模型的关键词/正则兜底应答。
// Package legacy is the keyword-and-regex fallback responder used when the
// model path is unavailable. It only understands "add X to my todo/budget"
// phrasings and is deliberately kept out of the tool-calling contract.
package legacy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tripmate/internal/docstore"
)

const (
	noTodoListsMessage = "You don't have any todo lists yet. Create one first by saying 'create a new todo list'."
	noBudgetsMessage   = "You don't have any budget lists yet. Create one first by saying 'create a new budget'."
	badBudgetFormat    = "I couldn't understand the budget item format. Try something like 'add hotel $120 to my budget'."
)

var todoAddKeywords = []string{"add ", "put "}

// Trailer phrases stripped from the extracted todo item text.
var todoTrailers = []string{
	"to my todo",
	"to the todo",
	"to my list",
	"to the list",
	"to my checklist",
}

// Ordered loosest-last: "add hotel $120 to my budget" through "add food 50".
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)add\s+(.+?)\s+\$([0-9]+(?:\.[0-9]{2})?)\s+to`),
	regexp.MustCompile(`(?i)add\s+(.+?)\s+([0-9]+(?:\.[0-9]{2})?)\s+to`),
	regexp.MustCompile(`(?i)add\s+(.+?)\s+\$([0-9]+(?:\.[0-9]{2})?)`),
	regexp.MustCompile(`(?i)add\s+(.+?)\s+([0-9]+(?:\.[0-9]{2})?)`),
}

// Responder answers simple add-item requests directly against the store.
type Responder struct {
	store  *docstore.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewResponder(store *docstore.Store, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{store: store, logger: logger, now: time.Now}
}

// Respond attempts to handle the message without the model. The second return
// is false when the message does not match any pattern this path understands.
func (r *Responder) Respond(message string) (string, bool) {
	low := strings.ToLower(message)
	if !containsAny(low, todoAddKeywords) {
		return "", false
	}
	if strings.Contains(low, "budget") {
		return r.addBudgetItem(message)
	}
	if strings.Contains(low, "todo") || strings.Contains(low, "checklist") || strings.Contains(low, "list") {
		return r.addTodoItem(message)
	}
	return "", false
}

func (r *Responder) addTodoItem(message string) (string, bool) {
	item := ExtractTodoItem(message)
	if item == "" {
		return "", false
	}
	r.logger.Info("legacy todo add", zap.String("item", item))

	latest, err := r.store.Latest(docstore.KindTodo)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return noTodoListsMessage, true
		}
		return "", false
	}
	list, err := r.store.ReadTodoList(latest)
	if err != nil {
		return "", false
	}
	list.Items = append(list.Items, docstore.TodoItem{
		ID:      len(list.Items) + 1,
		Text:    item,
		Created: r.now(),
	})
	if err := r.store.UpdateTodoList(latest, list.Items); err != nil {
		r.logger.Warn("legacy todo update", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("I've added '%s' to your todo list!", item), true
}

func (r *Responder) addBudgetItem(message string) (string, bool) {
	name, amount, ok := ExtractBudgetItem(message)
	if !ok {
		return badBudgetFormat, true
	}
	r.logger.Info("legacy budget add", zap.String("item", name), zap.Float64("amount", amount))

	latest, err := r.store.Latest(docstore.KindBudget)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return noBudgetsMessage, true
		}
		return "", false
	}
	budget, err := r.store.ReadBudget(latest)
	if err != nil {
		return "", false
	}
	budget.Items = append(budget.Items, docstore.BudgetItem{
		ID:      len(budget.Items) + 1,
		Name:    name,
		Amount:  amount,
		Created: r.now(),
	})
	if err := r.store.UpdateBudget(latest, budget.Items); err != nil {
		r.logger.Warn("legacy budget update", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("I've added '%s' ($%.2f) to your budget!", name, amount), true
}

// ExtractTodoItem pulls the item text that follows an add keyword, with the
// trailing "to my list" style phrases stripped.
func ExtractTodoItem(message string) string {
	text := strings.ToLower(message)
	for _, keyword := range todoAddKeywords {
		idx := strings.Index(text, keyword)
		if idx < 0 {
			continue
		}
		text = strings.TrimSpace(text[idx+len(keyword):])
		for _, trailer := range todoTrailers {
			text = strings.TrimSpace(strings.ReplaceAll(text, trailer, ""))
		}
		return text
	}
	return ""
}

// ExtractBudgetItem parses "add <name> $<amount>" phrasings; ok is false when
// no pattern matches.
func ExtractBudgetItem(message string) (string, float64, bool) {
	for _, pattern := range budgetPatterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		return strings.TrimSpace(m[1]), amount, true
	}
	return "", 0, false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
