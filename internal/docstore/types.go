package docstore

import "time"

// Kind 文档类别 / Kind identifies a document category.
type Kind string

const (
	KindPlan   Kind = "travel_plan"
	KindTodo   Kind = "todo_list"
	KindBudget Kind = "budget"
)

// Dir name and file extension for each kind under the documents root.
func (k Kind) dir() string {
	switch k {
	case KindPlan:
		return "travel_plans"
	case KindTodo:
		return "todo_lists"
	case KindBudget:
		return "budgets"
	}
	return ""
}

func (k Kind) ext() string {
	if k == KindPlan {
		return ".txt"
	}
	return ".json"
}

// TodoItem 待办条目；ID 在追加时按 len(items)+1 赋值。
// TodoItem is one todo entry; IDs are assigned as len(items)+1 at append time.
type TodoItem struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Created   time.Time `json:"created"`
}

// BudgetItem 预算条目 / BudgetItem is one budget expense entry.
type BudgetItem struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Amount  float64   `json:"amount"`
	Created time.Time `json:"created"`
}

// TodoList is the on-disk JSON form of a todo list document.
type TodoList struct {
	Title   string     `json:"title"`
	Created time.Time  `json:"created"`
	Updated time.Time  `json:"updated"`
	Items   []TodoItem `json:"items"`
}

// Budget is the on-disk JSON form of a budget document.
type Budget struct {
	Title   string       `json:"title"`
	Created time.Time    `json:"created"`
	Updated time.Time    `json:"updated"`
	Items   []BudgetItem `json:"items"`
}

// BudgetEntry 创建预算时的条目输入（尚未分配 ID）。
// BudgetEntry is item input at budget-creation time, before IDs are assigned.
type BudgetEntry struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// PlanInfo 旅行计划列表项 / PlanInfo is listing metadata for a travel plan.
type PlanInfo struct {
	Filename    string    `json:"filename"`
	Destination string    `json:"destination"`
	Created     time.Time `json:"created"`
}

// TodoListInfo is listing metadata for a todo list.
type TodoListInfo struct {
	Filename       string    `json:"filename"`
	Title          string    `json:"title"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
	ItemCount      int       `json:"item_count"`
	CompletedCount int       `json:"completed_count"`
}

// BudgetInfo is listing metadata for a budget.
type BudgetInfo struct {
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	ItemCount   int       `json:"item_count"`
	TotalAmount float64   `json:"total_amount"`
}

// Summary 按类别归类的文件名清单 / Summary groups filenames by category.
type Summary struct {
	TravelPlans []string `json:"travel_plans"`
	TodoLists   []string `json:"todo_lists"`
	Budgets     []string `json:"budgets"`
	Other       []string `json:"other"`
}

// FileStat 最近文件的元信息 / FileStat is metadata for a recently modified file.
type FileStat struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Stats 文档集合统计 / Stats summarizes the document collection.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	ByType         map[string]int `json:"by_type"`
	RecentFiles    []FileStat     `json:"recent_files"`
}

// SourceDoc 供检索索引重建使用的 (正文, 来源) 对。
// SourceDoc is a (text, source filename) pair fed to the retrieval index on rebuild.
type SourceDoc struct {
	Source string
	Text   string
}
