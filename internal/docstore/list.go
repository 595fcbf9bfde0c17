package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ListPlans 按修改时间倒序返回旅行计划元信息。
// ListPlans returns travel plan metadata, newest first.
func (s *Store) ListPlans() ([]PlanInfo, error) {
	names, err := s.filesByMtime(KindPlan)
	if err != nil {
		return nil, err
	}
	infos := make([]PlanInfo, 0, len(names))
	for _, name := range names {
		text, err := s.ReadPlan(name)
		if err != nil {
			continue
		}
		dest, created := parsePlanHeader(text)
		info, statErr := os.Stat(filepath.Join(s.Dir(KindPlan), name))
		pi := PlanInfo{Filename: name, Destination: dest}
		if created != "" {
			if t, err := parseHeaderTime(created); err == nil {
				pi.Created = t
			}
		}
		if pi.Created.IsZero() && statErr == nil {
			pi.Created = info.ModTime()
		}
		infos = append(infos, pi)
	}
	return infos, nil
}

// ListTodoLists returns todo list metadata, newest first.
func (s *Store) ListTodoLists() ([]TodoListInfo, error) {
	names, err := s.filesByMtime(KindTodo)
	if err != nil {
		return nil, err
	}
	infos := make([]TodoListInfo, 0, len(names))
	for _, name := range names {
		list, err := s.ReadTodoList(name)
		if err != nil {
			continue
		}
		completed := 0
		for _, item := range list.Items {
			if item.Completed {
				completed++
			}
		}
		infos = append(infos, TodoListInfo{
			Filename:       name,
			Title:          list.Title,
			Created:        list.Created,
			Updated:        list.Updated,
			ItemCount:      len(list.Items),
			CompletedCount: completed,
		})
	}
	return infos, nil
}

// ListBudgets returns budget metadata, newest first.
func (s *Store) ListBudgets() ([]BudgetInfo, error) {
	names, err := s.filesByMtime(KindBudget)
	if err != nil {
		return nil, err
	}
	infos := make([]BudgetInfo, 0, len(names))
	for _, name := range names {
		budget, err := s.ReadBudget(name)
		if err != nil {
			continue
		}
		total := 0.0
		for _, item := range budget.Items {
			total += item.Amount
		}
		infos = append(infos, BudgetInfo{
			Filename:    name,
			Title:       budget.Title,
			Created:     budget.Created,
			Updated:     budget.Updated,
			ItemCount:   len(budget.Items),
			TotalAmount: total,
		})
	}
	return infos, nil
}

// Summary 遍历文档根目录，按所在子目录归类文件名。
// Summary walks the documents root and buckets filenames by their parent directory.
func (s *Store) Summary() (Summary, error) {
	var sum Summary
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch filepath.Base(filepath.Dir(path)) {
		case KindPlan.dir():
			sum.TravelPlans = append(sum.TravelPlans, d.Name())
		case KindTodo.dir():
			sum.TodoLists = append(sum.TodoLists, d.Name())
		case KindBudget.dir():
			sum.Budgets = append(sum.Budgets, d.Name())
		default:
			sum.Other = append(sum.Other, d.Name())
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return Summary{}, fmt.Errorf("walk documents: %w", err)
	}
	sort.Strings(sum.TravelPlans)
	sort.Strings(sum.TodoLists)
	sort.Strings(sum.Budgets)
	sort.Strings(sum.Other)
	return sum, nil
}

// Stats reports totals per kind and the five most recently modified files.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{ByType: map[string]int{}}
	var files []FileStat
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.TotalDocuments++
		stats.ByType[filepath.Base(filepath.Dir(path))]++
		files = append(files, FileStat{
			Name:     d.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return Stats{}, fmt.Errorf("walk documents: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Modified.After(files[j].Modified) })
	if len(files) > 5 {
		files = files[:5]
	}
	stats.RecentFiles = files
	return stats, nil
}

// AllDocuments 返回每个文档的可检索文本，供索引重建使用。
// AllDocuments returns searchable text for every document, used to rebuild the index.
func (s *Store) AllDocuments() ([]SourceDoc, error) {
	var docs []SourceDoc
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		docs = append(docs, SourceDoc{Source: d.Name(), Text: string(data)})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("walk documents: %w", err)
	}
	return docs, nil
}

func parseHeaderTime(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
}

// parsePlanHeader extracts the destination and created line from a plan's text header.
func parsePlanHeader(text string) (destination, created string) {
	lines := strings.SplitN(text, "\n", 3)
	if len(lines) > 0 {
		destination = strings.TrimPrefix(lines[0], "Travel Plan for ")
		destination = strings.TrimSpace(destination)
	}
	if len(lines) > 1 && strings.HasPrefix(lines[1], "Created: ") {
		created = strings.TrimSpace(strings.TrimPrefix(lines[1], "Created: "))
	}
	return destination, created
}
