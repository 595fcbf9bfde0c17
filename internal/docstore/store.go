package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound 目标文档不存在；这是正常返回值而非故障。
// ErrNotFound signals an absent document; callers treat it as a normal outcome.
var ErrNotFound = errors.New("document not found")

// Store 基于文件系统的文档存储，按类别分目录存放。
// Store is a file-backed document store with one directory per document kind.
type Store struct {
	root string
	now  func() time.Time
}

func New(root string) *Store {
	return &Store{root: strings.TrimSpace(root), now: time.Now}
}

// Root returns the documents root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding documents of the given kind.
func (s *Store) Dir(kind Kind) string {
	return filepath.Join(s.root, kind.dir())
}

// Filename 由标题 slug 和创建时间戳构成，创建后不再变化。
// Filenames combine a title slug with the creation timestamp and never change afterwards.
func (s *Store) filename(kind Kind, title string) string {
	return Slug(title) + "_" + s.now().Format("20060102_150405") + kind.ext()
}

// Slug normalizes a title into its filesystem-safe form.
func Slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}

// CreateTodoList writes a new todo list with items numbered 1..n and returns its filename.
func (s *Store) CreateTodoList(title string, items []string) (string, error) {
	now := s.now()
	formatted := make([]TodoItem, 0, len(items))
	for i, text := range items {
		formatted = append(formatted, TodoItem{
			ID:      i + 1,
			Text:    text,
			Created: now,
		})
	}
	list := TodoList{Title: title, Created: now, Updated: now, Items: formatted}
	name := s.filename(KindTodo, title)
	if err := s.writeJSON(KindTodo, name, list); err != nil {
		return "", err
	}
	return name, nil
}

// CreateBudget writes a new budget with entries numbered 1..n and returns its filename.
func (s *Store) CreateBudget(title string, entries []BudgetEntry) (string, error) {
	now := s.now()
	items := make([]BudgetItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, BudgetItem{
			ID:      i + 1,
			Name:    e.Name,
			Amount:  e.Amount,
			Created: now,
		})
	}
	budget := Budget{Title: title, Created: now, Updated: now, Items: items}
	name := s.filename(KindBudget, title)
	if err := s.writeJSON(KindBudget, name, budget); err != nil {
		return "", err
	}
	return name, nil
}

// CreateTravelPlan writes a plain-text plan with a three-line header and returns its filename.
func (s *Store) CreateTravelPlan(destination, content string) (string, error) {
	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Travel Plan for %s\n", destination)
	fmt.Fprintf(&b, "Created: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	b.WriteString(content)

	name := s.filename(KindPlan, destination)
	if err := s.writeFile(KindPlan, name, []byte(b.String())); err != nil {
		return "", err
	}
	return name, nil
}

// UpdateTodoList 整体替换条目集合并刷新 updated 时间戳。
// UpdateTodoList replaces the item collection wholesale and bumps the updated timestamp.
// Returns ErrNotFound when the filename does not resolve to an existing list.
func (s *Store) UpdateTodoList(filename string, items []TodoItem) error {
	list, err := s.ReadTodoList(filename)
	if err != nil {
		return err
	}
	list.Items = items
	list.Updated = s.now()
	return s.writeJSON(KindTodo, filename, list)
}

// UpdateBudget replaces a budget's items wholesale; ErrNotFound when absent.
func (s *Store) UpdateBudget(filename string, items []BudgetItem) error {
	budget, err := s.ReadBudget(filename)
	if err != nil {
		return err
	}
	budget.Items = items
	budget.Updated = s.now()
	return s.writeJSON(KindBudget, filename, budget)
}

// ReadTodoList parses a stored todo list; ErrNotFound when absent.
func (s *Store) ReadTodoList(filename string) (TodoList, error) {
	var list TodoList
	if err := s.readJSON(KindTodo, filename, &list); err != nil {
		return TodoList{}, err
	}
	return list, nil
}

// ReadBudget parses a stored budget; ErrNotFound when absent.
func (s *Store) ReadBudget(filename string) (Budget, error) {
	var budget Budget
	if err := s.readJSON(KindBudget, filename, &budget); err != nil {
		return Budget{}, err
	}
	return budget, nil
}

// ReadPlan returns the raw text of a travel plan; ErrNotFound when absent.
func (s *Store) ReadPlan(filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(KindPlan), filepath.Base(filename)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read plan %q: %w", filename, err)
	}
	return string(data), nil
}

// Latest 返回某类别下修改时间最新的文件名；无文件时返回 ErrNotFound。
// Latest returns the most recently modified filename of a kind, or ErrNotFound when none exist.
func (s *Store) Latest(kind Kind) (string, error) {
	names, err := s.filesByMtime(kind)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	return names[0], nil
}

// Delete removes one document of the given kind; ErrNotFound when absent.
func (s *Store) Delete(kind Kind, filename string) error {
	path := filepath.Join(s.Dir(kind), filepath.Base(filename))
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %q: %w", filename, err)
	}
	return nil
}

// ReadDocument resolves a bare filename anywhere under the documents root.
// JSON documents are re-indented for display; others are returned verbatim.
// Returns ErrNotFound when no file matches.
func (s *Store) ReadDocument(filename string) (string, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return "", ErrNotFound
	}
	var found string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil || found == "" {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(found)
	if err != nil {
		return "", fmt.Errorf("read document %q: %w", filename, err)
	}
	if strings.HasSuffix(filename, ".json") {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
				return string(pretty), nil
			}
		}
	}
	return string(data), nil
}

// SaveUpload 把上传的正文存为文档根目录下的纯文本文件。
// SaveUpload stores uploaded text as a plain file directly under the documents
// root, outside the per-kind subdirectories, and returns its filename.
func (s *Store) SaveUpload(title, content string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = "Untitled Document"
	}
	filename := Slug(title) + "_" + s.now().Format("20060102_150405") + ".txt"
	if err := s.writeFileDir(s.root, filename, []byte(content)); err != nil {
		return "", err
	}
	return filename, nil
}

// --- Write helpers ---

func (s *Store) writeFile(kind Kind, filename string, data []byte) error {
	return s.writeFileDir(s.Dir(kind), filename, data)
}

// 先写临时文件再重命名，避免崩溃时留下截断的 JSON。
// Write to a temp file then rename so a crash never leaves a truncated document behind.
func (s *Store) writeFileDir(dir, filename string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filename+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %q: %w", filename, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, filename)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %q: %w", filename, err)
	}
	return nil
}

func (s *Store) writeJSON(kind Kind, filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %q: %w", filename, err)
	}
	return s.writeFile(kind, filename, data)
}

func (s *Store) readJSON(kind Kind, filename string, v any) error {
	path := filepath.Join(s.Dir(kind), filepath.Base(filename))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %q: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %q: %w", filename, err)
	}
	return nil
}

// filesByMtime lists filenames of a kind ordered newest first.
func (s *Store) filesByMtime(kind Kind) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", kind.dir(), err)
	}
	type fileMtime struct {
		name  string
		mtime time.Time
	}
	files := make([]fileMtime, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), kind.ext()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileMtime{name: entry.Name(), mtime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.name)
	}
	return names, nil
}
