package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// Session 持有一次对话的全部可变状态：轮次历史和每类文档的活跃文件。
// Session holds all mutable conversation state: the turn history and the
// active document of each kind. It replaces module-level globals so multiple
// sessions can coexist.
type Session struct {
	id string

	mu     sync.Mutex
	turns  []chat.Turn
	active map[docstore.Kind]string
}

func New() *Session {
	return NewWithID("")
}

// NewWithID 用固定 ID 创建会话，便于重启后对接归档历史。
// NewWithID creates a session with a fixed ID so archived history can be
// reattached across restarts. A blank id gets a random one.
func NewWithID(id string) *Session {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:     id,
		active: map[docstore.Kind]string{},
	}
}

// Restore 用归档轮次替换当前历史，保留原始时间戳。
// Restore replaces the turn history with archived turns, keeping their timestamps.
func (s *Session) Restore(turns []chat.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append([]chat.Turn(nil), turns...)
}

func (s *Session) ID() string {
	return s.id
}

// AppendTurn records one completed user/assistant exchange.
func (s *Session) AppendTurn(user, assistant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, chat.Turn{
		User:      user,
		Assistant: assistant,
		Timestamp: time.Now(),
	})
}

// History returns a copy of the turn history.
func (s *Session) History() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Turn(nil), s.turns...)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Reset 清空历史与活跃文档，但保留会话 ID。
// Reset clears history and active documents but keeps the session ID.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.active = map[docstore.Kind]string{}
}

// ActiveDocument reports the file the session is currently working on for a kind.
func (s *Session) ActiveDocument(kind docstore.Kind) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.active[kind]
	return name, ok
}

// SetActiveDocument marks a file as the one currently being discussed.
func (s *Session) SetActiveDocument(kind docstore.Kind, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[kind] = filename
}
