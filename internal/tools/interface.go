package tools

import (
	"context"
	"encoding/json"
	"errors"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// ErrUnknownTool 模型请求了未注册的工具；代理循环据此中止本轮。
// ErrUnknownTool means the model asked for an unregistered tool; the agent loop aborts the turn.
var ErrUnknownTool = errors.New("unknown tool")

type Tool interface {
	Name() string
	Definition() chat.ToolDef
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ActiveTracker 记录会话当前操作的文档，工具在省略 filename 时优先使用它。
// ActiveTracker remembers the documents a session is working on; tools prefer it
// over newest-file resolution when no filename is given.
type ActiveTracker interface {
	ActiveDocument(kind docstore.Kind) (string, bool)
	SetActiveDocument(kind docstore.Kind, filename string)
}

// Invalidator lets mutating tools mark the retrieval index stale.
type Invalidator interface {
	Invalidate()
}
