package agent

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"tripmate/internal/contextmgr"
	"tripmate/internal/index"
	"tripmate/internal/provider"
	"tripmate/internal/session"
	"tripmate/internal/tools"
)

// RegistryFactory builds the tool registry bound to one session's active-document state.
type RegistryFactory func(active tools.ActiveTracker) *tools.Registry

// DegradedResponder answers without the model when the agent path fails.
// The boolean is false when the message is not one it understands.
type DegradedResponder interface {
	Respond(message string) (string, bool)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
	// Show* 本轮通过 show_document 要求前端展示的文件。
	// Show* name the documents the turn asked the client to display.
	ShowPlan   string `json:"show_plan,omitempty"`
	ShowTodo   string `json:"show_todo,omitempty"`
	ShowBudget string `json:"show_budget,omitempty"`
	// Degraded 标记本轮走了兜底路径 / Degraded marks a fallback turn.
	Degraded bool `json:"-"`
}

// Engine 把上下文组装、代理循环和会话记录串成一次完整的对话轮。
// Engine wires context assembly, the agent loop, and session bookkeeping into
// one complete chat turn.
type Engine struct {
	provider      provider.Provider
	assembler     *contextmgr.Assembler
	newRegistry   RegistryFactory
	archive       *session.Archive
	degraded      DegradedResponder
	maxIterations int
	logger        *zap.Logger
}

func NewEngine(p provider.Provider, assembler *contextmgr.Assembler, newRegistry RegistryFactory, archive *session.Archive, maxIterations int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider:      p,
		assembler:     assembler,
		newRegistry:   newRegistry,
		archive:       archive,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// SetDegradedResponder installs the keyword fallback used when the model path fails.
func (e *Engine) SetDegradedResponder(r DegradedResponder) { e.degraded = r }

// HandleChat runs one chat turn for the session. Provider failures and unknown
// tool calls degrade to a fallback reply instead of surfacing as errors.
func (e *Engine) HandleChat(ctx context.Context, sess *session.Session, message string) (Reply, error) {
	enh := e.assembler.Enhance(message)
	conversationContext := e.assembler.SummarizeHistory(sess.History())
	prompt := SystemPrompt(enh, conversationContext)

	loop := NewLoop(e.provider, e.newRegistry(sess), e.maxIterations, e.logger)
	out, err := loop.Run(ctx, prompt, message)
	if err != nil {
		if errors.Is(err, provider.ErrModelUnavailable) || errors.Is(err, tools.ErrUnknownTool) {
			e.logger.Warn("chat turn degraded to fallback",
				zap.String("session", sess.ID()),
				zap.Error(err))
			reply := Reply{Answer: FallbackAnswer, ToolsUsed: []string{}, Degraded: true}
			if e.degraded != nil {
				if answer, ok := e.degraded.Respond(message); ok {
					reply.Answer = answer
				}
			}
			if reply.Answer == FallbackAnswer && substantiveContext(enh.Context) {
				// Best effort: surface the retrieved documents alongside the apology.
				reply.Answer = FallbackAnswer + "\n\n" + enh.Context
			}
			e.recordTurn(sess, message, reply.Answer)
			return reply, nil
		}
		return Reply{}, err
	}

	reply := Reply{Answer: out.Answer, ToolsUsed: out.ToolsUsed}
	if reply.ToolsUsed == nil {
		reply.ToolsUsed = []string{}
	}
	applyShowSteps(&reply, out.Steps)

	e.logger.Info("chat turn completed",
		zap.String("session", sess.ID()),
		zap.Int("steps", len(out.Steps)),
		zap.Bool("cap_reached", out.CapReached))

	e.recordTurn(sess, message, reply.Answer)
	return reply, nil
}

// ResetHistory clears the session's turns, active documents, and archive rows.
func (e *Engine) ResetHistory(sess *session.Session) error {
	sess.Reset()
	if e.archive == nil {
		return nil
	}
	return e.archive.Clear(sess.ID())
}

func (e *Engine) recordTurn(sess *session.Session, user, assistant string) {
	sess.AppendTurn(user, assistant)
	if e.archive == nil {
		return
	}
	history := sess.History()
	if err := e.archive.SaveTurn(sess.ID(), history[len(history)-1]); err != nil {
		e.logger.Warn("archive turn", zap.Error(err))
	}
}

// substantiveContext reports whether the retrieval context carries actual
// document text rather than a sentinel.
func substantiveContext(ctx string) bool {
	switch ctx {
	case "", index.NoDocuments, index.NoRelevantDocs, index.NoneUnderLimit, contextmgr.RetrievalError:
		return false
	}
	return true
}

// applyShowSteps lifts successful show_document results into the reply's display fields.
func applyShowSteps(reply *Reply, steps []Step) {
	for _, step := range steps {
		if step.Tool != "show_document" || step.Failed {
			continue
		}
		var res struct {
			Status       string `json:"status"`
			DocumentType string `json:"document_type"`
			Filename     string `json:"filename"`
		}
		if err := json.Unmarshal([]byte(step.Result), &res); err != nil || res.Status != "success" {
			continue
		}
		switch res.DocumentType {
		case "travel_plan":
			reply.ShowPlan = res.Filename
		case "todo_list":
			reply.ShowTodo = res.Filename
		case "budget":
			reply.ShowBudget = res.Filename
		}
	}
}
