package contextmgr

import (
	"encoding/json"
	"strings"

	"tripmate/internal/chat"
	"tripmate/internal/docstore"
)

// ContextProvider yields the retrieval context block for a query.
type ContextProvider interface {
	Context(query string) (string, error)
}

// SummarySource yields the by-kind document summary.
type SummarySource interface {
	Summary() (docstore.Summary, error)
}

// RetrievalError replaces the context block when retrieval fails outright.
const RetrievalError = "Error retrieving document context."

// 注入提示词的检索上下文 token 上限。
// Token cap on the retrieval context interpolated into the prompt.
const defaultContextTokenBudget = 2000

// Enhanced 查询增强结果，注入到系统提示词。
// Enhanced carries query enrichment that gets interpolated into the system prompt.
type Enhanced struct {
	Context            string
	DocumentSummary    string
	MentionedDocuments []string
}

// 查询中可能指向已有文档的关键词表。
// Keywords in a query that likely reference existing documents.
var docKeywords = []string{
	"budget", "plan", "todo", "list", "itinerary",
	"schedule", "thailand", "hong kong", "new zealand",
	"southeast asia", "vaccination",
}

// Assembler 组装每次模型调用的增强上下文。
// Assembler builds the enriched context for each model invocation.
type Assembler struct {
	retriever     ContextProvider
	summaries     SummarySource
	tokenizer     *Tokenizer
	HistoryWindow int
	// ContextTokenBudget caps the retrieval context block injected into the prompt.
	ContextTokenBudget int
}

func New(retriever ContextProvider, summaries SummarySource, historyWindow int) *Assembler {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Assembler{
		retriever:          retriever,
		summaries:          summaries,
		tokenizer:          DefaultTokenizer(),
		HistoryWindow:      historyWindow,
		ContextTokenBudget: defaultContextTokenBudget,
	}
}

// Enhance combines retrieval context, the document summary, and keyword mentions
// for one user query. Retrieval failures degrade to an error placeholder rather
// than aborting the turn.
func (a *Assembler) Enhance(query string) Enhanced {
	out := Enhanced{MentionedDocuments: MentionedDocuments(query)}

	ctx, err := a.retriever.Context(query)
	if err != nil {
		out.Context = RetrievalError
	} else {
		out.Context = a.trimContext(ctx)
	}

	summary, err := a.summaries.Summary()
	if err != nil {
		out.DocumentSummary = "{}"
		return out
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		out.DocumentSummary = "{}"
		return out
	}
	out.DocumentSummary = string(data)
	return out
}

// trimContext 按 token 预算裁剪检索上下文，以文档块为单位整块丢弃。
// trimContext drops whole retrieval blocks from the tail until the context fits
// the token budget. Blocks are the "\n\n"-separated units the retriever emits.
func (a *Assembler) trimContext(ctx string) string {
	budget := a.ContextTokenBudget
	if budget <= 0 || a.tokenizer.CountText(ctx) <= budget {
		return ctx
	}
	blocks := strings.Split(ctx, "\n\n")
	used := 0
	kept := blocks[:0]
	for _, block := range blocks {
		n := a.tokenizer.CountText(block)
		if used+n > budget && len(kept) > 0 {
			break
		}
		kept = append(kept, block)
		used += n
	}
	return strings.Join(kept, "\n\n")
}

// MentionedDocuments returns the known document keywords present in the query.
func MentionedDocuments(query string) []string {
	lower := strings.ToLower(query)
	var mentioned []string
	for _, kw := range docKeywords {
		if strings.Contains(lower, kw) {
			mentioned = append(mentioned, kw)
		}
	}
	return mentioned
}

// SummarizeHistory 把最近若干轮对话格式化为提示词中的会话上下文。
// SummarizeHistory formats the most recent turns as the conversation context block.
func (a *Assembler) SummarizeHistory(history []chat.Turn) string {
	if len(history) == 0 {
		return ""
	}
	recent := history
	if len(recent) > a.HistoryWindow {
		recent = recent[len(recent)-a.HistoryWindow:]
	}
	parts := []string{"Recent conversation context:"}
	for _, turn := range recent {
		if turn.User != "" {
			parts = append(parts, "User: "+turn.User)
		}
		if turn.Assistant != "" {
			parts = append(parts, "Assistant: "+turn.Assistant)
		}
	}
	return strings.Join(parts, "\n")
}
