package agent

import (
	"strings"

	"tripmate/internal/contextmgr"
)

// 系统提示词模板；三个占位符在每轮请求时填充。
// System prompt template; the three placeholders are filled per request.
const systemPromptTemplate = `You're a helpful travel planner assistant. ` +
	`You can provide general advice but also create and maintain travel plans, todo lists, and budgets using tools. ` +
	`You have access to a document store containing the users travel plans, todo lists, and budgets. ` +
	"Use the following context from these documents to answer users queries or before using any tools:\n" +
	"{context}\n\n" +
	"Conversation Context:\n{conversation_context}\n\n" +
	"Available Documents Summary:\n{document_summary}\n\n" +
	`First assess whether the user query requires use of the tools, or if you can answer directly. ` +
	`After using a tool the tool output will be provided in the scratchpad below. ` +
	`If you have an answer in the scratchpad you should not use any more tools and ` +
	`instead answer directly to the user with the final_answer tool.`

// SystemPrompt interpolates retrieval context, conversation context, and the
// document summary into the agent's system prompt.
func SystemPrompt(enh contextmgr.Enhanced, conversationContext string) string {
	out := systemPromptTemplate
	out = strings.ReplaceAll(out, "{context}", enh.Context)
	out = strings.ReplaceAll(out, "{conversation_context}", conversationContext)
	out = strings.ReplaceAll(out, "{document_summary}", enh.DocumentSummary)
	return out
}
