package agent

// FallbackAnswer 模型不可用或循环致命失败时返回给用户的兜底回复。
// FallbackAnswer is returned when the model is unavailable or the loop fails fatally.
const FallbackAnswer = "I'm sorry, I'm having trouble processing your request right now. Please try again in a moment."
