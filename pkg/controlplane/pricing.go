package controlplane

// Usage holds the run-time usage counters settle converts to credits.
type Usage struct {
	LLMTokensIn  int64 `json:"llm_tokens_in"`
	LLMTokensOut int64 `json:"llm_tokens_out"`
	ToolCalls    int64 `json:"tool_calls"`
	Requests     int64 `json:"requests"`
	RAGQueries   int64 `json:"rag_queries"`
}

// Price converts usage counters to credits per the billing rate table: each
// dimension is floored independently, summed, then floored at 1 overall.
// Unknown keys contribute zero, which is already true of the typed Usage
// struct — any field absent from the caller's JSON defaults to zero.
func Price(u Usage) int64 {
	total := u.LLMTokensIn/1000 +
		(u.LLMTokensOut*2)/1000 +
		u.ToolCalls +
		u.Requests +
		u.RAGQueries/10

	if total < 1 {
		return 1
	}
	return total
}
