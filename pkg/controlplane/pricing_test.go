package controlplane

import "testing"

func TestPrice(t *testing.T) {
	tests := []struct {
		name string
		u Usage
		want int64
	}{
		{"all zero floors to 1", Usage{}, 1},
		{"tokens in only", Usage{LLMTokensIn: 5000}, 5},
		{"tokens out weighted double", Usage{LLMTokensOut: 5000}, 10},
		{"tool calls counted 1:1", Usage{ToolCalls: 3}, 3},
		{"requests counted 1:1", Usage{Requests: 2}, 2},
		{"rag queries divided by 10", Usage{RAGQueries: 25}, 2},
		{
			"combined dimensions sum",
			Usage{LLMTokensIn: 2000, LLMTokensOut: 1000, ToolCalls: 1, Requests: 1, RAGQueries: 10},
			2 + 2 + 1 + 1 + 1,
		},
		{"sub-unit dimension floors to zero before summing", Usage{LLMTokensIn: 500}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Price(tt.u); got != tt.want {
				t.Errorf("Price(%+v) = %d, want %d", tt.u, got, tt.want)
			}
		})
	}
}
