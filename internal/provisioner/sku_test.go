package provisioner

import "testing"

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name string
		sku string
		wantCredits int64
		wantIsPack bool
	}{
		{"credit pack matches", "CREDITS-500", 500, true},
		{"single digit pack", "CREDITS-1", 1, true},
		{"non-credit sku", "PLAN-PRO-MONTHLY", 0, false},
		{"lowercase does not match", "credits-500", 0, false},
		{"trailing garbage does not match", "CREDITS-500X", 0, false},
		{"empty string does not match", "", 0, false},
		{"missing digits does not match", "CREDITS-", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCredits, gotIsPack := classifyLine(tt.sku)
			if gotCredits != tt.wantCredits || gotIsPack != tt.wantIsPack {
				t.Errorf("classifyLine(%q) = (%d, %v), want (%d, %v)", tt.sku, gotCredits, gotIsPack, tt.wantCredits, tt.wantIsPack)
			}
		})
	}
}
