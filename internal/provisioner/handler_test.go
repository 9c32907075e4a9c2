package provisioner

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleOrderPaid_MixedOutcomes(t *testing.T) {
	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/integrations/commerce/add-credits":
			json.NewEncoder(w).Encode(map[string]any{"new_balance": 600})
		case "/integrations/commerce/provision":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["offering_id"] == "broken-offering" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": "not_found", "message": "offering not found", "traceId": "abcd1234"}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"instance_id": "11111111-1111-1111-1111-111111111111"})
		default: 
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}))
	defer cpSrv.Close()

	cp := cpclient.New(cpSrv.URL, 5*time.Second)
	rdb := newTestRedis(t)
	idempotency := NewIdempotencyStore(rdb)
	handler := NewHandler(discardLogger(), cp, idempotency, "")

	payload := orderPaidPayload{
		OrderID:   "order-1",
		UserEmail: "buyer@example.com",
		Lines: []orderLine{
			{SKU: "CREDITS-500", ProductID: "credits-pack", Quantity: 1},
			{SKU: "PLAN-PRO", ProductID: "broken-offering", Quantity: 1},
			{SKU: "PLAN-STARTER", ProductID: "good-offering", Quantity: 1},
		},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/saleor/order-paid", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleOrderPaid(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Results []lineOutcome `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "processed" {
		t.Errorf("status = %q, want processed", resp.Status)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("len(results) = %d, want 3 (one failing line must not abort the others)", len(resp.Results))
	}
	if resp.Results[0].Type != "credits" || resp.Results[0].Credits != 500 {
		t.Errorf("line 0 = %+v, want credits=500", resp.Results[0])
	}
	if resp.Results[1].Type != "error" || resp.Results[1].Error == "" {
		t.Errorf("line 1 = %+v, want an error outcome", resp.Results[1])
	}
	if resp.Results[2].Type != "instance" || resp.Results[2].InstanceID == "" {
		t.Errorf("line 2 = %+v, want a provisioned instance", resp.Results[2])
	}
}

func TestHandleOrderPaid_DuplicateIsShortCircuited(t *testing.T) {
	callCount := 0
	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		json.NewEncoder(w).Encode(map[string]any{"new_balance": 100})
	}))
	defer cpSrv.Close()

	cp := cpclient.New(cpSrv.URL, 5*time.Second)
	rdb := newTestRedis(t)
	idempotency := NewIdempotencyStore(rdb)
	handler := NewHandler(discardLogger(), cp, idempotency, "")

	payload := orderPaidPayload{
		OrderID:   "order-dup",
		UserEmail: "buyer@example.com",
		Lines:     []orderLine{{SKU: "CREDITS-10", ProductID: "credits-pack", Quantity: 1}},
	}
	body, _ := json.Marshal(payload)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/saleor/order-paid", bytes.NewReader(body))
		w := httptest.NewRecorder()
		handler.HandleOrderPaid(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}

	if callCount != 1 {
		t.Errorf("control plane was called %d times, want exactly 1 (second delivery must short-circuit)", callCount)
	}
}

func TestHandleOrderPaid_InvalidSignatureRejected(t *testing.T) {
	cp := cpclient.New("http://unused.invalid", time.Second)
	rdb := newTestRedis(t)
	idempotency := NewIdempotencyStore(rdb)
	handler := NewHandler(discardLogger(), cp, idempotency, "whsec_real")

	body, _ := json.Marshal(orderPaidPayload{OrderID: "order-x", UserEmail: "a@b.com"})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/saleor/order-paid", bytes.NewReader(body))
	req.Header.Set("X-Saleor-Signature", "wrong")
	w := httptest.NewRecorder()
	handler.HandleOrderPaid(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
