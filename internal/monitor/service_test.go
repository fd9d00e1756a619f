package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"lendbot/internal/config"
	"lendbot/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	// 内存库单连接，避免每个连接各见一份空库。
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRecordAndListEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordAnchor(ctx, AnchorPayload{Strategy: "frr", Rate: "0.000500", APY: 0.2})
	svc.RecordOffer(ctx, OfferPayload{Phase: "primary", Kind: "FRRDELTA", Amount: "500.000000", Rate: "0.000500", Period: 2})
	svc.RecordOffer(ctx, OfferPayload{Phase: "sweep", Kind: "FRRDELTA", Amount: "120.000000", Rate: "0.000000", Period: 2})
	svc.RecordError(ctx, "submission failed", errors.New("rate limited"), map[string]interface{}{"phase": "maker"})

	offers, err := svc.ListEvents(ctx, EventOffer, 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 offer events, got %d", len(offers))
	}

	// 最新事件在前。
	var payload OfferPayload
	if err := json.Unmarshal(offers[0].Payload.(json.RawMessage), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Phase != "sweep" || payload.Amount != "120.000000" {
		t.Errorf("expected latest sweep offer first, got %+v", payload)
	}

	all, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 events in total, got %d", len(all))
	}

	errs, err := svc.ListEvents(ctx, EventError, 10)
	if err != nil {
		t.Fatalf("ListEvents errors: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errs))
	}
	var errPayload ErrorPayload
	if err := json.Unmarshal(errs[0].Payload.(json.RawMessage), &errPayload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if errPayload.Message != "submission failed" || errPayload.Error != "rate limited" {
		t.Errorf("error payload mismatch: %+v", errPayload)
	}
}

func TestListEvents_DefaultLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordRunSummary(ctx, RunSummaryPayload{Asset: "USDT", FreeBalance: "620.00", Deployed: "620.00", Remaining: "0.00", Offers: 2})

	events, err := svc.ListEvents(ctx, EventRunSummary, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 summary event, got %d", len(events))
	}
}
