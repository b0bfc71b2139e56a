package ledger_test

import (
	"errors"
	"testing"

	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/model"
)

func TestNewOrderKey(t *testing.T) {
	tests := []struct {
		name          string
		typ           *model.OrderType
		transactionID int64
		isCancel      bool
		wantErr       bool
		wantCond      bool
	}{
		{"register limit", typePtr(model.OrderTypeLimit), 1, false, false, false},
		{"cancel limit", typePtr(model.OrderTypeLimit), 1, true, false, false},
		{"register conditional", typePtr(model.OrderTypeConditional), 1, false, false, true},
		{"cancel conditional", typePtr(model.OrderTypeConditional), 1, true, false, true},
		{"nil type", nil, 1, false, false, false},
		{"market type", typePtr(model.OrderTypeMarket), 1, false, false, false},
		{"zero id register", nil, 0, false, true, false},
		{"zero id cancel", nil, 0, true, true, false},
		{"zero id conditional", typePtr(model.OrderTypeConditional), 0, false, true, false},
		{"negative id register", nil, -5, false, true, false},
		{"negative id cancel", typePtr(model.OrderTypeConditional), -5, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ledger.NewOrderKey(tt.typ, tt.transactionID, tt.isCancel)
			if tt.wantErr {
				if !errors.Is(err, ledger.ErrTransactionID) {
					t.Fatalf("expected ErrTransactionID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key.TransactionID != tt.transactionID {
				t.Errorf("transaction id = %d", key.TransactionID)
			}
			if key.IsCancel != tt.isCancel {
				t.Errorf("isCancel = %v", key.IsCancel)
			}
			if key.IsConditional != tt.wantCond {
				t.Errorf("isConditional = %v, want %v", key.IsConditional, tt.wantCond)
			}
		})
	}
}

// Conditional and regular operations share the numeric id space, so the
// four (conditional, cancel) combinations of one transaction id must be
// four distinct keys.
func TestOrderKey_Distinct(t *testing.T) {
	seen := make(map[ledger.OrderKey]bool)
	for _, typ := range []*model.OrderType{typePtr(model.OrderTypeLimit), typePtr(model.OrderTypeConditional)} {
		for _, cancel := range []bool{false, true} {
			key, err := ledger.NewOrderKey(typ, 42, cancel)
			if err != nil {
				t.Fatal(err)
			}
			if seen[key] {
				t.Fatalf("duplicate key %+v", key)
			}
			seen[key] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("distinct keys = %d, want 4", len(seen))
	}
}
