package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionMessage is the normalized inbound shape for order updates,
// order failures, own fills and public trades. Connectivity adapters
// populate only the fields they know; nil/empty means "not reported",
// and the ledger never lets an absent field overwrite a present value.
type ExecutionMessage struct {
	TransactionID         int64 `json:"transaction_id,omitempty"`
	OriginalTransactionID int64 `json:"original_transaction_id,omitempty"`

	OrderID       *int64      `json:"order_id,omitempty"`
	OrderStringID string      `json:"order_string_id,omitempty"`
	OrderBoardID  string      `json:"order_board_id,omitempty"`
	OrderType     *OrderType  `json:"order_type,omitempty"`
	OrderState    *OrderState `json:"order_state,omitempty"`
	OrderStatus   *int64      `json:"order_status,omitempty"`

	Side       Side             `json:"side"`
	OrderPrice decimal.Decimal  `json:"order_price"`
	Volume     *decimal.Decimal `json:"volume,omitempty"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`

	TimeInForce *TimeInForce     `json:"time_in_force,omitempty"`
	Commission  *decimal.Decimal `json:"commission,omitempty"`
	Slippage    *decimal.Decimal `json:"slippage,omitempty"`
	PnL         *decimal.Decimal `json:"pnl,omitempty"`
	Position    *decimal.Decimal `json:"position,omitempty"`

	// Latency is the round trip of the operation this message answers,
	// attributed to registration or cancellation by the ledger.
	Latency *time.Duration `json:"latency,omitempty"`

	TradeID       *int64           `json:"trade_id,omitempty"`
	TradeStringID string           `json:"trade_string_id,omitempty"`
	TradePrice    decimal.Decimal  `json:"trade_price"`
	TradeVolume   *decimal.Decimal `json:"trade_volume,omitempty"`

	PortfolioName string     `json:"portfolio_name,omitempty"`
	ClientCode    string     `json:"client_code,omitempty"`
	BrokerCode    string     `json:"broker_code,omitempty"`
	UserOrderID   string     `json:"user_order_id,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Condition     any        `json:"condition,omitempty"`

	// Error is set on failure messages only; such messages must go
	// through the fail path, never the regular order path.
	Error error `json:"-"`

	ServerTime time.Time `json:"server_time"`
	LocalTime  time.Time `json:"local_time"`

	Extension map[string]any `json:"extension,omitempty"`
}

// NewsMessage is the inbound shape for news items.
type NewsMessage struct {
	ID         string         `json:"id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Headline   string         `json:"headline,omitempty"`
	Story      string         `json:"story,omitempty"`
	BoardCode  string         `json:"board_code,omitempty"`
	URL        string         `json:"url,omitempty"`
	ServerTime time.Time      `json:"server_time"`
	LocalTime  time.Time      `json:"local_time"`
	Extension  map[string]any `json:"extension,omitempty"`
}

// MergeExtension copies the message extension bag onto an entity's bag,
// allocating the target on first use. Existing keys are overwritten:
// the bag carries the latest adapter-reported values verbatim.
func MergeExtension(dst *map[string]any, src map[string]any) {
	if len(src) == 0 {
		return
	}
	if *dst == nil {
		*dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}
