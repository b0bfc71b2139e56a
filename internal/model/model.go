// Package model defines the core domain types shared across the entity
// ledger. All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of an order.
type OrderState int

const (
	// OrderStateNone means the state has not been reported yet.
	OrderStateNone OrderState = iota
	// OrderStatePending means the registration was sent but not accepted.
	OrderStatePending
	// OrderStateActive means the venue accepted the order.
	OrderStateActive
	// OrderStateDone means the order is fully executed or cancelled.
	OrderStateDone
	// OrderStateFailed means the registration was rejected.
	OrderStateFailed
)

func (s OrderState) String() string {
	switch s {
	case OrderStateNone:
		return "none"
	case OrderStatePending:
		return "pending"
	case OrderStateActive:
		return "active"
	case OrderStateDone:
		return "done"
	case OrderStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether s may legally become next. A state may
// always re-assert itself; Done and Failed are terminal.
func (s OrderState) CanTransition(next OrderState) bool {
	if s == next {
		return true
	}
	switch s {
	case OrderStateNone:
		return true
	case OrderStatePending:
		return next == OrderStateActive || next == OrderStateDone || next == OrderStateFailed
	case OrderStateActive:
		return next == OrderStateDone || next == OrderStateFailed
	default:
		return false
	}
}

// IsTerminal reports whether the state admits no further transitions.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateDone || s == OrderStateFailed
}

// OrderType is the venue order type.
type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
	// OrderTypeConditional covers stop/conditional orders. Conditional
	// orders share the transaction-id space with regular ones and are
	// keyed separately in the ledger.
	OrderTypeConditional
	OrderTypeRepo
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	case OrderTypeConditional:
		return "conditional"
	case OrderTypeRepo:
		return "repo"
	default:
		return "unknown"
	}
}

// Side is the order direction.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// TimeInForce describes how long an order stays working.
type TimeInForce int

const (
	TimeInForceGTC TimeInForce = iota // good till cancelled
	TimeInForceIOC                    // match or cancel immediately
	TimeInForceFOK                    // match fully or cancel
)

// TPlusLimit tags a position with its settlement limit kind.
// TPlusLimitNone means the position carries no limit tag.
type TPlusLimit int

const (
	TPlusLimitNone TPlusLimit = iota
	TPlusLimitT0
	TPlusLimitT1
	TPlusLimitT2
)

// Board is a trading board (venue section) a security is listed on.
type Board struct {
	Code     string `json:"code"`
	Exchange string `json:"exchange,omitempty"`
}

// Security identifies one tradable instrument.
type Security struct {
	ID        string         `json:"id"`
	Code      string         `json:"code,omitempty"`
	Name      string         `json:"name,omitempty"`
	Class     string         `json:"class,omitempty"`
	Board     *Board         `json:"board,omitempty"`
	Extension map[string]any `json:"extension,omitempty"`
}

// Portfolio groups positions under one account name. Names are matched
// case-insensitively by the ledger.
type Portfolio struct {
	Name         string          `json:"name"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Extension    map[string]any  `json:"extension,omitempty"`
}

// Position is the aggregate holding of one security within a portfolio.
type Position struct {
	Portfolio    *Portfolio      `json:"portfolio"`
	Security     *Security       `json:"security"`
	DepoName     string          `json:"depo_name,omitempty"`
	LimitType    TPlusLimit      `json:"limit_type,omitempty"`
	Description  string          `json:"description,omitempty"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Extension    map[string]any  `json:"extension,omitempty"`
}

// Order is one order-related operation (a registration, targeted by at
// most one cancellation) reconciled from adapter messages.
type Order struct {
	// TransactionID is the caller-assigned identifier of the
	// registration operation. Always > 0 for orders the ledger created.
	TransactionID int64 `json:"transaction_id"`

	// ID and StringID are venue-assigned identifiers, known only after
	// the venue accepts the order. Zero/empty until then.
	ID       int64  `json:"id,omitempty"`
	StringID string `json:"string_id,omitempty"`
	BoardID  string `json:"board_id,omitempty"`

	Security  *Security  `json:"security"`
	Portfolio *Portfolio `json:"portfolio,omitempty"`

	Type   OrderType  `json:"type"`
	State  OrderState `json:"state"`
	Status int64      `json:"status,omitempty"` // raw venue status code
	Side   Side       `json:"side"`

	Price   decimal.Decimal `json:"price"`
	Volume  decimal.Decimal `json:"volume"`
	Balance decimal.Decimal `json:"balance"` // remaining unfilled volume

	TimeInForce TimeInForce      `json:"time_in_force"`
	Commission  *decimal.Decimal `json:"commission,omitempty"`

	// Time is the venue registration time, set once from the first
	// server timestamp. LastChangeTime tracks the latest update;
	// LocalTime the latest local receipt.
	Time           time.Time `json:"time"`
	LastChangeTime time.Time `json:"last_change_time"`
	LocalTime      time.Time `json:"local_time"`

	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	Comment     string `json:"comment,omitempty"`
	UserOrderID string `json:"user_order_id,omitempty"`
	ClientCode  string `json:"client_code,omitempty"`
	BrokerCode  string `json:"broker_code,omitempty"`

	// Condition holds the stop/conditional parameters for conditional
	// orders, opaque to the ledger.
	Condition any `json:"condition,omitempty"`

	LatencyRegistration time.Duration `json:"latency_registration,omitempty"`
	LatencyCancellation time.Duration `json:"latency_cancellation,omitempty"`

	Extension map[string]any `json:"extension,omitempty"`
}

// Trade is a public (anonymous market) trade. At most one of ID and
// StringID is meaningful; a trade with neither is never deduplicated.
type Trade struct {
	ID        int64           `json:"id,omitempty"`
	StringID  string          `json:"string_id,omitempty"`
	Security  *Security       `json:"security"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Side      Side            `json:"side"`
	Time      time.Time       `json:"time"`
	LocalTime time.Time       `json:"local_time"`
	Extension map[string]any  `json:"extension,omitempty"`
}

// MyTrade is an execution fill of one of the ledger's own orders.
// The Order reference is non-owning.
type MyTrade struct {
	Order      *Order           `json:"order"`
	Trade      *Trade           `json:"trade"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
	Slippage   *decimal.Decimal `json:"slippage,omitempty"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	Position   *decimal.Decimal `json:"position,omitempty"`
	Extension  map[string]any   `json:"extension,omitempty"`
}

// OrderFail records a failed registration or cancellation attempt.
type OrderFail struct {
	Order      *Order    `json:"order"`
	Error      error     `json:"-"`
	Reason     string    `json:"reason"`
	ServerTime time.Time `json:"server_time"`
	LocalTime  time.Time `json:"local_time"`
}

// News is a venue or provider news item. Items carrying an id are
// deduplicated case-insensitively; others are kept as an unindexed
// sequence.
type News struct {
	ID         string         `json:"id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Headline   string         `json:"headline,omitempty"`
	Story      string         `json:"story,omitempty"`
	URL        string         `json:"url,omitempty"`
	Security   *Security      `json:"security,omitempty"`
	Board      *Board         `json:"board,omitempty"`
	ServerTime time.Time      `json:"server_time"`
	LocalTime  time.Time      `json:"local_time"`
	Extension  map[string]any `json:"extension,omitempty"`
}
