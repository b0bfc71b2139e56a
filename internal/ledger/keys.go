package ledger

import (
	"fmt"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// OrderKey identifies one logical order operation within a security
// shard. A single transaction id denotes either a registration or a
// cancellation, never both; IsCancel disambiguates the two. Conditional
// orders share the numeric transaction-id space with regular orders, so
// IsConditional keys them separately.
type OrderKey struct {
	TransactionID int64
	IsConditional bool
	IsCancel      bool
}

// NewOrderKey builds an order key. The transaction id must be positive;
// a caller holding only venue identifiers must resolve by exchange
// id/string id instead.
func NewOrderKey(typ *model.OrderType, transactionID int64, isCancel bool) (OrderKey, error) {
	if transactionID <= 0 {
		return OrderKey{}, fmt.Errorf("%w: got %d", ErrTransactionID, transactionID)
	}
	return OrderKey{
		TransactionID: transactionID,
		IsConditional: typ != nil && *typ == model.OrderTypeConditional,
		IsCancel:      isCancel,
	}, nil
}

// txKey indexes orders across securities by operation.
type txKey struct {
	transactionID int64
	isCancel      bool
}

// myTradeKey identifies a fill by owning order and venue trade id
// (0 when the venue reported none).
type myTradeKey struct {
	transactionID int64
	tradeID       int64
}

// positionKey identifies a position within the registry.
type positionKey struct {
	portfolio *model.Portfolio
	security  *model.Security
	depoName  string
	limitType model.TPlusLimit
}

// announceState is the one-shot "new order" notification flag. It
// transitions pending -> done exactly once, on the first apply that
// reports the order to the caller.
type announceState uint8

const (
	announcePending announceState = iota
	announceDone
)
