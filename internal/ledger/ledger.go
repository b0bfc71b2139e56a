// Package ledger implements the in-memory reconciliation ledger of the
// trading framework: it folds multi-source order, trade, fill and news
// messages into canonical deduplicated entities, resolves identity
// ambiguity across transaction ids and venue identifiers, enforces the
// order lifecycle, and keeps a bounded working set under continuous
// load.
//
// The ledger runs no background goroutines. Every operation is a
// synchronous state update; retention runs on the inserting caller.
package ledger

import (
	"fmt"
	"sync"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// Default keep counts, matching the framework's historical defaults.
const (
	DefaultOrdersKeepCount = 1_000
	DefaultTradesKeepCount = 100_000
)

// KeepUnlimited disables eviction for a kind; a keep count of zero
// disables retention entirely.
const KeepUnlimited = -1

// Ledger is the process-wide reconciliation store. Safe for concurrent
// use by multiple adapter workers.
//
// One mutex governs the order/trade universe (per-security shards, the
// global cross-security indices and the insertion sequences) so that
// compound operations (identity resolution plus apply, re-registration
// replace, retention) are atomic with respect to every index they
// touch. The portfolio, position, security, board and news registries
// are independently guarded.
type Ledger struct {
	factory EntityFactory

	mu           sync.RWMutex
	securityData map[*model.Security]*securityData

	ordersByTx       map[txKey]*model.Order
	ordersByID       map[int64]*model.Order
	ordersByStringID map[string]*model.Order
	orders           []*model.Order // insertion order, retention window
	myTrades         []*model.MyTrade
	trades           []*model.Trade // insertion order, retention window

	ordersKeep int
	tradesKeep int

	statusTx map[int64]struct{}

	portfolios *registry[string, *model.Portfolio]
	positions  *registry[positionKey, *model.Position]
	securities *registry[string, *model.Security]
	boards     *registry[string, *model.Board]
	newsByID   *registry[string, *model.News]

	newsMu      sync.RWMutex
	newsUnkeyed []*model.News

	nativeMu  sync.RWMutex
	nativeIDs map[any]*model.Security

	failsMu       sync.RWMutex
	registerFails []*model.OrderFail
	cancelFails   []*model.OrderFail
}

// New creates an empty ledger. A nil factory falls back to
// BasicFactory.
func New(factory EntityFactory) *Ledger {
	if factory == nil {
		factory = BasicFactory{}
	}
	l := &Ledger{
		factory:    factory,
		ordersKeep: DefaultOrdersKeepCount,
		tradesKeep: DefaultTradesKeepCount,
		portfolios: newRegistry[string, *model.Portfolio](),
		positions:  newRegistry[positionKey, *model.Position](),
		securities: newRegistry[string, *model.Security](),
		boards:     newRegistry[string, *model.Board](),
		newsByID:   newRegistry[string, *model.News](),
		nativeIDs:  make(map[any]*model.Security),
	}
	l.reset()
	return l
}

// reset reinitializes the collections guarded by l.mu. Callers must
// hold the write lock (or be the constructor).
func (l *Ledger) reset() {
	l.securityData = make(map[*model.Security]*securityData)
	l.ordersByTx = make(map[txKey]*model.Order)
	l.ordersByID = make(map[int64]*model.Order)
	l.ordersByStringID = make(map[string]*model.Order)
	l.orders = nil
	l.myTrades = nil
	l.trades = nil
	l.statusTx = make(map[int64]struct{})
}

// Clear atomically empties every collection. There is no partial clear.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.reset()
	l.mu.Unlock()

	l.portfolios.Clear()
	l.positions.Clear()
	l.securities.Clear()
	l.boards.Clear()
	l.newsByID.Clear()

	l.nativeMu.Lock()
	l.nativeIDs = make(map[any]*model.Security)
	l.nativeMu.Unlock()

	l.newsMu.Lock()
	l.newsUnkeyed = nil
	l.newsMu.Unlock()

	l.failsMu.Lock()
	l.registerFails = nil
	l.cancelFails = nil
	l.failsMu.Unlock()
}

// data returns the shard for a security, creating it lazily. Callers
// must hold l.mu.
func (l *Ledger) data(security *model.Security) *securityData {
	d, ok := l.securityData[security]
	if !ok {
		d = newSecurityData()
		l.securityData[security] = d
	}
	return d
}

// --- Keep counts ---

// OrdersKeepCount returns the order retention bound.
func (l *Ledger) OrdersKeepCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ordersKeep
}

// SetOrdersKeepCount sets the order retention bound (-1 unlimited,
// 0 disabled, N soft bound) and immediately applies it.
func (l *Ledger) SetOrdersKeepCount(count int) error {
	if count < KeepUnlimited {
		return fmt.Errorf("%w: got %d", ErrKeepCount, count)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ordersKeep == count {
		return nil
	}
	l.ordersKeep = count
	l.recycleOrders()
	return nil
}

// TradesKeepCount returns the trade retention bound.
func (l *Ledger) TradesKeepCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tradesKeep
}

// SetTradesKeepCount sets the trade retention bound (-1 unlimited,
// 0 disabled, N soft bound) and immediately applies it.
func (l *Ledger) SetTradesKeepCount(count int) error {
	if count < KeepUnlimited {
		return fmt.Errorf("%w: got %d", ErrKeepCount, count)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tradesKeep == count {
		return nil
	}
	l.tradesKeep = count
	l.recycleTrades()
	return nil
}

// --- Order-status transactions ---

// AddOrderStatusTransaction marks a transaction id as belonging to an
// order status request. Execution messages answering such a request
// carry it as their original transaction id, and it must not be
// mistaken for an order operation.
func (l *Ledger) AddOrderStatusTransaction(transactionID int64) {
	l.mu.Lock()
	l.statusTx[transactionID] = struct{}{}
	l.mu.Unlock()
}

// TransactionID maps a message's original transaction id to the order
// operation it denotes: zero when the id is a status-request echo.
func (l *Ledger) TransactionID(originalTransactionID int64) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.transactionIDLocked(originalTransactionID)
}

func (l *Ledger) transactionIDLocked(originalTransactionID int64) int64 {
	if _, ok := l.statusTx[originalTransactionID]; ok {
		return 0
	}
	return originalTransactionID
}

// --- Snapshots ---
// Every snapshot is a point-in-time copy, not a live view.

// Orders returns the retained orders in insertion order.
func (l *Ledger) Orders() []*model.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// MyTrades returns the retained fills in insertion order.
func (l *Ledger) MyTrades() []*model.MyTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.MyTrade, len(l.myTrades))
	copy(out, l.myTrades)
	return out
}

// Trades returns the retained public trades across all securities.
func (l *Ledger) Trades() []*model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// OrdersBySecurity returns the security's orders in the given lifecycle
// state.
func (l *Ledger) OrdersBySecurity(security *model.Security, state model.OrderState) ([]*model.Order, error) {
	if security == nil {
		return nil, ErrNoSecurity
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.securityData[security]
	if !ok {
		return nil, nil
	}
	var out []*model.Order
	for _, info := range d.orders {
		if info.order.State == state {
			out = append(out, info.order)
		}
	}
	return out, nil
}

// Portfolios returns the known portfolios in creation order.
func (l *Ledger) Portfolios() []*model.Portfolio {
	return l.portfolios.Values()
}

// Positions returns the known positions in creation order.
func (l *Ledger) Positions() []*model.Position {
	return l.positions.Values()
}

// Securities returns the known securities in creation order.
func (l *Ledger) Securities() []*model.Security {
	return l.securities.Values()
}

// SecurityCount returns the number of known securities.
func (l *Ledger) SecurityCount() int {
	return l.securities.Len()
}

// Boards returns the known boards in creation order.
func (l *Ledger) Boards() []*model.Board {
	return l.boards.Values()
}

// News returns every news item, unindexed entries first.
func (l *Ledger) News() []*model.News {
	l.newsMu.RLock()
	out := make([]*model.News, len(l.newsUnkeyed))
	copy(out, l.newsUnkeyed)
	l.newsMu.RUnlock()
	return append(out, l.newsByID.Values()...)
}

// AddRegisterFail appends to the registration failure list.
func (l *Ledger) AddRegisterFail(fail *model.OrderFail) {
	l.failsMu.Lock()
	l.registerFails = append(l.registerFails, fail)
	l.failsMu.Unlock()
}

// AddCancelFail appends to the cancellation failure list.
func (l *Ledger) AddCancelFail(fail *model.OrderFail) {
	l.failsMu.Lock()
	l.cancelFails = append(l.cancelFails, fail)
	l.failsMu.Unlock()
}

// RegisterFails returns the recorded registration failures.
func (l *Ledger) RegisterFails() []*model.OrderFail {
	l.failsMu.RLock()
	defer l.failsMu.RUnlock()
	out := make([]*model.OrderFail, len(l.registerFails))
	copy(out, l.registerFails)
	return out
}

// CancelFails returns the recorded cancellation failures.
func (l *Ledger) CancelFails() []*model.OrderFail {
	l.failsMu.RLock()
	defer l.failsMu.RUnlock()
	out := make([]*model.OrderFail, len(l.cancelFails))
	copy(out, l.cancelFails)
	return out
}
