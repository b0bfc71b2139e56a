package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tradeframe/entity-ledger/internal/model"
)

var (
	errRegisterFailed = errors.New("ledger: order registration failed")
	errCancelFailed   = errors.New("ledger: order cancellation failed")
)

// orderInfo wraps one order together with its one-shot announce flag.
// The flag distinguishes the "new order" notification from subsequent
// updates and is consumed exactly once.
type orderInfo struct {
	order    *model.Order
	announce announceState
	seq      uint64
}

// OrderResult is one outcome of applying a message to an order. IsNew
// is true exactly once per order, on the apply that first reports it;
// Changed is false when the message was a pure data echo.
type OrderResult struct {
	Order   *model.Order
	IsNew   bool
	Changed bool
}

// PortfolioResult reports a portfolio get-or-create outcome.
type PortfolioResult struct {
	Portfolio *model.Portfolio
	Created   bool
	Changed   bool
}

// FailResult is one resolved order failure.
type FailResult struct {
	Fail     *model.OrderFail
	IsCancel bool
}

// applyChanges merges every present message field into the order using
// set-if-provided semantics and validates the lifecycle transition.
//
// A Done order accepts the message as a no-op data echo: order data can
// arrive from both market-data and transactional adapters, and the
// later copy must not fault. A Failed order never accepts changes.
func (i *orderInfo) applyChanges(msg *model.ExecutionMessage, isCancel bool) (OrderResult, error) {
	order := i.order

	if order.State == model.OrderStateDone {
		res := OrderResult{Order: order, IsNew: i.announce == announcePending, Changed: false}
		i.announce = announceDone
		return res, nil
	}
	if order.State == model.OrderStateFailed {
		return OrderResult{}, fmt.Errorf("%w: transaction %d", ErrOrderFailed, order.TransactionID)
	}

	isPending := order.State == model.OrderStatePending

	if msg.OrderID != nil {
		order.ID = *msg.OrderID
	}
	if msg.OrderStringID != "" {
		order.StringID = msg.OrderStringID
	}
	if msg.OrderBoardID != "" {
		order.BoardID = msg.OrderBoardID
	}
	if msg.Balance != nil {
		order.Balance = *msg.Balance
	}

	// Some adapters omit the state in intermediate messages.
	if msg.OrderState != nil {
		if !order.State.CanTransition(*msg.OrderState) {
			return OrderResult{}, fmt.Errorf("%w: %s -> %s (transaction %d)",
				ErrInvalidTransition, order.State, *msg.OrderState, order.TransactionID)
		}
		order.State = *msg.OrderState
	}

	// Registration time is set once, from the venue clock.
	if order.Time.IsZero() {
		order.Time = msg.ServerTime
	}

	// The first-ever update carries the venue registration time; later
	// updates track local receipt.
	if i.announce == announcePending {
		order.LastChangeTime = msg.ServerTime
	} else {
		order.LastChangeTime = msg.LocalTime
	}
	order.LocalTime = msg.LocalTime

	// Volume can be zero on re-registration until the venue echoes it.
	if order.Volume.IsZero() && msg.Volume != nil {
		order.Volume = *msg.Volume
	}
	if msg.Commission != nil {
		order.Commission = msg.Commission
	}
	if msg.TimeInForce != nil {
		order.TimeInForce = *msg.TimeInForce
	}

	if msg.Latency != nil {
		if isCancel {
			order.LatencyCancellation = *msg.Latency
		} else if isPending && order.State != model.OrderStatePending {
			order.LatencyRegistration = *msg.Latency
		}
	}

	model.MergeExtension(&order.Extension, msg.Extension)

	res := OrderResult{Order: order, IsNew: i.announce == announcePending, Changed: true}
	i.announce = announceDone
	return res, nil
}

// ProcessOrderMessage folds an order update into the ledger.
//
// With transactionID zero the order is located by the supplied instance
// or by its venue identifiers only; an unknown order yields no results
// (the ledger never fabricates an order without a transaction id). With
// a non-zero transactionID the message may resolve to a cancellation,
// to a re-registration pair (cancelled order forced Done plus the
// replacing registration, two results in that order), or to a brand
// new order constructed via the entity factory.
//
// The PortfolioResult is non-nil only when the message named a
// portfolio and it was looked up or created for a new order.
func (l *Ledger) ProcessOrderMessage(order *model.Order, security *model.Security, msg *model.ExecutionMessage, transactionID int64) ([]OrderResult, *PortfolioResult, error) {
	if security == nil {
		return nil, nil, ErrNoSecurity
	}
	if msg == nil {
		return nil, nil, ErrNoMessage
	}
	if msg.Error != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHasError, msg.Error)
	}
	if transactionID == 0 && msg.OrderID == nil && msg.OrderStringID == "" {
		return nil, nil, ErrNoIdentity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.data(security)

	if transactionID == 0 {
		info := d.findInfo(order, msg)
		if info == nil {
			// Pure market-data echo for an order this ledger never
			// registered: a resolution miss, not an error.
			return nil, nil, nil
		}
		res, err := info.applyChanges(msg, false)
		if err != nil {
			return nil, nil, err
		}
		l.updateOrderIDs(d, info.order)
		return []OrderResult{res}, nil, nil
	}

	cancelKey, err := NewOrderKey(msg.OrderType, transactionID, true)
	if err != nil {
		return nil, nil, err
	}
	registerKey := cancelKey
	registerKey.IsCancel = false

	cancelled := d.orders[cancelKey]
	registered := d.orders[registerKey]

	if cancelled != nil {
		if registered == nil {
			res, err := cancelled.applyChanges(msg, true)
			if err != nil {
				return nil, nil, err
			}
			l.updateOrderIDs(d, cancelled.order)
			return []OrderResult{res}, nil, nil
		}

		// Re-registration: the cancel and the replacing registration
		// share the transaction id. A genuine working/terminal state on
		// the message closes the cancelled order.
		var results []OrderResult

		if msg.OrderState != nil && cancelled.order.State != model.OrderStateDone &&
			*msg.OrderState != model.OrderStateNone && *msg.OrderState != model.OrderStatePending {
			if !cancelled.order.State.CanTransition(model.OrderStateDone) {
				return nil, nil, fmt.Errorf("%w: %s -> done (transaction %d)",
					ErrInvalidTransition, cancelled.order.State, cancelled.order.TransactionID)
			}
			cancelled.order.State = model.OrderStateDone
			if msg.Latency != nil {
				cancelled.order.LatencyCancellation = *msg.Latency
			}
			results = append(results, OrderResult{Order: cancelled.order, IsNew: false, Changed: true})
		}

		res, err := registered.applyChanges(msg, false)
		if err != nil {
			return nil, nil, err
		}
		l.updateOrderIDs(d, registered.order)
		return append(results, res), nil, nil
	}

	var pfInfo *PortfolioResult

	if registered == nil {
		typ := model.OrderTypeLimit
		if msg.OrderType != nil {
			typ = *msg.OrderType
		}

		o, err := l.factory.CreateOrder(security, typ, transactionID)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: create order %d: %w", transactionID, err)
		}
		if o == nil {
			return nil, nil, fmt.Errorf("%w: order %d", ErrConstruction, transactionID)
		}

		o.Time = msg.ServerTime
		o.Price = msg.OrderPrice
		if msg.Volume != nil {
			o.Volume = *msg.Volume
		}
		o.Side = msg.Side
		o.Comment = msg.Comment
		o.ExpiryDate = msg.ExpiryDate
		o.Condition = msg.Condition
		o.UserOrderID = msg.UserOrderID
		o.ClientCode = msg.ClientCode
		o.BrokerCode = msg.BrokerCode

		if msg.PortfolioName == "" {
			// Best-effort default: some adapters never name the
			// portfolio on order echoes.
			if p, ok := l.portfolios.First(); ok {
				o.Portfolio = p
			}
		} else {
			res, err := l.ProcessPortfolio(msg.PortfolioName, nil)
			if err != nil {
				return nil, nil, err
			}
			o.Portfolio = res.Portfolio
			pfInfo = &res
		}

		if o.Extension == nil {
			o.Extension = make(map[string]any)
		}

		registered = &orderInfo{order: o}
		d.addOrderInfo(registerKey, registered)
		l.ordersByTx[txKey{transactionID, false}] = o
		l.orders = append(l.orders, o)
		l.recycleOrders()
	}

	res, err := registered.applyChanges(msg, false)
	if err != nil {
		return nil, nil, err
	}
	l.updateOrderIDs(d, registered.order)
	return []OrderResult{res}, pfInfo, nil
}

// ProcessOrderFailMessage resolves which operations a failure message
// refers to and records the failure on each.
//
// Resolution when no order is supplied tries, in sequence: the cancel
// key for the declared type; the cancel key forced Conditional when the
// type was unspecified; the register key (same conditional retry); and
// finally a venue string-id lookup inferring cancel-vs-register from
// the most recent keyed index entry. Zero resolved orders yields an
// empty result, not an error.
//
// Only registration failures force the order into Failed; a failed
// cancellation leaves the order state untouched.
func (l *Ledger) ProcessOrderFailMessage(order *model.Order, security *model.Security, msg *model.ExecutionMessage) ([]FailResult, error) {
	if security == nil {
		return nil, ErrNoSecurity
	}
	if msg == nil {
		return nil, ErrNoMessage
	}
	if msg.OriginalTransactionID <= 0 {
		return nil, fmt.Errorf("%w: original transaction id, got %d", ErrTransactionID, msg.OriginalTransactionID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.data(security)

	type candidate struct {
		order    *model.Order
		isCancel bool
	}
	var candidates []candidate

	if order == nil {
		lookup := func(typ *model.OrderType, isCancel bool) *model.Order {
			key, err := NewOrderKey(typ, msg.OriginalTransactionID, isCancel)
			if err != nil {
				return nil
			}
			if info, ok := d.orders[key]; ok {
				return info.order
			}
			return nil
		}

		conditional := model.OrderTypeConditional
		orderType := msg.OrderType

		cancelled := lookup(orderType, true)
		if cancelled == nil && orderType == nil {
			if cancelled = lookup(&conditional, true); cancelled != nil {
				orderType = &conditional
			}
		}
		if cancelled != nil {
			candidates = append(candidates, candidate{cancelled, true})
		}

		registered := lookup(orderType, false)
		if registered == nil && orderType == nil {
			registered = lookup(&conditional, false)
		}
		if registered != nil {
			candidates = append(candidates, candidate{registered, false})
		}

		if cancelled == nil && registered == nil && msg.OrderStringID != "" {
			if o, ok := d.ordersByStringID[normID(msg.OrderStringID)]; ok {
				if key, found := d.lastKeyedOrder(o); found {
					candidates = append(candidates, candidate{o, key.IsCancel})
				}
			}
		}
	} else {
		for _, isCancel := range []bool{true, false} {
			key, err := NewOrderKey(&order.Type, msg.OriginalTransactionID, isCancel)
			if err != nil {
				return nil, err
			}
			if _, ok := d.orders[key]; ok {
				candidates = append(candidates, candidate{order, isCancel})
			}
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]FailResult, 0, len(candidates))
	for _, c := range candidates {
		o := c.order

		o.LastChangeTime = msg.ServerTime
		o.LocalTime = msg.LocalTime

		if msg.OrderStatus != nil {
			o.Status = *msg.OrderStatus
		}

		if !c.isCancel {
			if !o.State.CanTransition(model.OrderStateFailed) {
				return nil, fmt.Errorf("%w: %s -> failed (transaction %d)",
					ErrInvalidTransition, o.State, o.TransactionID)
			}
			o.State = model.OrderStateFailed
		}

		if msg.Commission != nil {
			o.Commission = msg.Commission
		}
		model.MergeExtension(&o.Extension, msg.Extension)

		reason := msg.Error
		if reason == nil {
			if c.isCancel {
				reason = errCancelFailed
			} else {
				reason = errRegisterFailed
			}
		}

		fail, err := l.factory.CreateOrderFail(o, reason)
		if err != nil {
			return nil, fmt.Errorf("ledger: create order fail: %w", err)
		}
		if fail == nil {
			return nil, fmt.Errorf("%w: order fail", ErrConstruction)
		}
		fail.ServerTime = msg.ServerTime
		fail.LocalTime = msg.LocalTime

		results = append(results, FailResult{Fail: fail, IsCancel: c.isCancel})
	}
	return results, nil
}

// RegisterOrder indexes a caller-constructed registration before any
// venue response arrives. The order's own transaction id keys it.
func (l *Ledger) RegisterOrder(order *model.Order) error {
	if order == nil {
		return ErrNoOrder
	}
	if order.Security == nil {
		return ErrNoSecurity
	}
	key, err := NewOrderKey(&order.Type, order.TransactionID, false)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.data(order.Security).addOrderInfo(key, &orderInfo{order: order})
	l.ordersByTx[txKey{order.TransactionID, false}] = order
	l.orders = append(l.orders, order)
	l.recycleOrders()
	return nil
}

// RegisterCancel indexes a cancellation operation targeting an already
// known order under its own transaction id. The cancel entry never
// re-announces the order.
func (l *Ledger) RegisterCancel(order *model.Order, transactionID int64) error {
	if order == nil {
		return ErrNoOrder
	}
	if order.Security == nil {
		return ErrNoSecurity
	}
	key, err := NewOrderKey(&order.Type, transactionID, true)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.data(order.Security).addOrderInfo(key, &orderInfo{order: order, announce: announceDone})
	l.ordersByTx[txKey{transactionID, true}] = order
	return nil
}

// findInfo scans the shard for the order a transaction-less message
// refers to: the caller-supplied instance, else the venue numeric id,
// else the venue string id (case-insensitive).
func (d *securityData) findInfo(order *model.Order, msg *model.ExecutionMessage) *orderInfo {
	for _, info := range d.orders {
		switch {
		case order != nil:
			if info.order == order {
				return info
			}
		case msg.OrderID != nil:
			if info.order.ID == *msg.OrderID {
				return info
			}
		case msg.OrderStringID != "":
			if strings.EqualFold(info.order.StringID, msg.OrderStringID) {
				return info
			}
		}
	}
	return nil
}

// updateOrderIDs refreshes the venue-id indices after an apply. Venue
// ids can repeat across sessions, so the latest order always wins.
func (l *Ledger) updateOrderIDs(d *securityData, order *model.Order) {
	if order.ID != 0 {
		d.ordersByID[order.ID] = order
		l.ordersByID[order.ID] = order
	}
	if order.StringID != "" {
		k := normID(order.StringID)
		d.ordersByStringID[k] = order
		l.ordersByStringID[k] = order
	}
}

// LookupOrder finds an order within a security by transaction id, venue
// id or venue string id, in that fallback sequence.
func (l *Ledger) LookupOrder(security *model.Security, transactionID int64, orderID *int64, stringID string) (*model.Order, error) {
	if security == nil {
		return nil, ErrNoSecurity
	}
	if transactionID == 0 && orderID == nil && stringID == "" {
		return nil, ErrNoIdentity
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	d, ok := l.securityData[security]
	if !ok {
		return nil, nil
	}
	return l.lookupOrderLocked(d, transactionID, orderID, stringID, nil, false), nil
}

func (l *Ledger) lookupOrderLocked(d *securityData, transactionID int64, orderID *int64, stringID string, typ *model.OrderType, isCancel bool) *model.Order {
	if transactionID != 0 {
		if key, err := NewOrderKey(typ, transactionID, isCancel); err == nil {
			if info, ok := d.orders[key]; ok {
				return info.order
			}
		}
	}
	if orderID != nil {
		if o, ok := d.ordersByID[*orderID]; ok {
			return o
		}
	}
	if stringID != "" {
		return d.ordersByStringID[normID(stringID)]
	}
	return nil
}

// OrderByMessage resolves the order a message refers to through the
// global transaction index, preferring the cancellation entry. The
// returned transaction id is zero when the message answers an order
// status request rather than an operation.
func (l *Ledger) OrderByMessage(msg *model.ExecutionMessage) (*model.Order, int64) {
	if msg == nil {
		return nil, 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	transactionID := msg.TransactionID
	if transactionID == 0 {
		transactionID = l.transactionIDLocked(msg.OriginalTransactionID)
	}
	if transactionID == 0 {
		return nil, 0
	}

	if o, ok := l.ordersByTx[txKey{transactionID, true}]; ok {
		return o, transactionID
	}
	return l.ordersByTx[txKey{transactionID, false}], transactionID
}

// OrderByID finds an order by venue numeric id across all securities.
func (l *Ledger) OrderByID(id int64) *model.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ordersByID[id]
}

// OrderByStringID finds an order by venue string id across all
// securities, case-insensitively.
func (l *Ledger) OrderByStringID(stringID string) *model.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ordersByStringID[normID(stringID)]
}
