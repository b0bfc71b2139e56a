package ledger

import (
	"fmt"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// ProcessTradeMessage folds a public trade into the ledger. Trades are
// deduplicated per security by venue numeric id first, else by venue
// string id; a trade carrying neither is always new. The boolean
// reports first observation.
func (l *Ledger) ProcessTradeMessage(security *model.Security, msg *model.ExecutionMessage) (*model.Trade, bool, error) {
	if security == nil {
		return nil, false, ErrNoSecurity
	}
	if msg == nil {
		return nil, false, ErrNoMessage
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.getTradeLocked(security, msg.TradeID, msg.TradeStringID, func(id int64, stringID string) (*model.Trade, error) {
		return l.tradeFromMessage(security, msg, id, stringID)
	})
}

// GetTrade is the get-or-create entry point for collaborators holding
// their own construction callback. The first caller to observe a given
// id constructs and inserts; later observations return the same
// instance with isNew false.
func (l *Ledger) GetTrade(security *model.Security, id *int64, stringID string, create func(id int64, stringID string) (*model.Trade, error)) (*model.Trade, bool, error) {
	if security == nil {
		return nil, false, ErrNoSecurity
	}
	if create == nil {
		return nil, false, fmt.Errorf("%w: trade constructor", ErrConstruction)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.getTradeLocked(security, id, stringID, create)
}

func (l *Ledger) tradeFromMessage(security *model.Security, msg *model.ExecutionMessage, id int64, stringID string) (*model.Trade, error) {
	t, err := l.factory.CreateTrade(security, id, stringID)
	if err != nil {
		return nil, fmt.Errorf("ledger: create trade: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: trade", ErrConstruction)
	}
	t.Price = msg.TradePrice
	if msg.TradeVolume != nil {
		t.Volume = *msg.TradeVolume
	}
	t.Side = msg.Side
	t.Time = msg.ServerTime
	t.LocalTime = msg.LocalTime
	model.MergeExtension(&t.Extension, msg.Extension)
	return t, nil
}

func (l *Ledger) getTradeLocked(security *model.Security, id *int64, stringID string, create func(id int64, stringID string) (*model.Trade, error)) (*model.Trade, bool, error) {
	d := l.data(security)

	switch {
	case id != nil:
		if t, ok := d.tradesByID[*id]; ok {
			return t, false, nil
		}
		t, err := create(*id, stringID)
		if err != nil {
			return nil, false, err
		}
		if t == nil {
			return nil, false, fmt.Errorf("%w: trade %d", ErrConstruction, *id)
		}
		d.tradesByID[*id] = t
		l.addTradeLocked(t)
		return t, true, nil

	case stringID != "":
		key := normID(stringID)
		if t, ok := d.tradesByStringID[key]; ok {
			return t, false, nil
		}
		t, err := create(0, stringID)
		if err != nil {
			return nil, false, err
		}
		if t == nil {
			return nil, false, fmt.Errorf("%w: trade %q", ErrConstruction, stringID)
		}
		d.tradesByStringID[key] = t
		l.addTradeLocked(t)
		return t, true, nil

	default:
		// Anonymous trade: no dedup key exists, always new.
		t, err := create(0, "")
		if err != nil {
			return nil, false, err
		}
		if t == nil {
			return nil, false, fmt.Errorf("%w: trade", ErrConstruction)
		}
		d.anonTrades = append(d.anonTrades, t)
		l.addTradeLocked(t)
		return t, true, nil
	}
}

func (l *Ledger) addTradeLocked(t *model.Trade) {
	l.trades = append(l.trades, t)
	l.recycleTrades()
}

// ProcessMyTradeMessage folds an execution fill into the ledger. Fills
// are deduplicated by (order transaction id, trade id). When the owning
// order cannot be resolved the fill is dropped (nil, false, nil): the
// caller must not fabricate a fill with no order.
func (l *Ledger) ProcessMyTradeMessage(order *model.Order, security *model.Security, msg *model.ExecutionMessage, transactionID int64) (*model.MyTrade, bool, error) {
	if security == nil {
		return nil, false, ErrNoSecurity
	}
	if msg == nil {
		return nil, false, ErrNoMessage
	}
	if transactionID == 0 && msg.OrderID == nil && msg.OrderStringID == "" {
		return nil, false, ErrNoIdentity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.data(security)

	var tradeID int64
	if msg.TradeID != nil {
		tradeID = *msg.TradeID
	}
	if mt, ok := d.myTrades[myTradeKey{transactionID, tradeID}]; ok {
		return mt, false, nil
	}

	if order == nil {
		order = l.lookupOrderLocked(d, transactionID, msg.OrderID, msg.OrderStringID, nil, false)
		if order == nil {
			return nil, false, nil
		}
	}

	trade, _, err := l.getTradeLocked(security, msg.TradeID, msg.TradeStringID, func(id int64, stringID string) (*model.Trade, error) {
		return l.tradeFromMessage(security, msg, id, stringID)
	})
	if err != nil {
		return nil, false, err
	}

	key := myTradeKey{order.TransactionID, trade.ID}
	if mt, ok := d.myTrades[key]; ok {
		return mt, false, nil
	}

	mt, err := l.factory.CreateMyTrade(order, trade)
	if err != nil {
		return nil, false, fmt.Errorf("ledger: create my trade: %w", err)
	}
	if mt == nil {
		return nil, false, fmt.Errorf("%w: my trade", ErrConstruction)
	}

	if mt.Extension == nil {
		mt.Extension = make(map[string]any)
	}
	if msg.Commission != nil {
		mt.Commission = msg.Commission
	}
	if msg.Slippage != nil {
		mt.Slippage = msg.Slippage
	}
	if msg.PnL != nil {
		mt.PnL = msg.PnL
	}
	if msg.Position != nil {
		mt.Position = msg.Position
	}
	model.MergeExtension(&mt.Extension, msg.Extension)

	d.myTrades[key] = mt
	l.myTrades = append(l.myTrades, mt)

	return mt, true, nil
}

// TradeByID finds a deduplicated trade by venue numeric id.
func (l *Ledger) TradeByID(security *model.Security, id int64) *model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.securityData[security]; ok {
		return d.tradesByID[id]
	}
	return nil
}

// TradeByStringID finds a deduplicated trade by venue string id,
// case-insensitively.
func (l *Ledger) TradeByStringID(security *model.Security, stringID string) *model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.securityData[security]; ok {
		return d.tradesByStringID[normID(stringID)]
	}
	return nil
}
