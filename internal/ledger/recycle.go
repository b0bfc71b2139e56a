package ledger

import "github.com/tradeframe/entity-ledger/internal/model"

// Eviction starts only once the total reaches 1.5x the keep count, so
// a steady stream of inserts does not prune on every call.
const recycleThreshold = 1.5

// recycleTrades prunes the oldest trades down to the keep count,
// removing each from the global sequence and from every per-security
// index it appears in. Callers must hold l.mu.
func (l *Ledger) recycleTrades() {
	if l.tradesKeep == 0 {
		l.trades = nil
		for _, d := range l.securityData {
			d.tradesByID = make(map[int64]*model.Trade)
			d.tradesByStringID = make(map[string]*model.Trade)
			d.anonTrades = nil
		}
		return
	}

	total := len(l.trades)
	if l.tradesKeep == KeepUnlimited || float64(total) < recycleThreshold*float64(l.tradesKeep) {
		return
	}

	removeCount := total - l.tradesKeep
	toRemove := l.trades[:removeCount]
	l.trades = append([]*model.Trade(nil), l.trades[removeCount:]...)

	for _, t := range toRemove {
		d, ok := l.securityData[t.Security]
		if !ok {
			continue
		}
		switch {
		case t.ID != 0:
			delete(d.tradesByID, t.ID)
		case t.StringID != "":
			delete(d.tradesByStringID, normID(t.StringID))
		default:
			for i, anon := range d.anonTrades {
				if anon == t {
					d.anonTrades = append(d.anonTrades[:i], d.anonTrades[i+1:]...)
					break
				}
			}
		}
	}
}

// recycleOrders prunes the oldest terminal orders down to the keep
// count. Live orders are never evicted, so the retained count can stay
// above the bound while orders remain working. An evicted order leaves
// every index at once: the global sequence, the transaction/id/string
// indices, its security shard, and every dependent fill. Callers must
// hold l.mu.
func (l *Ledger) recycleOrders() {
	if l.ordersKeep == 0 {
		l.orders = nil
		l.ordersByTx = make(map[txKey]*model.Order)
		l.ordersByID = make(map[int64]*model.Order)
		l.ordersByStringID = make(map[string]*model.Order)
		for _, d := range l.securityData {
			d.orders = make(map[OrderKey]*orderInfo)
			d.ordersByID = make(map[int64]*model.Order)
			d.ordersByStringID = make(map[string]*model.Order)
		}
		return
	}

	total := len(l.orders)
	if l.ordersKeep == KeepUnlimited || float64(total) < recycleThreshold*float64(l.ordersKeep) {
		return
	}

	removeCount := total - l.ordersKeep
	toRemove := make(map[*model.Order]struct{}, removeCount)

	kept := l.orders[:0]
	for _, o := range l.orders {
		if len(toRemove) < removeCount && o.State.IsTerminal() {
			toRemove[o] = struct{}{}
			continue
		}
		kept = append(kept, o)
	}
	l.orders = kept

	if len(toRemove) == 0 {
		return
	}

	keptTrades := l.myTrades[:0]
	for _, mt := range l.myTrades {
		if _, gone := toRemove[mt.Order]; !gone {
			keptTrades = append(keptTrades, mt)
		}
	}
	l.myTrades = keptTrades

	for k, o := range l.ordersByTx {
		if _, gone := toRemove[o]; gone {
			delete(l.ordersByTx, k)
		}
	}
	for k, o := range l.ordersByID {
		if _, gone := toRemove[o]; gone {
			delete(l.ordersByID, k)
		}
	}
	for k, o := range l.ordersByStringID {
		if _, gone := toRemove[o]; gone {
			delete(l.ordersByStringID, k)
		}
	}

	for _, d := range l.securityData {
		for k, info := range d.orders {
			if _, gone := toRemove[info.order]; gone {
				delete(d.orders, k)
			}
		}
		for k, mt := range d.myTrades {
			if _, gone := toRemove[mt.Order]; gone {
				delete(d.myTrades, k)
			}
		}
		for k, o := range d.ordersByID {
			if _, gone := toRemove[o]; gone {
				delete(d.ordersByID, k)
			}
		}
		for k, o := range d.ordersByStringID {
			if _, gone := toRemove[o]; gone {
				delete(d.ordersByStringID, k)
			}
		}
	}
}
