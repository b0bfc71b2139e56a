package ledger

import (
	"strings"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// securityData is the per-security shard of secondary indices. Shards
// are created lazily on first reference and cleared only wholesale; all
// access happens under the owning Ledger's mutex.
type securityData struct {
	orders   map[OrderKey]*orderInfo
	myTrades map[myTradeKey]*model.MyTrade

	tradesByID       map[int64]*model.Trade
	tradesByStringID map[string]*model.Trade
	anonTrades       []*model.Trade

	ordersByID       map[int64]*model.Order
	ordersByStringID map[string]*model.Order

	// orderSeq numbers keyed-index insertions so the fail path can pick
	// the most recent operation referencing an order.
	orderSeq uint64
}

func newSecurityData() *securityData {
	return &securityData{
		orders:           make(map[OrderKey]*orderInfo),
		myTrades:         make(map[myTradeKey]*model.MyTrade),
		tradesByID:       make(map[int64]*model.Trade),
		tradesByStringID: make(map[string]*model.Trade),
		ordersByID:       make(map[int64]*model.Order),
		ordersByStringID: make(map[string]*model.Order),
	}
}

func (d *securityData) addOrderInfo(key OrderKey, info *orderInfo) {
	d.orderSeq++
	info.seq = d.orderSeq
	d.orders[key] = info
}

// lastKeyedOrder returns the most recently indexed operation whose
// order matches, for fail resolution by venue string id.
func (d *securityData) lastKeyedOrder(order *model.Order) (OrderKey, bool) {
	var (
		best    OrderKey
		bestSeq uint64
		found   bool
	)
	for key, info := range d.orders {
		if info.order == order && info.seq >= bestSeq {
			best, bestSeq, found = key, info.seq, true
		}
	}
	return best, found
}

// normID lowercases venue string identifiers; every string-keyed index
// in the ledger matches case-insensitively.
func normID(id string) string {
	return strings.ToLower(id)
}
