package ledger_test

import (
	"errors"
	"testing"

	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/model"
)

// makeDone registers an order with a venue id and drives it terminal.
func makeDone(t *testing.T, l *ledger.Ledger, sec *model.Security, tx, venueID int64) *model.Order {
	t.Helper()
	msg := orderMsg(model.OrderStateActive)
	msg.OrderID = &venueID
	results, _, err := l.ProcessOrderMessage(nil, sec, msg, tx)
	if err != nil {
		t.Fatalf("register order %d: %v", tx, err)
	}
	if _, _, err := l.ProcessOrderMessage(nil, sec, orderMsg(model.OrderStateDone), tx); err != nil {
		t.Fatalf("finish order %d: %v", tx, err)
	}
	return results[0].Order
}

func TestOrdersKeep_EvictsOldestTerminal(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")
	if err := l.SetOrdersKeepCount(2); err != nil {
		t.Fatal(err)
	}

	makeDone(t, l, sec, 1, 501)

	// A fill tied to the first order must leave with it.
	fill := tradeMsg()
	fill.TradeID = i64(9001)
	if _, _, err := l.ProcessMyTradeMessage(nil, sec, fill, 1); err != nil {
		t.Fatalf("fill: %v", err)
	}

	makeDone(t, l, sec, 2, 502)
	if got := len(l.Orders()); got != 2 {
		t.Fatalf("below threshold, retained = %d, want 2", got)
	}

	// Third insert reaches 1.5x the bound and prunes to it.
	registerActive(t, l, sec, 3)

	if got := len(l.Orders()); got != 2 {
		t.Fatalf("after recycle, retained = %d, want 2", got)
	}
	for _, o := range l.Orders() {
		if o.TransactionID == 1 {
			t.Error("oldest terminal order should have been evicted")
		}
	}

	// Eviction is atomic across every index.
	if l.OrderByID(501) != nil {
		t.Error("evicted order still resolvable by venue id")
	}
	if o, _ := l.LookupOrder(sec, 1, nil, ""); o != nil {
		t.Error("evicted order still resolvable by transaction id")
	}
	if len(l.MyTrades()) != 0 {
		t.Error("fills of an evicted order should be dropped")
	}
	if l.OrderByID(502) == nil {
		t.Error("retained order lost its venue-id index entry")
	}
}

func TestOrdersKeep_LiveNeverEvicted(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")
	if err := l.SetOrdersKeepCount(1); err != nil {
		t.Fatal(err)
	}

	for tx := int64(1); tx <= 4; tx++ {
		registerActive(t, l, sec, tx)
	}

	// Every order is still working; the bound is soft.
	if got := len(l.Orders()); got != 4 {
		t.Errorf("retained = %d, want all 4 live orders", got)
	}
}

func TestOrdersKeep_ZeroDisablesRetention(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	makeDone(t, l, sec, 1, 501)
	if err := l.SetOrdersKeepCount(0); err != nil {
		t.Fatal(err)
	}

	if len(l.Orders()) != 0 {
		t.Error("keep 0 should clear the retention window")
	}
	if l.OrderByID(501) != nil {
		t.Error("keep 0 should clear the venue-id indices")
	}
	if o, _ := l.LookupOrder(sec, 1, nil, ""); o != nil {
		t.Error("keep 0 should clear the keyed indices")
	}

	// Later inserts still process but leave nothing behind.
	results, _, err := l.ProcessOrderMessage(nil, sec, orderMsg(model.OrderStateActive), 2)
	if err != nil || len(results) != 1 {
		t.Fatalf("insert under keep 0: %v", err)
	}
	if len(l.Orders()) != 0 {
		t.Error("keep 0 should retain nothing after insert")
	}
}

func TestOrdersKeep_Unlimited(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")
	if err := l.SetOrdersKeepCount(ledger.KeepUnlimited); err != nil {
		t.Fatal(err)
	}

	for tx := int64(1); tx <= 50; tx++ {
		makeDone(t, l, sec, tx, 500+tx)
	}
	if got := len(l.Orders()); got != 50 {
		t.Errorf("retained = %d, want 50", got)
	}
}

func TestKeepCount_Validation(t *testing.T) {
	l := ledger.New(nil)

	if l.OrdersKeepCount() != ledger.DefaultOrdersKeepCount {
		t.Errorf("default orders keep = %d", l.OrdersKeepCount())
	}
	if l.TradesKeepCount() != ledger.DefaultTradesKeepCount {
		t.Errorf("default trades keep = %d", l.TradesKeepCount())
	}

	if err := l.SetOrdersKeepCount(-2); !errors.Is(err, ledger.ErrKeepCount) {
		t.Errorf("orders keep -2: got %v", err)
	}
	if err := l.SetTradesKeepCount(-2); !errors.Is(err, ledger.ErrKeepCount) {
		t.Errorf("trades keep -2: got %v", err)
	}
}

func TestTradesKeep_EvictsOldest(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")
	if err := l.SetTradesKeepCount(2); err != nil {
		t.Fatal(err)
	}

	for id := int64(1); id <= 2; id++ {
		msg := tradeMsg()
		msg.TradeID = &id
		if _, _, err := l.ProcessTradeMessage(sec, msg); err != nil {
			t.Fatalf("trade %d: %v", id, err)
		}
	}
	if got := len(l.Trades()); got != 2 {
		t.Fatalf("below threshold, retained = %d", got)
	}

	third := tradeMsg()
	third.TradeID = i64(3)
	if _, _, err := l.ProcessTradeMessage(sec, third); err != nil {
		t.Fatal(err)
	}

	if got := len(l.Trades()); got != 2 {
		t.Errorf("after recycle, retained = %d, want 2", got)
	}
	if l.TradeByID(sec, 1) != nil {
		t.Error("evicted trade still resolvable by id")
	}
	if l.TradeByID(sec, 3) == nil {
		t.Error("newest trade lost its index entry")
	}

	// After eviction the id can be observed again as a fresh trade.
	again := tradeMsg()
	again.TradeID = i64(1)
	_, isNew, err := l.ProcessTradeMessage(sec, again)
	if err != nil || !isNew {
		t.Errorf("re-observation after eviction: isNew=%v err=%v", isNew, err)
	}
}

func TestTradesKeep_ZeroDisablesRetention(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	msg := tradeMsg()
	msg.TradeID = i64(1)
	if _, _, err := l.ProcessTradeMessage(sec, msg); err != nil {
		t.Fatal(err)
	}
	if err := l.SetTradesKeepCount(0); err != nil {
		t.Fatal(err)
	}

	if len(l.Trades()) != 0 || l.TradeByID(sec, 1) != nil {
		t.Error("keep 0 should clear trades and their indices")
	}
}

func TestClear(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	makeDone(t, l, sec, 1, 501)
	msg := tradeMsg()
	msg.TradeID = i64(1)
	if _, _, err := l.ProcessTradeMessage(sec, msg); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ProcessPortfolio("alpha", nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := l.ProcessNewsMessage(sec, &model.NewsMessage{ID: "n1", Headline: "h"}); err != nil {
		t.Fatal(err)
	}

	l.Clear()

	if len(l.Orders()) != 0 || len(l.Trades()) != 0 || len(l.MyTrades()) != 0 {
		t.Error("clear should drop orders, trades and fills")
	}
	if len(l.Portfolios()) != 0 || len(l.News()) != 0 || l.SecurityCount() != 0 {
		t.Error("clear should drop registries")
	}
	if l.OrderByID(501) != nil || l.TradeByID(sec, 1) != nil {
		t.Error("clear should drop every index")
	}
}
