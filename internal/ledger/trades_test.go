package ledger_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/model"
)

func tradeMsg() *model.ExecutionMessage {
	vol := d(5)
	return &model.ExecutionMessage{
		TradePrice:  d(100),
		TradeVolume: &vol,
		Side:        model.SideSell,
		ServerTime:  baseTime,
		LocalTime:   baseTime,
	}
}

func TestProcessTradeMessage_DedupByID(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	msg := tradeMsg()
	msg.TradeID = i64(1001)

	first, isNew, err := l.ProcessTradeMessage(sec, msg)
	if err != nil || !isNew {
		t.Fatalf("first observation: trade=%v isNew=%v err=%v", first, isNew, err)
	}
	if first.ID != 1001 || !first.Price.Equal(d(100)) {
		t.Errorf("trade = %+v", first)
	}

	second, isNew, err := l.ProcessTradeMessage(sec, msg)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if isNew || second != first {
		t.Error("duplicate id should return the same instance, not new")
	}

	if l.TradeByID(sec, 1001) != first {
		t.Error("TradeByID should resolve the deduplicated trade")
	}
	if len(l.Trades()) != 1 {
		t.Errorf("retained trades = %d, want 1", len(l.Trades()))
	}
}

func TestProcessTradeMessage_DedupByStringID(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	msg := tradeMsg()
	msg.TradeStringID = "T-AbC"

	first, isNew, err := l.ProcessTradeMessage(sec, msg)
	if err != nil || !isNew {
		t.Fatalf("first observation: %v %v", isNew, err)
	}

	// Same id, different case.
	dup := tradeMsg()
	dup.TradeStringID = "t-abc"
	second, isNew, err := l.ProcessTradeMessage(sec, dup)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if isNew || second != first {
		t.Error("string ids must match case-insensitively")
	}
	if l.TradeByStringID(sec, "T-ABC") != first {
		t.Error("TradeByStringID should match case-insensitively")
	}
}

func TestProcessTradeMessage_AnonymousAlwaysNew(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	for i := 0; i < 3; i++ {
		_, isNew, err := l.ProcessTradeMessage(sec, tradeMsg())
		if err != nil || !isNew {
			t.Fatalf("anonymous trade %d: isNew=%v err=%v", i, isNew, err)
		}
	}
	if len(l.Trades()) != 3 {
		t.Errorf("retained trades = %d, want 3", len(l.Trades()))
	}
}

func TestProcessTradeMessage_ConcurrentFirstSight(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	const workers = 16
	var wg sync.WaitGroup
	got := make([]*model.Trade, workers)
	var news atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := tradeMsg()
			msg.TradeID = i64(3001)
			trade, isNew, err := l.ProcessTradeMessage(sec, msg)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			got[i] = trade
			if isNew {
				news.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if n := news.Load(); n != 1 {
		t.Errorf("first observations = %d, want exactly 1", n)
	}
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatal("concurrent callers observed different trade instances")
		}
	}
	if len(l.Trades()) != 1 {
		t.Errorf("retained trades = %d, want 1", len(l.Trades()))
	}
}

func TestGetTrade_CallerConstruction(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	calls := 0
	create := func(id int64, stringID string) (*model.Trade, error) {
		calls++
		return &model.Trade{Security: sec, ID: id, Price: d(42)}, nil
	}

	first, isNew, err := l.GetTrade(sec, i64(7), "", create)
	if err != nil || !isNew {
		t.Fatalf("first: %v %v", isNew, err)
	}
	second, isNew, err := l.GetTrade(sec, i64(7), "", create)
	if err != nil || isNew || second != first {
		t.Fatalf("second: trade=%v isNew=%v err=%v", second, isNew, err)
	}
	if calls != 1 {
		t.Errorf("constructor ran %d times, want 1", calls)
	}
}

func TestProcessMyTradeMessage(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	registerActive(t, l, sec, 1)

	msg := tradeMsg()
	msg.TradeID = i64(2001)
	msg.Commission = dp(0.5)
	msg.PnL = dp(12)

	mt, isNew, err := l.ProcessMyTradeMessage(nil, sec, msg, 1)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !isNew || mt == nil {
		t.Fatal("first fill should be new")
	}
	if mt.Order == nil || mt.Order.TransactionID != 1 {
		t.Errorf("fill order = %+v", mt.Order)
	}
	if mt.Trade == nil || mt.Trade.ID != 2001 {
		t.Errorf("fill trade = %+v", mt.Trade)
	}
	if mt.Commission == nil || !mt.Commission.Equal(d(0.5)) {
		t.Errorf("commission = %v", mt.Commission)
	}
	if mt.PnL == nil || !mt.PnL.Equal(d(12)) {
		t.Errorf("pnl = %v", mt.PnL)
	}

	dup, isNew, err := l.ProcessMyTradeMessage(nil, sec, msg, 1)
	if err != nil {
		t.Fatalf("duplicate fill: %v", err)
	}
	if isNew || dup != mt {
		t.Error("duplicate (transaction, trade) must dedup to the same fill")
	}
	if len(l.MyTrades()) != 1 {
		t.Errorf("retained fills = %d, want 1", len(l.MyTrades()))
	}
}

func TestProcessMyTradeMessage_UnresolvedOrderDropped(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	msg := tradeMsg()
	msg.TradeID = i64(2001)

	mt, isNew, err := l.ProcessMyTradeMessage(nil, sec, msg, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mt != nil || isNew {
		t.Error("fill with no resolvable order must be dropped, not fabricated")
	}
}

func TestProcessMyTradeMessage_ResolvesByVenueID(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	assign := orderMsg(model.OrderStateActive)
	assign.OrderID = i64(555)
	results, _, err := l.ProcessOrderMessage(nil, sec, assign, 1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	o := results[0].Order

	// The fill names the venue id only; it must land on the same order
	// and dedup under that order's transaction id.
	msg := tradeMsg()
	msg.TradeID = i64(2002)
	msg.OrderID = i64(555)

	mt, isNew, err := l.ProcessMyTradeMessage(nil, sec, msg, 0)
	if err != nil || !isNew {
		t.Fatalf("fill: isNew=%v err=%v", isNew, err)
	}
	if mt.Order != o {
		t.Error("fill should resolve the order by venue id")
	}

	dup, isNew, err := l.ProcessMyTradeMessage(nil, sec, msg, 1)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if isNew || dup != mt {
		t.Error("same fill seen through the transaction id must dedup")
	}
}
