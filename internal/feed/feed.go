// Package feed is a simulated connectivity adapter: it drives the
// ledger with a continuous multi-worker stream of order, trade, fill,
// failure and news messages the way real market-data and transactional
// adapters would, duplicates and out-of-order echoes included.
package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeframe/entity-ledger/internal/api"
	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/metrics"
	"github.com/tradeframe/entity-ledger/internal/model"
	"github.com/tradeframe/entity-ledger/internal/secid"
)

// Broadcaster receives entity events raised by the feed after the
// ledger reports a change. A nil broadcaster disables event streaming.
type Broadcaster interface {
	Broadcast(api.Event)
}

// Config controls the simulation.
type Config struct {
	Workers    int
	Interval   time.Duration
	Securities []string // composite ids, CODE@BOARD
	Portfolios []string
}

// Feed generates messages against one ledger.
type Feed struct {
	ledger     *ledger.Ledger
	hub        Broadcaster
	cfg        Config
	securities []*model.Security
}

// New prepares a feed: securities and portfolios are upserted into the
// ledger ahead of the message stream, as an adapter lookup phase would.
func New(l *ledger.Ledger, hub Broadcaster, cfg Config) (*Feed, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if len(cfg.Securities) == 0 {
		cfg.Securities = []string{"AAPL@NASDAQ", "MSFT@NASDAQ", "SBER@TQBR"}
	}
	if len(cfg.Portfolios) == 0 {
		cfg.Portfolios = []string{"alpha", "hedge"}
	}

	f := &Feed{ledger: l, hub: hub, cfg: cfg}

	for _, id := range cfg.Securities {
		sec, _, err := l.UpsertSecurity(id, secid.Convert)
		if err != nil {
			return nil, err
		}
		f.securities = append(f.securities, sec)
	}
	for _, name := range cfg.Portfolios {
		if _, err := l.ProcessPortfolio(name, nil); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Run starts the worker goroutines and blocks until the context ends.
func (f *Feed) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < f.cfg.Workers; i++ {
		go func(worker int) {
			defer func() { done <- struct{}{} }()
			f.work(ctx, worker)
		}(i)
	}
	for i := 0; i < f.cfg.Workers; i++ {
		<-done
	}
}

func (f *Feed) work(ctx context.Context, worker int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
	// Per-worker transaction-id range; ids are caller-assigned and must
	// not collide across adapters.
	nextTx := int64(worker)*1_000_000 + 1
	var open []int64

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("feed worker stopped", "worker", worker)
			return
		case <-ticker.C:
		}

		sec := f.securities[rng.Intn(len(f.securities))]

		switch rng.Intn(10) {
		case 0, 1, 2:
			tx := nextTx
			nextTx++
			open = append(open, tx)
			f.sendOrder(rng, sec, tx, model.OrderStateActive)
		case 3, 4:
			if len(open) == 0 {
				continue
			}
			tx := open[rng.Intn(len(open))]
			f.sendOrder(rng, sec, tx, model.OrderStateDone)
		case 5, 6:
			f.sendTrade(rng, sec)
		case 7:
			if len(open) == 0 {
				continue
			}
			tx := open[rng.Intn(len(open))]
			f.sendMyTrade(rng, sec, tx)
		case 8:
			tx := nextTx
			nextTx++
			f.sendFail(sec, tx)
		case 9:
			f.sendNews(rng, sec)
		}
	}
}

func (f *Feed) sendOrder(rng *rand.Rand, sec *model.Security, tx int64, state model.OrderState) {
	now := time.Now().UTC()
	volume := decimal.NewFromInt(int64(rng.Intn(100) + 1))
	msg := &model.ExecutionMessage{
		TransactionID: tx,
		OrderState:    &state,
		Side:          model.Side(rng.Intn(2)),
		OrderPrice:    decimal.NewFromInt(int64(rng.Intn(1000) + 100)),
		Volume:        &volume,
		PortfolioName: f.cfg.Portfolios[rng.Intn(len(f.cfg.Portfolios))],
		ServerTime:    now,
		LocalTime:     now,
	}

	start := time.Now()
	results, _, err := f.ledger.ProcessOrderMessage(nil, sec, msg, tx)
	metrics.ProcessLatency.WithLabelValues("order").Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("order").Inc()
	if err != nil {
		slog.Error("order message rejected", "tx", tx, "err", err)
		return
	}

	for _, res := range results {
		kind := "order_changed"
		if res.IsNew {
			kind = "order_new"
			metrics.EntitiesCreated.WithLabelValues("order").Inc()
		}
		if f.hub != nil {
			f.hub.Broadcast(api.Event{
				Type:        kind,
				SecurityID:  sec.ID,
				Transaction: res.Order.TransactionID,
				State:       res.Order.State.String(),
				Price:       res.Order.Price.String(),
				Volume:      res.Order.Volume.String(),
			})
		}
	}
}

func (f *Feed) sendTrade(rng *rand.Rand, sec *model.Security) {
	now := time.Now().UTC()
	volume := decimal.NewFromInt(int64(rng.Intn(50) + 1))
	msg := &model.ExecutionMessage{
		TradePrice:  decimal.NewFromInt(int64(rng.Intn(1000) + 100)),
		TradeVolume: &volume,
		Side:        model.Side(rng.Intn(2)),
		ServerTime:  now,
		LocalTime:   now,
	}
	// Mix venue id styles; a small share stays anonymous.
	switch rng.Intn(3) {
	case 0:
		id := rng.Int63n(1 << 40)
		msg.TradeID = &id
	case 1:
		msg.TradeStringID = uuid.NewString()
	}

	start := time.Now()
	trade, isNew, err := f.ledger.ProcessTradeMessage(sec, msg)
	metrics.ProcessLatency.WithLabelValues("trade").Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("trade").Inc()
	if err != nil {
		slog.Error("trade message rejected", "err", err)
		return
	}
	if isNew {
		metrics.EntitiesCreated.WithLabelValues("trade").Inc()
		if f.hub != nil {
			f.hub.Broadcast(api.Event{
				Type:       "trade",
				SecurityID: sec.ID,
				Price:      trade.Price.String(),
				Volume:     trade.Volume.String(),
			})
		}
	}
}

func (f *Feed) sendMyTrade(rng *rand.Rand, sec *model.Security, tx int64) {
	now := time.Now().UTC()
	id := rng.Int63n(1 << 40)
	volume := decimal.NewFromInt(int64(rng.Intn(10) + 1))
	commission := decimal.NewFromFloat(0.25)
	msg := &model.ExecutionMessage{
		TransactionID: tx,
		TradeID:       &id,
		TradePrice:    decimal.NewFromInt(int64(rng.Intn(1000) + 100)),
		TradeVolume:   &volume,
		Commission:    &commission,
		ServerTime:    now,
		LocalTime:     now,
	}

	start := time.Now()
	mt, isNew, err := f.ledger.ProcessMyTradeMessage(nil, sec, msg, tx)
	metrics.ProcessLatency.WithLabelValues("my_trade").Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("my_trade").Inc()
	if err != nil {
		slog.Error("my trade message rejected", "tx", tx, "err", err)
		return
	}
	if mt == nil {
		metrics.ResolutionMisses.WithLabelValues("my_trade").Inc()
		return
	}
	if isNew {
		metrics.EntitiesCreated.WithLabelValues("my_trade").Inc()
		if f.hub != nil {
			f.hub.Broadcast(api.Event{
				Type:        "my_trade",
				SecurityID:  sec.ID,
				Transaction: mt.Order.TransactionID,
				Price:       mt.Trade.Price.String(),
				Volume:      mt.Trade.Volume.String(),
			})
		}
	}
}

func (f *Feed) sendFail(sec *model.Security, tx int64) {
	now := time.Now().UTC()
	msg := &model.ExecutionMessage{
		OriginalTransactionID: tx,
		ServerTime:            now,
		LocalTime:             now,
	}

	start := time.Now()
	results, err := f.ledger.ProcessOrderFailMessage(nil, sec, msg)
	metrics.ProcessLatency.WithLabelValues("order_fail").Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("order_fail").Inc()
	if err != nil {
		slog.Error("fail message rejected", "tx", tx, "err", err)
		return
	}
	if len(results) == 0 {
		metrics.ResolutionMisses.WithLabelValues("order_fail").Inc()
		return
	}
	for _, res := range results {
		if res.IsCancel {
			f.ledger.AddCancelFail(res.Fail)
		} else {
			f.ledger.AddRegisterFail(res.Fail)
		}
		if f.hub != nil {
			f.hub.Broadcast(api.Event{
				Type:       "order_fail",
				SecurityID: sec.ID,
				Reason:     res.Fail.Reason,
			})
		}
	}
}

func (f *Feed) sendNews(rng *rand.Rand, sec *model.Security) {
	now := time.Now().UTC()
	msg := &model.NewsMessage{
		Source:     "sim",
		Headline:   "simulated headline " + uuid.NewString()[:8],
		ServerTime: now,
		LocalTime:  now,
	}
	// Half the items carry provider ids and deduplicate.
	if rng.Intn(2) == 0 {
		msg.ID = uuid.NewString()
	}

	start := time.Now()
	news, isNew, err := f.ledger.ProcessNewsMessage(sec, msg)
	metrics.ProcessLatency.WithLabelValues("news").Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("news").Inc()
	if err != nil {
		slog.Error("news message rejected", "err", err)
		return
	}
	if isNew {
		metrics.EntitiesCreated.WithLabelValues("news").Inc()
		if f.hub != nil {
			f.hub.Broadcast(api.Event{
				Type:       "news",
				SecurityID: sec.ID,
				Headline:   news.Headline,
			})
		}
	}
}
