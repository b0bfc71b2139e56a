package ledger_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/model"
)

// countingFactory counts portfolio constructions on top of the default
// factory.
type countingFactory struct {
	ledger.BasicFactory
	portfolios atomic.Int64
}

func (f *countingFactory) CreatePortfolio(name string) (*model.Portfolio, error) {
	f.portfolios.Add(1)
	return f.BasicFactory.CreatePortfolio(name)
}

func TestProcessPortfolio(t *testing.T) {
	l := ledger.New(nil)

	res, err := l.ProcessPortfolio("Alpha", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Created || res.Changed {
		t.Errorf("first sight: Created=%v Changed=%v", res.Created, res.Changed)
	}
	if res.Portfolio.Name != "Alpha" {
		t.Errorf("name = %q, original casing must be kept", res.Portfolio.Name)
	}

	// Names match case-insensitively.
	again, err := l.ProcessPortfolio("ALPHA", nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if again.Created || again.Portfolio != res.Portfolio {
		t.Error("case variant should resolve to the same portfolio without creating")
	}
	if l.PortfolioByName("alpha") != res.Portfolio {
		t.Error("PortfolioByName should match case-insensitively")
	}

	// The change callback marks meaningful updates.
	changed, err := l.ProcessPortfolio("alpha", func(p *model.Portfolio) bool {
		p.CurrentValue = d(100)
		return true
	})
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if changed.Created || !changed.Changed {
		t.Errorf("change: Created=%v Changed=%v", changed.Created, changed.Changed)
	}

	if _, err := l.ProcessPortfolio("", nil); !errors.Is(err, ledger.ErrNoName) {
		t.Errorf("empty name: got %v", err)
	}
}

func TestProcessPortfolio_ConcurrentFirstSight(t *testing.T) {
	factory := &countingFactory{}
	l := ledger.New(factory)

	const workers = 16
	var wg sync.WaitGroup
	got := make([]*model.Portfolio, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.ProcessPortfolio("shared", nil)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			got[i] = res.Portfolio
		}(i)
	}
	wg.Wait()

	if n := factory.portfolios.Load(); n != 1 {
		t.Errorf("constructor ran %d times, want exactly 1", n)
	}
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatal("concurrent callers observed different instances")
		}
	}
	if len(l.Portfolios()) != 1 {
		t.Errorf("registered portfolios = %d, want 1", len(l.Portfolios()))
	}
}

func TestTryAddPosition(t *testing.T) {
	l := ledger.New(nil)
	sec := newSecurity("AAPL@NASDAQ")

	res, err := l.ProcessPortfolio("alpha", nil)
	if err != nil {
		t.Fatal(err)
	}
	pf := res.Portfolio

	pos, created, err := l.TryAddPosition(pf, sec, "depo1", model.TPlusLimitT0, "desc")
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	if pos.DepoName != "depo1" || pos.LimitType != model.TPlusLimitT0 || pos.Description != "desc" {
		t.Errorf("position = %+v", pos)
	}

	same, created, err := l.TryAddPosition(pf, sec, "depo1", model.TPlusLimitT0, "other")
	if err != nil || created || same != pos {
		t.Errorf("duplicate key should return the existing position")
	}

	// A different depo is a different position.
	_, created, err = l.TryAddPosition(pf, sec, "depo2", model.TPlusLimitT0, "")
	if err != nil || !created {
		t.Errorf("distinct depo: created=%v err=%v", created, err)
	}

	if _, _, err := l.TryAddPosition(nil, sec, "", model.TPlusLimitNone, ""); !errors.Is(err, ledger.ErrNoPortfolio) {
		t.Errorf("nil portfolio: got %v", err)
	}
	if _, _, err := l.TryAddPosition(pf, nil, "", model.TPlusLimitNone, ""); !errors.Is(err, ledger.ErrNoSecurity) {
		t.Errorf("nil security: got %v", err)
	}

	if len(l.Positions()) != 2 {
		t.Errorf("positions = %d, want 2", len(l.Positions()))
	}
}
