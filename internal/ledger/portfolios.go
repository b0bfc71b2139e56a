package ledger

import (
	"fmt"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// ProcessPortfolio returns the portfolio for a name (case-insensitive),
// creating it via the entity factory on first sight. The optional
// change callback runs against the resolved portfolio; its boolean
// return marks the portfolio as meaningfully changed. Exactly one of
// Created and Changed is set for notification purposes; a freshly
// created portfolio reports Created only.
func (l *Ledger) ProcessPortfolio(name string, change func(*model.Portfolio) bool) (PortfolioResult, error) {
	if name == "" {
		return PortfolioResult{}, ErrNoName
	}

	p, created, err := l.portfolios.Upsert(normID(name), func() (*model.Portfolio, error) {
		p, err := l.factory.CreatePortfolio(name)
		if err != nil {
			return nil, fmt.Errorf("ledger: create portfolio %q: %w", name, err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: portfolio %q", ErrConstruction, name)
		}
		if p.Extension == nil {
			p.Extension = make(map[string]any)
		}
		return p, nil
	})
	if err != nil {
		return PortfolioResult{}, err
	}

	changed := false
	if change != nil {
		changed = change(p)
	}

	if created {
		return PortfolioResult{Portfolio: p, Created: true}, nil
	}
	return PortfolioResult{Portfolio: p, Changed: changed}, nil
}

// PortfolioByName finds a portfolio case-insensitively.
func (l *Ledger) PortfolioByName(name string) *model.Portfolio {
	p, _ := l.portfolios.Get(normID(name))
	return p
}

// TryAddPosition returns the position for (portfolio, security, depo
// name, limit type), creating it on first sight. The boolean reports
// creation.
func (l *Ledger) TryAddPosition(portfolio *model.Portfolio, security *model.Security, depoName string, limitType model.TPlusLimit, description string) (*model.Position, bool, error) {
	if portfolio == nil {
		return nil, false, ErrNoPortfolio
	}
	if security == nil {
		return nil, false, ErrNoSecurity
	}

	key := positionKey{
		portfolio: portfolio,
		security:  security,
		depoName:  depoName,
		limitType: limitType,
	}

	return l.positions.Upsert(key, func() (*model.Position, error) {
		pos, err := l.factory.CreatePosition(portfolio, security)
		if err != nil {
			return nil, fmt.Errorf("ledger: create position: %w", err)
		}
		if pos == nil {
			return nil, fmt.Errorf("%w: position", ErrConstruction)
		}
		pos.DepoName = depoName
		pos.LimitType = limitType
		pos.Description = description
		if pos.Extension == nil {
			pos.Extension = make(map[string]any)
		}
		return pos, nil
	})
}
