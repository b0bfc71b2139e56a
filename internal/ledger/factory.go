package ledger

import (
	"github.com/tradeframe/entity-ledger/internal/model"

	"github.com/shopspring/decimal"
)

// EntityFactory constructs domain entities from minimal identifying
// data. Callers may supply their own implementation to hook entity
// creation; any nil result or error surfaces as an operation failure
// and leaves no partial entity registered.
type EntityFactory interface {
	CreateOrder(security *model.Security, typ model.OrderType, transactionID int64) (*model.Order, error)
	CreateTrade(security *model.Security, id int64, stringID string) (*model.Trade, error)
	CreateMyTrade(order *model.Order, trade *model.Trade) (*model.MyTrade, error)
	CreateOrderFail(order *model.Order, reason error) (*model.OrderFail, error)
	CreatePortfolio(name string) (*model.Portfolio, error)
	CreatePosition(portfolio *model.Portfolio, security *model.Security) (*model.Position, error)
	CreateSecurity(id string) (*model.Security, error)
	CreateNews() (*model.News, error)
}

// BasicFactory is the default EntityFactory producing plain model
// values.
type BasicFactory struct{}

func (BasicFactory) CreateOrder(security *model.Security, typ model.OrderType, transactionID int64) (*model.Order, error) {
	return &model.Order{
		Security:      security,
		Type:          typ,
		TransactionID: transactionID,
		Balance:       decimal.Zero,
	}, nil
}

func (BasicFactory) CreateTrade(security *model.Security, id int64, stringID string) (*model.Trade, error) {
	return &model.Trade{Security: security, ID: id, StringID: stringID}, nil
}

func (BasicFactory) CreateMyTrade(order *model.Order, trade *model.Trade) (*model.MyTrade, error) {
	return &model.MyTrade{Order: order, Trade: trade}, nil
}

func (BasicFactory) CreateOrderFail(order *model.Order, reason error) (*model.OrderFail, error) {
	return &model.OrderFail{Order: order, Error: reason, Reason: reason.Error()}, nil
}

func (BasicFactory) CreatePortfolio(name string) (*model.Portfolio, error) {
	return &model.Portfolio{Name: name}, nil
}

func (BasicFactory) CreatePosition(portfolio *model.Portfolio, security *model.Security) (*model.Position, error) {
	return &model.Position{Portfolio: portfolio, Security: security}, nil
}

func (BasicFactory) CreateSecurity(id string) (*model.Security, error) {
	return &model.Security{ID: id}, nil
}

func (BasicFactory) CreateNews() (*model.News, error) {
	return &model.News{}, nil
}
