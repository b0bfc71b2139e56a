package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/metrics"
	"github.com/tradeframe/entity-ledger/internal/model"
)

// Service serves read-only snapshots of the ledger's collections.
// Every response is a point-in-time copy, never a live view.
type Service struct {
	ledger *ledger.Ledger
}

// NewService creates a new inspection service over a ledger.
func NewService(l *ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// Routes mounts the inspection routes on a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Get("/orders", s.ListOrders)
	r.Get("/trades", s.ListTrades)
	r.Get("/mytrades", s.ListMyTrades)
	r.Get("/portfolios", s.ListPortfolios)
	r.Get("/positions", s.ListPositions)
	r.Get("/securities", s.ListSecurities)
	r.Get("/securities/{securityID}/orders", s.ListSecurityOrders)
	r.Get("/news", s.ListNews)
	r.Get("/fails/register", s.ListRegisterFails)
	r.Get("/fails/cancel", s.ListCancelFails)
	r.Get("/stats", s.Stats)
}

// ListOrders handles GET /orders
func (s *Service) ListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.Orders())
}

// ListTrades handles GET /trades
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.Trades())
}

// ListMyTrades handles GET /mytrades
func (s *Service) ListMyTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.MyTrades())
}

// ListPortfolios handles GET /portfolios
func (s *Service) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.Portfolios())
}

// ListPositions handles GET /positions
func (s *Service) ListPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.Positions())
}

// ListSecurities handles GET /securities
func (s *Service) ListSecurities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.Securities())
}

// ListSecurityOrders handles GET /securities/{securityID}/orders?state=active
func (s *Service) ListSecurityOrders(w http.ResponseWriter, r *http.Request) {
	securityID := chi.URLParam(r, "securityID")
	security := s.ledger.SecurityByID(securityID)
	if security == nil {
		writeError(w, "security not found", http.StatusNotFound)
		return
	}

	state, err := parseState(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	orders, err := s.ledger.OrdersBySecurity(security, state)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeJSON(w, orders)
}

// ListNews handles GET /news
func (s *Service) ListNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.News())
}

// ListRegisterFails handles GET /fails/register
func (s *Service) ListRegisterFails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.RegisterFails())
}

// ListCancelFails handles GET /fails/cancel
func (s *Service) ListCancelFails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger.CancelFails())
}

// Stats handles GET /stats
func (s *Service) Stats(w http.ResponseWriter, r *http.Request) {
	orders := s.ledger.Orders()
	trades := s.ledger.Trades()
	metrics.RetainedOrders.Set(float64(len(orders)))
	metrics.RetainedTrades.Set(float64(len(trades)))

	writeJSON(w, map[string]any{
		"orders":            len(orders),
		"trades":            len(trades),
		"my_trades":         len(s.ledger.MyTrades()),
		"portfolios":        len(s.ledger.Portfolios()),
		"positions":         len(s.ledger.Positions()),
		"securities":        s.ledger.SecurityCount(),
		"news":              len(s.ledger.News()),
		"register_fails":    len(s.ledger.RegisterFails()),
		"cancel_fails":      len(s.ledger.CancelFails()),
		"orders_keep_count": s.ledger.OrdersKeepCount(),
		"trades_keep_count": s.ledger.TradesKeepCount(),
	})
}

func parseState(raw string) (model.OrderState, error) {
	switch raw {
	case "", "active":
		return model.OrderStateActive, nil
	case "none":
		return model.OrderStateNone, nil
	case "pending":
		return model.OrderStatePending, nil
	case "done":
		return model.OrderStateDone, nil
	case "failed":
		return model.OrderStateFailed, nil
	default:
		if n, err := strconv.Atoi(raw); err == nil {
			return model.OrderState(n), nil
		}
		return 0, &stateError{raw}
	}
}

type stateError struct{ raw string }

func (e *stateError) Error() string { return "unknown order state: " + e.raw }

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
