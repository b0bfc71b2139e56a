package ledger

import "errors"

var (
	// ErrNoSecurity is returned when a required security is nil.
	ErrNoSecurity = errors.New("ledger: security is required")

	// ErrNoMessage is returned when a required message is nil.
	ErrNoMessage = errors.New("ledger: message is required")

	// ErrNoIdentity is returned when a message carries no usable
	// identity key (transaction id, exchange id and string id all
	// absent).
	ErrNoIdentity = errors.New("ledger: no transaction id, order id or string id")

	// ErrTransactionID is returned when a transaction id is outside the
	// valid range (must be > 0 to form an order key, >= -1 for keep
	// counts).
	ErrTransactionID = errors.New("ledger: transaction id must be positive")

	// ErrKeepCount is returned when a keep count below -1 is supplied.
	ErrKeepCount = errors.New("ledger: keep count must be >= -1")

	// ErrOrderFailed is a contract violation: an order in the Failed
	// state must never receive further updates.
	ErrOrderFailed = errors.New("ledger: order is in failed state")

	// ErrInvalidTransition is a contract violation: the incoming state
	// is not a legal successor of the order's current state.
	ErrInvalidTransition = errors.New("ledger: invalid order state transition")

	// ErrHasError is returned when an order update carries an error
	// payload; such messages must go through the fail path.
	ErrHasError = errors.New("ledger: message with error must use the fail path")

	// ErrConstruction is returned when the entity factory yields no
	// entity.
	ErrConstruction = errors.New("ledger: entity factory returned nothing")

	// ErrNoName is returned when a required name or id is empty.
	ErrNoName = errors.New("ledger: name is required")

	// ErrNoOrder is returned when a required order is nil.
	ErrNoOrder = errors.New("ledger: order is required")

	// ErrNoPortfolio is returned when a required portfolio is nil.
	ErrNoPortfolio = errors.New("ledger: portfolio is required")
)
