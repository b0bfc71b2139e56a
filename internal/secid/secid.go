// Package secid handles composite security identifier parsing and
// validation. Identifiers follow the CODE@BOARD convention used across
// the connectivity adapters, e.g. "AAPL@NASDAQ" or "SBER@TQBR".
package secid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// idRegex matches: {code}@{board}
// Example: AAPL@NASDAQ
var idRegex = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z0-9._-]+)$`)

var (
	ErrInvalidID = errors.New("secid: invalid security id format")
)

// ID is a parsed composite security identifier.
type ID struct {
	Raw   string `json:"raw"`
	Code  string `json:"code"`
	Board string `json:"board"`
}

// Parse parses and validates a composite security id string.
// Format: {code}@{board}
func Parse(id string) (*ID, error) {
	matches := idRegex.FindStringSubmatch(id)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected CODE@BOARD)", ErrInvalidID, id)
	}
	return &ID{
		Raw:   id,
		Code:  strings.ToUpper(matches[1]),
		Board: strings.ToUpper(matches[2]),
	}, nil
}

// Format composes a canonical id from code and board.
func Format(code, board string) string {
	return strings.ToUpper(code) + "@" + strings.ToUpper(board)
}

// Convert is a ledger-compatible id conversion: it derives the code and
// board for a security upsert from its composite id.
func Convert(id string) (string, *model.Board, error) {
	parsed, err := Parse(id)
	if err != nil {
		return "", nil, err
	}
	return parsed.Code, &model.Board{Code: parsed.Board}, nil
}
