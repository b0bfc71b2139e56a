package ledger

import (
	"fmt"
	"strings"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// UpsertSecurity returns the security for an id (case-insensitive),
// creating it via the entity factory on first sight. The convert
// callback derives the code and board from the composite id; derived
// values never overwrite fields the factory already set. The boolean
// reports creation.
func (l *Ledger) UpsertSecurity(id string, convert func(id string) (code string, board *model.Board, err error)) (*model.Security, bool, error) {
	if id == "" {
		return nil, false, ErrNoName
	}

	return l.securities.Upsert(normID(id), func() (*model.Security, error) {
		s, err := l.factory.CreateSecurity(id)
		if err != nil {
			return nil, fmt.Errorf("ledger: create security %q: %w", id, err)
		}
		if s == nil {
			return nil, fmt.Errorf("%w: security %q", ErrConstruction, id)
		}
		if s.Extension == nil {
			s.Extension = make(map[string]any)
		}

		if convert != nil {
			code, board, err := convert(id)
			if err != nil {
				return nil, err
			}
			if s.Board == nil {
				s.Board = board
			}
			if s.Code == "" {
				s.Code = code
			}
			if s.Name == "" {
				s.Name = code
			}
			if s.Class == "" && board != nil {
				s.Class = board.Code
			}
		}
		return s, nil
	})
}

// SecurityByID finds a security case-insensitively.
func (l *Ledger) SecurityByID(id string) *model.Security {
	s, _ := l.securities.Get(normID(id))
	return s
}

// SecuritiesByCode returns every security with the given code,
// case-insensitively.
func (l *Ledger) SecuritiesByCode(code string) []*model.Security {
	var out []*model.Security
	for _, s := range l.securities.Values() {
		if strings.EqualFold(s.Code, code) {
			out = append(out, s)
		}
	}
	return out
}

// AddSecurityNativeID maps an adapter-native identifier onto an already
// known security.
func (l *Ledger) AddSecurityNativeID(native any, id string) {
	s := l.SecurityByID(id)
	if s == nil {
		return
	}
	l.nativeMu.Lock()
	l.nativeIDs[native] = s
	l.nativeMu.Unlock()
}

// SecurityByNativeID finds a security by its adapter-native identifier.
func (l *Ledger) SecurityByNativeID(native any) *model.Security {
	l.nativeMu.RLock()
	defer l.nativeMu.RUnlock()
	return l.nativeIDs[native]
}

// NativeID returns the adapter-native identifier mapped onto a
// security, if any.
func (l *Ledger) NativeID(security *model.Security) any {
	l.nativeMu.RLock()
	defer l.nativeMu.RUnlock()
	for native, s := range l.nativeIDs {
		if s == security {
			return native
		}
	}
	return nil
}

// AddBoard registers a board by code (case-insensitive); an existing
// board with the same code is kept.
func (l *Ledger) AddBoard(board *model.Board) error {
	if board == nil || board.Code == "" {
		return ErrNoName
	}
	_, _, err := l.boards.Upsert(normID(board.Code), func() (*model.Board, error) {
		return board, nil
	})
	return err
}

// boardByCode is the get-or-create used when messages reference a
// board only by code.
func (l *Ledger) boardByCode(code string) *model.Board {
	b, _, _ := l.boards.Upsert(normID(code), func() (*model.Board, error) {
		return &model.Board{Code: code}, nil
	})
	return b
}
