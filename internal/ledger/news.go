package ledger

import (
	"fmt"

	"github.com/tradeframe/entity-ledger/internal/model"
)

// ProcessNewsMessage folds a news item into the ledger. Items carrying
// an id are deduplicated case-insensitively; others always create a
// new, unindexed entry. Fields merge with set-if-non-empty semantics.
func (l *Ledger) ProcessNewsMessage(security *model.Security, msg *model.NewsMessage) (*model.News, bool, error) {
	if msg == nil {
		return nil, false, ErrNoMessage
	}

	var (
		news  *model.News
		isNew bool
	)

	if msg.ID != "" {
		var err error
		news, isNew, err = l.newsByID.Upsert(normID(msg.ID), func() (*model.News, error) {
			n, err := l.factory.CreateNews()
			if err != nil {
				return nil, fmt.Errorf("ledger: create news: %w", err)
			}
			if n == nil {
				return nil, fmt.Errorf("%w: news %q", ErrConstruction, msg.ID)
			}
			n.ID = msg.ID
			return n, nil
		})
		if err != nil {
			return nil, false, err
		}
	} else {
		n, err := l.factory.CreateNews()
		if err != nil {
			return nil, false, fmt.Errorf("ledger: create news: %w", err)
		}
		if n == nil {
			return nil, false, fmt.Errorf("%w: news", ErrConstruction)
		}
		isNew = true
		news = n

		l.newsMu.Lock()
		l.newsUnkeyed = append(l.newsUnkeyed, n)
		l.newsMu.Unlock()
	}

	if isNew {
		news.ServerTime = msg.ServerTime
		news.LocalTime = msg.LocalTime
	}

	if msg.Source != "" {
		news.Source = msg.Source
	}
	if msg.Headline != "" {
		news.Headline = msg.Headline
	}
	if security != nil {
		news.Security = security
	}
	if msg.Story != "" {
		news.Story = msg.Story
	}
	if msg.BoardCode != "" {
		news.Board = l.boardByCode(msg.BoardCode)
	}
	if msg.URL != "" {
		news.URL = msg.URL
	}
	model.MergeExtension(&news.Extension, msg.Extension)

	return news, isNew, nil
}
