package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/domain"
)

type verdict int

const (
	accept verdict = iota
	skip
	halt
)

// fetchFunc returns the next page in walk order and whether another page
// may follow. It owns the pagination cursor.
type fetchFunc func(ctx context.Context) (msgs []domain.Message, more bool, err error)

type msgKey struct {
	chat int64
	id   int
}

// collect drives a paginated walk until limit records are accepted, judge
// halts it, the upstream runs dry or the page cap is reached.
func (o *Orchestrator) collect(ctx context.Context, op string, limit int, fetch fetchFunc, judge func(domain.Message) verdict) (Window, error) {
	seen := make(map[msgKey]struct{})
	out := make([]domain.Message, 0, limit)

	for page := 0; ; page++ {
		if page == o.maxPages {
			o.logger.Warn("page cap reached",
				zap.String("op", op), zap.Int("pages", page), zap.Int("collected", len(out)))
			return Window{Messages: out, Exhausted: true}, nil
		}

		msgs, more, err := fetch(ctx)
		if err != nil {
			return Window{}, err
		}
		o.logger.Debug("fetched page",
			zap.String("op", op), zap.Int("page", page), zap.Int("messages", len(msgs)), zap.Bool("more", more))

		for _, m := range msgs {
			k := msgKey{m.ChatID, m.ID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if m.Service {
				continue
			}

			switch judge(m) {
			case halt:
				return Window{Messages: out}, nil
			case skip:
				continue
			}
			out = append(out, m)
			if len(out) == limit {
				return Window{Messages: out}, nil
			}
		}
		if !more || len(msgs) == 0 {
			return Window{Messages: out}, nil
		}
	}
}
