package query

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/domain"
)

// Context returns message id of chatRef with up to n messages on each side,
// oldest first. Two history calls are made: one ending at the target and
// one for the messages above it. Each side asks for up to n extra messages
// so service messages dropped from the window are replaced.
func (o *Orchestrator) Context(ctx context.Context, chatRef string, id, n int) (Thread, error) {
	if err := CheckContext(id, n); err != nil {
		return Thread{}, err
	}

	chat, err := o.ResolveChat(ctx, chatRef)
	if err != nil {
		return Thread{}, err
	}

	side := n + min(n, maxBatch-1-n)
	older, err := o.up.History(ctx, chat, domain.HistoryRequest{OffsetID: id + 1, Limit: side + 1})
	if err != nil {
		return Thread{}, err
	}
	idx := slices.IndexFunc(older, func(m domain.Message) bool { return m.ID == id })
	if idx < 0 {
		return Thread{}, &domain.NotFoundError{What: "message", Query: strconv.Itoa(id)}
	}
	target := older[idx]

	var newer []domain.Message
	if n > 0 {
		newer, err = o.up.History(ctx, chat, domain.HistoryRequest{
			OffsetID:  id + 1,
			AddOffset: -side,
			Limit:     side,
			MinID:     id,
		})
		if err != nil {
			return Thread{}, err
		}
	}

	msgs := mergeAscending(older, newer, id, n)
	th := Thread{Chat: chat, Messages: msgs, TargetID: id}

	if r := target.ReplyToID; r != 0 {
		if i := slices.IndexFunc(msgs, func(m domain.Message) bool { return m.ID == r }); i >= 0 {
			th.RepliedTo = &msgs[i]
			return th, nil
		}
		m, err := o.up.Message(ctx, chat, r)
		switch {
		case err == nil:
			th.RepliedTo = &m
		case errors.Is(err, domain.ErrNotFound):
			o.logger.Debug("reply source missing", zap.Int("id", r))
		default:
			return Thread{}, err
		}
	}
	return th, nil
}

// CheckContext reports the argument errors Context would fail with.
func CheckContext(id, n int) error {
	if id <= 0 {
		return domain.Invalid("context", "message id must be positive, got %d", id)
	}
	if n < 0 || n >= maxBatch {
		return domain.Invalid("context", "context size must be between 0 and %d, got %d", maxBatch-1, n)
	}
	return nil
}

// mergeAscending combines both sides, drops duplicates and keeps at most n
// messages on each side of id.
func mergeAscending(older, newer []domain.Message, id, n int) []domain.Message {
	all := make([]domain.Message, 0, len(older)+len(newer))
	all = append(all, older...)
	all = append(all, newer...)
	slices.SortFunc(all, func(a, b domain.Message) int { return a.ID - b.ID })
	all = slices.CompactFunc(all, func(a, b domain.Message) bool { return a.ID == b.ID })
	all = slices.DeleteFunc(all, func(m domain.Message) bool { return m.Service && m.ID != id })

	t := slices.IndexFunc(all, func(m domain.Message) bool { return m.ID == id })
	lo := max(t-n, 0)
	hi := min(t+n+1, len(all))
	return all[lo:hi]
}
