package query

import (
	"context"
	"slices"

	"github.com/danhigham/tgcli/internal/domain"
)

// CheckRead reports the argument errors Read would fail with.
func (f Filter) CheckRead() error {
	if f.Chat == "" {
		return domain.Invalid("read", "no chat given")
	}
	return f.validate("read")
}

// Read returns messages of one chat, newest first, or oldest first with
// f.Head set.
func (o *Orchestrator) Read(ctx context.Context, f Filter) (Window, error) {
	if err := f.CheckRead(); err != nil {
		return Window{}, err
	}

	chat, err := o.ResolveChat(ctx, f.Chat)
	if err != nil {
		return Window{}, err
	}
	sender, err := o.sender(ctx, f.Sender)
	if err != nil {
		return Window{}, err
	}

	filtered := f.Query != "" || sender != nil
	switch {
	case f.Head:
		return o.readOldest(ctx, chat, f, sender)
	case filtered:
		return o.searchChat(ctx, chat, f, sender)
	default:
		return o.readNewest(ctx, chat, f)
	}
}

// readNewest pages history backwards from f.Before and stops at f.After.
func (o *Orchestrator) readNewest(ctx context.Context, chat domain.ChatInfo, f Filter) (Window, error) {
	req := domain.HistoryRequest{
		OffsetDate: unixOrZero(f.Before),
		Limit:      batchSize(f.Limit, false),
	}
	fetch := func(ctx context.Context) ([]domain.Message, bool, error) {
		msgs, err := o.up.History(ctx, chat, req)
		if err != nil {
			return nil, false, err
		}
		if len(msgs) > 0 {
			req.OffsetID = msgs[len(msgs)-1].ID
			req.OffsetDate = 0
		}
		return msgs, len(msgs) == req.Limit, nil
	}
	return o.collect(ctx, "read", f.Limit, fetch, func(m domain.Message) verdict {
		if !f.After.IsZero() && m.Timestamp.Before(f.After) {
			return halt
		}
		if !f.Before.IsZero() && !m.Timestamp.Before(f.Before) {
			return skip
		}
		return accept
	})
}

// readOldest pages history forwards from f.After and stops at f.Before.
// Telegram has no ascending history call, so each request anchors at the
// newest message seen and asks for the batch above it with a negative
// add_offset. Text and sender predicates are applied here.
func (o *Orchestrator) readOldest(ctx context.Context, chat domain.ChatInfo, f Filter, sender *domain.ChatInfo) (Window, error) {
	batch := batchSize(f.Limit, f.Query != "" || sender != nil)
	req := domain.HistoryRequest{AddOffset: -batch, Limit: batch}
	if f.After.IsZero() {
		req.OffsetID = 1
	} else {
		req.OffsetDate = unixOrZero(f.After)
	}

	fetch := func(ctx context.Context) ([]domain.Message, bool, error) {
		msgs, err := o.up.History(ctx, chat, req)
		if err != nil {
			return nil, false, err
		}
		msgs = slices.Clone(msgs)
		slices.SortFunc(msgs, func(a, b domain.Message) int { return a.ID - b.ID })
		if len(msgs) > 0 {
			req.OffsetID = msgs[len(msgs)-1].ID + 1
			req.OffsetDate = 0
		}
		return msgs, len(msgs) == batch, nil
	}
	return o.collect(ctx, "read", f.Limit, fetch, func(m domain.Message) verdict {
		if !f.Before.IsZero() && !m.Timestamp.Before(f.Before) {
			return halt
		}
		if !f.After.IsZero() && m.Timestamp.Before(f.After) {
			return skip
		}
		if !matches(m, f.Query, sender) {
			return skip
		}
		return accept
	})
}

// searchChat runs messages.search inside one chat with every predicate
// applied server-side.
func (o *Orchestrator) searchChat(ctx context.Context, chat domain.ChatInfo, f Filter, sender *domain.ChatInfo) (Window, error) {
	req := domain.SearchRequest{
		Query:   f.Query,
		From:    sender,
		MinDate: unixOrZero(f.After),
		MaxDate: unixOrZero(f.Before),
		Limit:   batchSize(f.Limit, false),
	}
	return o.collect(ctx, "read", f.Limit, o.searchPages(&chat, &req), func(m domain.Message) verdict {
		if !f.inRange(m.Timestamp) {
			return skip
		}
		return accept
	})
}
