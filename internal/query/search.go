package query

import (
	"context"

	"github.com/danhigham/tgcli/internal/domain"
)

// CheckSearch reports the argument errors Search would fail with, without
// touching the upstream.
func (f Filter) CheckSearch() error {
	if f.Query == "" && f.Chat == "" && f.Sender == "" {
		return domain.Invalid("search", "need a query, a chat or a sender")
	}
	if err := f.validate("search"); err != nil {
		return err
	}
	if f.Chat == "" && f.Head {
		return domain.Invalid("search", "oldest-first order needs a chat")
	}
	return nil
}

// Search finds messages across chats. A search scoped to a chat is a read.
func (o *Orchestrator) Search(ctx context.Context, f Filter) (Window, error) {
	if err := f.CheckSearch(); err != nil {
		return Window{}, err
	}
	if f.Chat != "" {
		return o.Read(ctx, f)
	}

	sender, err := o.sender(ctx, f.Sender)
	if err != nil {
		return Window{}, err
	}
	if f.Query == "" {
		return o.searchBySender(ctx, f, *sender)
	}
	return o.searchGlobal(ctx, f, sender)
}

// searchGlobal pages messages.searchGlobal. The server filters text and
// dates; the sender is filtered here.
func (o *Orchestrator) searchGlobal(ctx context.Context, f Filter, sender *domain.ChatInfo) (Window, error) {
	req := domain.GlobalSearchRequest{
		Query:   f.Query,
		MinDate: unixOrZero(f.After),
		MaxDate: unixOrZero(f.Before),
		Limit:   batchSize(f.Limit, sender != nil),
	}
	fetch := func(ctx context.Context) ([]domain.Message, bool, error) {
		page, err := o.up.SearchGlobal(ctx, req)
		if err != nil {
			return nil, false, err
		}
		req.Cursor = page.Next
		return page.Messages, page.Next != nil, nil
	}
	return o.collect(ctx, "search", f.Limit, fetch, func(m domain.Message) verdict {
		if !f.inRange(m.Timestamp) || !matches(m, "", sender) {
			return skip
		}
		return accept
	})
}

// searchBySender pages messages.search over every chat with from_id set.
func (o *Orchestrator) searchBySender(ctx context.Context, f Filter, sender domain.ChatInfo) (Window, error) {
	req := domain.SearchRequest{
		From:    &sender,
		MinDate: unixOrZero(f.After),
		MaxDate: unixOrZero(f.Before),
		Limit:   batchSize(f.Limit, false),
	}
	return o.collect(ctx, "search", f.Limit, o.searchPages(nil, &req), func(m domain.Message) verdict {
		if !f.inRange(m.Timestamp) {
			return skip
		}
		return accept
	})
}

// searchPages walks messages.search newest first by offset_id.
func (o *Orchestrator) searchPages(chat *domain.ChatInfo, req *domain.SearchRequest) fetchFunc {
	return func(ctx context.Context) ([]domain.Message, bool, error) {
		msgs, err := o.up.Search(ctx, chat, *req)
		if err != nil {
			return nil, false, err
		}
		if len(msgs) > 0 {
			req.OffsetID = msgs[len(msgs)-1].ID
		}
		return msgs, len(msgs) == req.Limit, nil
	}
}
