// Package querytest provides an in-memory query.Upstream that follows
// Telegram's offset and limit semantics.
package querytest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/danhigham/tgcli/internal/domain"
)

// Call records one upstream request.
type Call struct {
	Method string
	ChatID int64
	Req    any
}

type Fake struct {
	Me       domain.ChatInfo
	Chats    []domain.ChatInfo
	Peers    map[string]domain.ChatInfo // "@username" and "+phone" references
	Messages map[int64][]domain.Message // by chat ID

	// Err is returned by every call, or only by FailOn when that is set.
	Err    error
	FailOn string

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) record(method string, chat int64, req any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, ChatID: chat, Req: req})
	if f.Err != nil && (f.FailOn == "" || f.FailOn == method) {
		return f.Err
	}
	return nil
}

// Calls returns the recorded calls, optionally only those of one method.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Self(ctx context.Context) (domain.ChatInfo, error) {
	if err := f.record("Self", 0, nil); err != nil {
		return domain.ChatInfo{}, err
	}
	return f.Me, nil
}

func (f *Fake) Dialogs(ctx context.Context) ([]domain.ChatInfo, error) {
	if err := f.record("Dialogs", 0, nil); err != nil {
		return nil, err
	}
	return slices.Clone(f.Chats), nil
}

func (f *Fake) ResolvePeer(ctx context.Context, ref string) (domain.ChatInfo, error) {
	if err := f.record("ResolvePeer", 0, ref); err != nil {
		return domain.ChatInfo{}, err
	}
	c, ok := f.Peers[ref]
	if !ok {
		return domain.ChatInfo{}, &domain.NotFoundError{What: "peer", Query: ref}
	}
	return c, nil
}

// History emulates messages.getHistory: messages are ordered newest first,
// the window starts at the first message older than offset_id (or
// offset_date), shifted by add_offset and clipped to the available range.
func (f *Fake) History(ctx context.Context, chat domain.ChatInfo, req domain.HistoryRequest) ([]domain.Message, error) {
	if err := f.record("History", chat.ID, req); err != nil {
		return nil, err
	}
	var msgs []domain.Message
	for _, m := range newestFirst(f.Messages[chat.ID]) {
		if req.MinID > 0 && m.ID <= req.MinID {
			continue
		}
		if req.MaxID > 0 && m.ID >= req.MaxID {
			continue
		}
		msgs = append(msgs, m)
	}

	p := 0
	switch {
	case req.OffsetID > 0:
		p = firstIndex(msgs, func(m domain.Message) bool { return m.ID < req.OffsetID })
	case req.OffsetDate > 0:
		p = firstIndex(msgs, func(m domain.Message) bool { return int(m.Timestamp.Unix()) < req.OffsetDate })
	}
	start := p + req.AddOffset
	return window(msgs, start, start+req.Limit), nil
}

func (f *Fake) Search(ctx context.Context, chat *domain.ChatInfo, req domain.SearchRequest) ([]domain.Message, error) {
	var id int64
	var src []domain.Message
	if chat != nil {
		id = chat.ID
		src = f.Messages[chat.ID]
	} else {
		for _, msgs := range f.Messages {
			src = append(src, msgs...)
		}
	}
	if err := f.record("Search", id, req); err != nil {
		return nil, err
	}

	var out []domain.Message
	for _, m := range newestFirst(src) {
		if req.OffsetID > 0 && m.ID >= req.OffsetID {
			continue
		}
		if req.From != nil && m.SenderID != req.From.ID {
			continue
		}
		if !matchDate(m, req.MinDate, req.MaxDate) || !contains(m.Text, req.Query) {
			continue
		}
		out = append(out, m)
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

// SearchGlobal uses the index into the ordered result set as its cursor.
func (f *Fake) SearchGlobal(ctx context.Context, req domain.GlobalSearchRequest) (domain.Page, error) {
	if err := f.record("SearchGlobal", 0, req); err != nil {
		return domain.Page{}, err
	}
	var all []domain.Message
	for _, msgs := range f.Messages {
		for _, m := range msgs {
			if contains(m.Text, req.Query) && matchDate(m, req.MinDate, req.MaxDate) {
				all = append(all, m)
			}
		}
	}
	slices.SortFunc(all, func(a, b domain.Message) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		if a.ChatID != b.ChatID {
			if a.ChatID < b.ChatID {
				return -1
			}
			return 1
		}
		return b.ID - a.ID
	})

	start, _ := req.Cursor.(int)
	end := min(start+req.Limit, len(all))
	page := domain.Page{Messages: window(all, start, end)}
	if end < len(all) {
		page.Next = end
	}
	return page, nil
}

func (f *Fake) Message(ctx context.Context, chat domain.ChatInfo, id int) (domain.Message, error) {
	if err := f.record("Message", chat.ID, id); err != nil {
		return domain.Message{}, err
	}
	for _, m := range f.Messages[chat.ID] {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, &domain.NotFoundError{What: "message", Query: "reply"}
}

func newestFirst(msgs []domain.Message) []domain.Message {
	out := slices.Clone(msgs)
	slices.SortFunc(out, func(a, b domain.Message) int { return b.ID - a.ID })
	return out
}

func firstIndex(msgs []domain.Message, pred func(domain.Message) bool) int {
	if i := slices.IndexFunc(msgs, pred); i >= 0 {
		return i
	}
	return len(msgs)
}

func window(msgs []domain.Message, start, end int) []domain.Message {
	start = min(max(start, 0), len(msgs))
	end = min(max(end, start), len(msgs))
	return slices.Clone(msgs[start:end])
}

func matchDate(m domain.Message, minDate, maxDate int) bool {
	ts := int(m.Timestamp.Unix())
	return (minDate == 0 || ts >= minDate) && (maxDate == 0 || ts < maxDate)
}

func contains(text, q string) bool {
	return q == "" || strings.Contains(strings.ToLower(text), strings.ToLower(q))
}
