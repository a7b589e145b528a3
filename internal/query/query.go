// Package query turns CLI filter arguments into sequences of upstream
// search and history calls and merges the pages into a bounded window.
package query

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/resolve"
	"github.com/danhigham/tgcli/internal/state"
)

// DefaultMaxPages bounds the number of upstream calls per walk.
const DefaultMaxPages = 10

const (
	maxBatch  = 100
	overfetch = 3
)

// Upstream is the subset of the Telegram API the orchestrator needs.
// Message slices are returned in the order the server returns them
// (newest first).
type Upstream interface {
	Self(ctx context.Context) (domain.ChatInfo, error)
	Dialogs(ctx context.Context) ([]domain.ChatInfo, error)
	ResolvePeer(ctx context.Context, ref string) (domain.ChatInfo, error)
	History(ctx context.Context, chat domain.ChatInfo, req domain.HistoryRequest) ([]domain.Message, error)
	// Search searches one chat, or every private chat and basic group when chat is nil.
	Search(ctx context.Context, chat *domain.ChatInfo, req domain.SearchRequest) ([]domain.Message, error)
	SearchGlobal(ctx context.Context, req domain.GlobalSearchRequest) (domain.Page, error)
	Message(ctx context.Context, chat domain.ChatInfo, id int) (domain.Message, error)
}

// Filter is a conjunction of optional predicates. Zero values mean unset.
type Filter struct {
	Query  string
	Chat   string
	Sender string
	After  time.Time // inclusive
	Before time.Time // exclusive
	Limit  int
	Head   bool
}

func (f Filter) validate(op string) error {
	if f.Limit <= 0 {
		return domain.Invalid(op, "limit must be positive, got %d", f.Limit)
	}
	if !f.After.IsZero() && !f.Before.IsZero() && !f.After.Before(f.Before) {
		return domain.Invalid(op, "empty date range: %s is not before %s",
			f.After.Format(time.DateOnly), f.Before.Format(time.DateOnly))
	}
	return nil
}

func (f Filter) inRange(t time.Time) bool {
	if !f.After.IsZero() && t.Before(f.After) {
		return false
	}
	return f.Before.IsZero() || t.Before(f.Before)
}

// Window is an ordered, limit-bounded result. Exhausted reports that the
// page cap stopped the walk while more data was available.
type Window struct {
	Messages  []domain.Message
	Exhausted bool
}

// Thread is a context window around one message.
type Thread struct {
	Chat      domain.ChatInfo
	Messages  []domain.Message // oldest first
	TargetID  int
	RepliedTo *domain.Message
}

type Orchestrator struct {
	up       Upstream
	snap     *state.Snapshot
	logger   *zap.Logger
	maxPages int
	self     *domain.ChatInfo
}

type Option func(*Orchestrator)

// WithMaxPages sets the page cap. Non-positive values keep the default.
func WithMaxPages(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSnapshot shares a dialog snapshot between orchestrators.
func WithSnapshot(s *state.Snapshot) Option {
	return func(o *Orchestrator) { o.snap = s }
}

func New(up Upstream, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		up:       up,
		snap:     state.New(),
		logger:   zap.NewNop(),
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveChat maps a chat reference to a single chat.
func (o *Orchestrator) ResolveChat(ctx context.Context, ref string) (domain.ChatInfo, error) {
	return o.resolve(ctx, "chat", ref)
}

func (o *Orchestrator) resolve(ctx context.Context, what, ref string) (domain.ChatInfo, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return domain.ChatInfo{}, domain.Invalid("resolve", "empty %s reference", what)
	case strings.EqualFold(ref, "me"):
		return o.me(ctx)
	case strings.HasPrefix(ref, "@"), strings.HasPrefix(ref, "+"):
		return o.up.ResolvePeer(ctx, ref)
	}

	chats, err := o.dialogs(ctx)
	if err != nil {
		return domain.ChatInfo{}, err
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if c, ok := o.snap.Lookup(id); ok {
			return c, nil
		}
	}
	c, err := resolve.Resolve(what, ref, chats)
	if err != nil {
		return domain.ChatInfo{}, err
	}
	o.logger.Debug("resolved reference",
		zap.String("kind", what), zap.String("ref", ref),
		zap.String("title", c.Title), zap.Int64("id", c.ID))
	return c, nil
}

func (o *Orchestrator) me(ctx context.Context) (domain.ChatInfo, error) {
	if o.self != nil {
		return *o.self, nil
	}
	self, err := o.up.Self(ctx)
	if err != nil {
		return domain.ChatInfo{}, err
	}
	o.self = &self
	return self, nil
}

// dialogs fills the snapshot on first use.
func (o *Orchestrator) dialogs(ctx context.Context) ([]domain.ChatInfo, error) {
	if o.snap.Loaded() {
		return o.snap.Chats(), nil
	}
	chats, err := o.up.Dialogs(ctx)
	if err != nil {
		return nil, err
	}
	o.snap.Set(chats)
	o.logger.Debug("loaded dialogs", zap.Int("count", len(chats)))
	return o.snap.Chats(), nil
}

func (o *Orchestrator) sender(ctx context.Context, ref string) (*domain.ChatInfo, error) {
	if ref == "" {
		return nil, nil
	}
	c, err := o.resolve(ctx, "sender", ref)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// batchSize is limit, over-fetched when pages are thinned client-side.
func batchSize(limit int, clientSide bool) int {
	n := limit
	if clientSide {
		n *= overfetch
	}
	return min(max(n, 1), maxBatch)
}

func unixOrZero(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return int(t.Unix())
}

func matches(m domain.Message, text string, sender *domain.ChatInfo) bool {
	if sender != nil && m.SenderID != sender.ID {
		return false
	}
	return text == "" || strings.Contains(strings.ToLower(m.Text), strings.ToLower(text))
}
