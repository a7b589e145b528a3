package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danhigham/tgcli/internal/domain"
)

func testUpstream() *upstream {
	self := &tg.User{ID: 1, FirstName: "Me", Phone: "15551234567"}
	u := newUpstream(nil, self, zap.NewNop())
	u.addUsers([]tg.UserClass{&tg.User{ID: 2, FirstName: "Alice", LastName: "Smith", Username: "alice"}})
	u.addChats([]tg.ChatClass{
		&tg.Chat{ID: 10, Title: "Family"},
		&tg.Channel{ID: 20, Title: "News", Username: "news", AccessHash: 99},
	})
	return u
}

func TestConvertMessage(t *testing.T) {
	u := testUpstream()
	date := int(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Unix())

	tests := []struct {
		name       string
		msg        *tg.Message
		chatID     int64
		chatTitle  string
		senderID   int64
		senderName string
	}{
		{
			name:   "group message",
			msg:    &tg.Message{ID: 5, PeerID: &tg.PeerChat{ChatID: 10}, FromID: &tg.PeerUser{UserID: 2}, Date: date},
			chatID: -10, chatTitle: "Family", senderID: 2, senderName: "Alice Smith",
		},
		{
			name:   "incoming private message",
			msg:    &tg.Message{ID: 6, PeerID: &tg.PeerUser{UserID: 2}, Date: date},
			chatID: 2, chatTitle: "Alice Smith", senderID: 2, senderName: "Alice Smith",
		},
		{
			name:   "outgoing private message",
			msg:    &tg.Message{ID: 7, PeerID: &tg.PeerUser{UserID: 2}, Out: true, Date: date},
			chatID: 2, chatTitle: "Alice Smith", senderID: 1, senderName: "Me",
		},
		{
			name:   "channel post",
			msg:    &tg.Message{ID: 8, PeerID: &tg.PeerChannel{ChannelID: 20}, Date: date},
			chatID: -1000000000020, chatTitle: "News", senderID: -1000000000020, senderName: "News",
		},
		{
			name:   "unknown sender",
			msg:    &tg.Message{ID: 9, PeerID: &tg.PeerChat{ChatID: 10}, FromID: &tg.PeerUser{UserID: 404}, Date: date},
			chatID: -10, chatTitle: "Family", senderID: 404, senderName: "Unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := u.convertMessage(tt.msg)
			if m.ChatID != tt.chatID || m.ChatTitle != tt.chatTitle {
				t.Errorf("chat = (%d, %q), want (%d, %q)", m.ChatID, m.ChatTitle, tt.chatID, tt.chatTitle)
			}
			if m.SenderID != tt.senderID || m.SenderName != tt.senderName {
				t.Errorf("sender = (%d, %q), want (%d, %q)", m.SenderID, m.SenderName, tt.senderID, tt.senderName)
			}
			if !m.Timestamp.Equal(time.Unix(int64(date), 0)) || m.Timestamp.Location() != time.UTC {
				t.Errorf("Timestamp = %v", m.Timestamp)
			}
		})
	}
}

func TestConvertMessage_ReplyAndEntities(t *testing.T) {
	u := testUpstream()
	m := u.convertMessage(&tg.Message{
		ID:       3,
		PeerID:   &tg.PeerUser{UserID: 2},
		Message:  "Hello world",
		Entities: []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 6, Length: 5}},
		ReplyTo:  &tg.MessageReplyHeader{ReplyToMsgID: 1},
	})
	if m.ReplyToID != 1 {
		t.Errorf("ReplyToID = %d, want 1", m.ReplyToID)
	}
	if m.Text != "Hello world" || m.Markdown != "Hello **world**" {
		t.Errorf("Text = %q, Markdown = %q", m.Text, m.Markdown)
	}
}

func TestMessages_KeepsServerOrderAndFlagsService(t *testing.T) {
	u := testUpstream()
	res := &tg.MessagesMessagesSlice{
		Messages: []tg.MessageClass{
			&tg.Message{ID: 12, PeerID: &tg.PeerChat{ChatID: 10}, FromID: &tg.PeerUser{UserID: 3}},
			&tg.MessageService{ID: 11, PeerID: &tg.PeerChat{ChatID: 10}, Action: &tg.MessageActionChatJoinedByLink{}},
			&tg.MessageEmpty{ID: 10},
			&tg.Message{ID: 9, PeerID: &tg.PeerChat{ChatID: 10}, FromID: &tg.PeerUser{UserID: 2}},
		},
		Users: []tg.UserClass{&tg.User{ID: 3, FirstName: "Bob"}},
	}

	msgs, err := u.messages(res)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].ID != 12 || msgs[1].ID != 11 || msgs[2].ID != 9 {
		t.Errorf("order = %d, %d, %d", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
	if !msgs[1].Service || msgs[0].Service {
		t.Error("only the service message should be flagged")
	}
	if msgs[0].SenderName != "Bob" {
		t.Errorf("users of the response should be learned, got %q", msgs[0].SenderName)
	}
}

func TestSelfAndKnownPeers(t *testing.T) {
	u := testUpstream()
	me, err := u.Self(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if me.ID != 1 || me.Title != "Me" {
		t.Errorf("Self() = %+v", me)
	}
	if _, ok := me.Peer.(*tg.InputPeerSelf); !ok {
		t.Errorf("Self peer = %T, want *tg.InputPeerSelf", me.Peer)
	}

	news := u.known[-1000000000020]
	p, ok := news.Peer.(*tg.InputPeerChannel)
	if !ok || p.ChannelID != 20 || p.AccessHash != 99 {
		t.Errorf("channel peer = %#v", news.Peer)
	}
	if news.Type != domain.ChatTypeChannel || news.Username != "news" {
		t.Errorf("channel info = %+v", news)
	}
}

func TestInputPeer(t *testing.T) {
	if _, err := inputPeer(domain.ChatInfo{Title: "x"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for chat without peer, got %v", err)
	}
	p, err := inputPeer(domain.ChatInfo{Peer: &tg.InputPeerChat{ChatID: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := p.(*tg.InputPeerChat); !ok || c.ChatID != 3 {
		t.Errorf("inputPeer() = %#v", p)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"unauthorized", tgerr.New(401, "AUTH_KEY_UNREGISTERED"), domain.ErrAuthRequired},
		{"revoked", tgerr.New(401, "SESSION_REVOKED"), domain.ErrAuthRequired},
		{"flood wait", tgerr.New(420, "FLOOD_WAIT_30"), domain.ErrUpstream},
		{"bad peer", tgerr.New(400, "PEER_ID_INVALID"), domain.ErrNotFound},
		{"other", tgerr.New(500, "INTERNAL"), domain.ErrUpstream},
		{"plain", errors.New("connection reset"), domain.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("op", tt.err)
			if !errors.Is(err, tt.kind) {
				t.Errorf("wrap() = %v, want kind %v", err, tt.kind)
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause must be preserved")
			}
		})
	}

	if err := wrap("op", context.Canceled); err != context.Canceled {
		t.Errorf("cancellation must pass through, got %v", err)
	}
	if wrap("op", nil) != nil {
		t.Error("wrap(nil) must be nil")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	var calls int
	next := telegram.InvokeFunc(func(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
		calls++
		return nil
	})
	invoke := rateLimit(lim).Handle(next)

	if err := invoke(context.Background(), nil, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := invoke(ctx, nil, nil); err == nil {
		t.Error("expected the limiter to reject a cancelled call")
	}
	if calls != 1 {
		t.Errorf("next invoked %d times, want 1", calls)
	}
}

func TestMaskPhone(t *testing.T) {
	tests := map[string]string{
		"15551234567": "155******67",
		"123456":      "123*56",
		"12345":       "12345",
		"":            "",
	}
	for in, want := range tests {
		if got := MaskPhone(in); got != want {
			t.Errorf("MaskPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *scriptedPrompter) Prompt(ctx context.Context, label string) (string, error) {
	p.asked = append(p.asked, label)
	return p.answers[label], nil
}

func (p *scriptedPrompter) Secret(ctx context.Context, label string) (string, error) {
	return p.Prompt(ctx, label)
}

func TestPromptAuth(t *testing.T) {
	p := &scriptedPrompter{answers: map[string]string{
		"Phone number (international format, e.g. +15551234567)": " +1 555 123 4567 ",
		"Login code (sent to your Telegram app)":                 " 12345\n",
		"Two-step verification password":                         "hunter2",
	}}
	a := promptAuth{p: p}
	ctx := context.Background()

	if phone, _ := a.Phone(ctx); phone != "+15551234567" {
		t.Errorf("Phone() = %q", phone)
	}
	if code, _ := a.Code(ctx, &tg.AuthSentCode{Type: &tg.AuthSentCodeTypeApp{Length: 5}}); code != "12345" {
		t.Errorf("Code() = %q", code)
	}
	if pw, _ := a.Password(ctx); pw != "hunter2" {
		t.Errorf("Password() = %q", pw)
	}
	if _, err := a.SignUp(ctx); err == nil {
		t.Error("SignUp must fail")
	}
}
