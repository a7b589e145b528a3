package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/query/dialogs"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/domain"
)

// upstream implements query.Upstream over one authorized connection. It
// remembers every user and chat seen in responses so later messages can be
// labelled. Not safe for concurrent use.
type upstream struct {
	api    *tg.Client
	self   *tg.User
	logger *zap.Logger
	known  map[int64]domain.ChatInfo // by marked ID
}

func newUpstream(api *tg.Client, self *tg.User, logger *zap.Logger) *upstream {
	u := &upstream{
		api:    api,
		self:   self,
		logger: logger.Named("upstream"),
		known:  make(map[int64]domain.ChatInfo),
	}
	u.addUsers([]tg.UserClass{self})
	return u
}

// globalCursor is the offset triple of messages.searchGlobal.
type globalCursor struct {
	rate int
	peer tg.InputPeerClass
	id   int
}

func (u *upstream) Self(ctx context.Context) (domain.ChatInfo, error) {
	me := u.known[u.self.ID]
	me.Peer = &tg.InputPeerSelf{}
	return me, nil
}

func (u *upstream) Dialogs(ctx context.Context) ([]domain.ChatInfo, error) {
	iter := dialogs.NewQueryBuilder(u.api).GetDialogs().BatchSize(100).Iter()

	var result []domain.ChatInfo
	for iter.Next(ctx) {
		elem := iter.Value()
		dlg, ok := elem.Dialog.(*tg.Dialog)
		if !ok {
			continue
		}

		info := u.entityInfo(elem)
		info.Peer = elem.Peer
		info.UnreadCount = dlg.UnreadCount
		info.Pinned = dlg.Pinned
		if msg, ok := elem.Last.(*tg.Message); ok {
			info.LastTime = time.Unix(int64(msg.Date), 0).UTC()
		}
		u.known[info.ID] = info
		result = append(result, info)
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("dialogs", err)
	}
	u.logger.Debug("dialogs loaded", zap.Int("count", len(result)))
	return result, nil
}

// entityInfo describes the peer of a dialog from the entities shipped with it.
func (u *upstream) entityInfo(elem dialogs.Elem) domain.ChatInfo {
	switch p := elem.Dialog.GetPeer().(type) {
	case *tg.PeerUser:
		if usr, ok := elem.Entities.User(p.UserID); ok {
			return userInfo(usr)
		}
	case *tg.PeerChat:
		if ch, ok := elem.Entities.Chat(p.ChatID); ok {
			return domain.ChatInfo{ID: domain.MarkedID(domain.ChatTypeGroup, ch.ID), Title: ch.Title, Type: domain.ChatTypeGroup}
		}
	case *tg.PeerChannel:
		if ch, ok := elem.Entities.Channel(p.ChannelID); ok {
			return channelInfo(ch)
		}
	}
	return domain.ChatInfo{ID: markedPeerID(elem.Dialog.GetPeer()), Title: "Unknown"}
}

func (u *upstream) ResolvePeer(ctx context.Context, ref string) (domain.ChatInfo, error) {
	var (
		res *tg.ContactsResolvedPeer
		err error
	)
	if strings.HasPrefix(ref, "+") {
		res, err = u.api.ContactsResolvePhone(ctx, strings.TrimPrefix(ref, "+"))
	} else {
		res, err = u.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: strings.TrimPrefix(ref, "@"),
		})
	}
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "PHONE_NOT_OCCUPIED", "PHONE_NUMBER_INVALID") {
			return domain.ChatInfo{}, &domain.NotFoundError{What: "chat", Query: ref}
		}
		return domain.ChatInfo{}, wrap("resolve "+ref, err)
	}

	u.addUsers(res.Users)
	u.addChats(res.Chats)
	info, ok := u.known[markedPeerID(res.Peer)]
	if !ok {
		return domain.ChatInfo{}, &domain.NotFoundError{What: "chat", Query: ref}
	}
	return info, nil
}

func (u *upstream) History(ctx context.Context, chat domain.ChatInfo, req domain.HistoryRequest) ([]domain.Message, error) {
	peer, err := inputPeer(chat)
	if err != nil {
		return nil, err
	}
	res, err := u.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:       peer,
		OffsetID:   req.OffsetID,
		OffsetDate: req.OffsetDate,
		AddOffset:  req.AddOffset,
		Limit:      req.Limit,
		MaxID:      req.MaxID,
		MinID:      req.MinID,
	})
	if err != nil {
		return nil, wrap("get history", err)
	}
	return u.messages(res)
}

func (u *upstream) Search(ctx context.Context, chat *domain.ChatInfo, req domain.SearchRequest) ([]domain.Message, error) {
	r := &tg.MessagesSearchRequest{
		Peer:     &tg.InputPeerEmpty{},
		Q:        req.Query,
		Filter:   &tg.InputMessagesFilterEmpty{},
		MinDate:  req.MinDate,
		MaxDate:  req.MaxDate,
		OffsetID: req.OffsetID,
		Limit:    req.Limit,
	}
	if chat != nil {
		peer, err := inputPeer(*chat)
		if err != nil {
			return nil, err
		}
		r.Peer = peer
	}
	if req.From != nil {
		from, err := inputPeer(*req.From)
		if err != nil {
			return nil, err
		}
		r.SetFromID(from)
	}

	res, err := u.api.MessagesSearch(ctx, r)
	if err != nil {
		return nil, wrap("search", err)
	}
	return u.messages(res)
}

func (u *upstream) SearchGlobal(ctx context.Context, req domain.GlobalSearchRequest) (domain.Page, error) {
	cur, _ := req.Cursor.(globalCursor)
	if cur.peer == nil {
		cur.peer = &tg.InputPeerEmpty{}
	}
	res, err := u.api.MessagesSearchGlobal(ctx, &tg.MessagesSearchGlobalRequest{
		Q:          req.Query,
		Filter:     &tg.InputMessagesFilterEmpty{},
		MinDate:    req.MinDate,
		MaxDate:    req.MaxDate,
		OffsetRate: cur.rate,
		OffsetPeer: cur.peer,
		OffsetID:   cur.id,
		Limit:      req.Limit,
	})
	if err != nil {
		return domain.Page{}, wrap("search global", err)
	}
	msgs, err := u.messages(res)
	if err != nil {
		return domain.Page{}, err
	}

	page := domain.Page{Messages: msgs}
	if slice, ok := res.(*tg.MessagesMessagesSlice); ok && len(msgs) > 0 && len(msgs) == req.Limit {
		last := msgs[len(msgs)-1]
		next := globalCursor{peer: &tg.InputPeerEmpty{}, id: last.ID}
		if r, ok := slice.GetNextRate(); ok {
			next.rate = r
		} else {
			next.rate = int(last.Timestamp.Unix())
		}
		if c, ok := u.known[last.ChatID]; ok {
			if p, ok := c.Peer.(tg.InputPeerClass); ok {
				next.peer = p
			}
		}
		page.Next = next
	}
	return page, nil
}

func (u *upstream) Message(ctx context.Context, chat domain.ChatInfo, id int) (domain.Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if p, ok := chat.Peer.(*tg.InputPeerChannel); ok {
		res, err = u.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: p.ChannelID, AccessHash: p.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = u.api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		if tgerr.Is(err, "MESSAGE_ID_INVALID") {
			return domain.Message{}, &domain.NotFoundError{What: "message", Query: strconv.Itoa(id)}
		}
		return domain.Message{}, wrap("get message", err)
	}

	msgs, err := u.messages(res)
	if err != nil {
		return domain.Message{}, err
	}
	for _, m := range msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, &domain.NotFoundError{What: "message", Query: strconv.Itoa(id)}
}

// messages converts a messages.Messages response, keeping server order.
// Service messages are kept, flagged, so page sizes match the request.
func (u *upstream) messages(result tg.MessagesMessagesClass) ([]domain.Message, error) {
	var (
		raw   []tg.MessageClass
		users []tg.UserClass
		chats []tg.ChatClass
	)
	switch r := result.(type) {
	case *tg.MessagesMessages:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesSlice:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesChannelMessages:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesNotModified:
		return nil, nil
	default:
		return nil, &domain.OpError{Op: "messages", Kind: domain.ErrUpstream, Msg: fmt.Sprintf("unexpected response %T", result)}
	}
	u.addUsers(users)
	u.addChats(chats)

	out := make([]domain.Message, 0, len(raw))
	for _, m := range raw {
		switch msg := m.(type) {
		case *tg.Message:
			out = append(out, u.convertMessage(msg))
		case *tg.MessageService:
			chatID := markedPeerID(msg.PeerID)
			out = append(out, domain.Message{
				ID:        msg.ID,
				ChatID:    chatID,
				ChatTitle: u.title(chatID),
				Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
				Out:       msg.Out,
				Service:   true,
			})
		}
	}
	return out, nil
}

func (u *upstream) convertMessage(msg *tg.Message) domain.Message {
	chatID := markedPeerID(msg.PeerID)

	var senderID int64
	switch {
	case msg.FromID != nil:
		senderID = markedPeerID(msg.FromID)
	case msg.Out:
		senderID = u.self.ID
	default:
		// Private chats and channel posts carry no from_id.
		senderID = chatID
	}

	m := domain.Message{
		ID:         msg.ID,
		ChatID:     chatID,
		ChatTitle:  u.title(chatID),
		SenderID:   senderID,
		SenderName: u.title(senderID),
		Text:       msg.Message,
		Timestamp:  time.Unix(int64(msg.Date), 0).UTC(),
		Out:        msg.Out,
	}
	if len(msg.Entities) > 0 {
		m.Markdown = EntitiesToMarkdown(msg.Message, msg.Entities)
	}
	if h, ok := msg.ReplyTo.(*tg.MessageReplyHeader); ok {
		m.ReplyToID = h.ReplyToMsgID
	}
	return m
}

func (u *upstream) title(id int64) string {
	if c, ok := u.known[id]; ok && c.Title != "" {
		return c.Title
	}
	return "Unknown"
}

func (u *upstream) addUsers(users []tg.UserClass) {
	for _, uc := range users {
		usr, ok := uc.(*tg.User)
		if !ok {
			continue
		}
		info := userInfo(usr)
		if prev, ok := u.known[info.ID]; ok {
			info.UnreadCount, info.Pinned, info.LastTime = prev.UnreadCount, prev.Pinned, prev.LastTime
		}
		u.known[info.ID] = info
	}
}

func (u *upstream) addChats(chats []tg.ChatClass) {
	for _, cc := range chats {
		var info domain.ChatInfo
		switch ch := cc.(type) {
		case *tg.Chat:
			info = domain.ChatInfo{
				ID:    domain.MarkedID(domain.ChatTypeGroup, ch.ID),
				Title: ch.Title,
				Type:  domain.ChatTypeGroup,
				Peer:  &tg.InputPeerChat{ChatID: ch.ID},
			}
		case *tg.ChatForbidden:
			info = domain.ChatInfo{
				ID:    domain.MarkedID(domain.ChatTypeGroup, ch.ID),
				Title: ch.Title,
				Type:  domain.ChatTypeGroup,
				Peer:  &tg.InputPeerChat{ChatID: ch.ID},
			}
		case *tg.Channel:
			info = channelInfo(ch)
		case *tg.ChannelForbidden:
			info = domain.ChatInfo{
				ID:    domain.MarkedID(domain.ChatTypeChannel, ch.ID),
				Title: ch.Title,
				Type:  domain.ChatTypeChannel,
				Peer:  &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
			}
		default:
			continue
		}
		if prev, ok := u.known[info.ID]; ok {
			info.UnreadCount, info.Pinned, info.LastTime = prev.UnreadCount, prev.Pinned, prev.LastTime
		}
		u.known[info.ID] = info
	}
}

func userInfo(usr *tg.User) domain.ChatInfo {
	return domain.ChatInfo{
		ID:       domain.MarkedID(domain.ChatTypeUser, usr.ID),
		Title:    formatUserName(usr),
		Username: usr.Username,
		Type:     domain.ChatTypeUser,
		Peer:     &tg.InputPeerUser{UserID: usr.ID, AccessHash: usr.AccessHash},
	}
}

func channelInfo(ch *tg.Channel) domain.ChatInfo {
	return domain.ChatInfo{
		ID:       domain.MarkedID(domain.ChatTypeChannel, ch.ID),
		Title:    ch.Title,
		Username: ch.Username,
		Type:     domain.ChatTypeChannel,
		Peer:     &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
	}
}

func markedPeerID(p tg.PeerClass) int64 {
	switch p := p.(type) {
	case *tg.PeerUser:
		return domain.MarkedID(domain.ChatTypeUser, p.UserID)
	case *tg.PeerChat:
		return domain.MarkedID(domain.ChatTypeGroup, p.ChatID)
	case *tg.PeerChannel:
		return domain.MarkedID(domain.ChatTypeChannel, p.ChannelID)
	default:
		return 0
	}
}

func inputPeer(chat domain.ChatInfo) (tg.InputPeerClass, error) {
	if p, ok := chat.Peer.(tg.InputPeerClass); ok && p != nil {
		return p, nil
	}
	return nil, domain.Invalid("peer", "no access handle for chat %q", chat.Title)
}

// formatUserName returns a display name for a user.
func formatUserName(u *tg.User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// wrap classifies a gotd error. The upstream message is kept as the cause.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if auth.IsUnauthorized(err) || tgerr.Is(err, "AUTH_KEY_UNREGISTERED", "SESSION_REVOKED", "USER_DEACTIVATED") {
		return &domain.OpError{Op: op, Kind: domain.ErrAuthRequired, Msg: "session is no longer valid, run `tg auth login`", Err: err}
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &domain.OpError{Op: op, Kind: domain.ErrUpstream, Msg: fmt.Sprintf("rate limited by Telegram, retry in %s", d), Err: err}
	}
	if tgerr.Is(err, "PEER_ID_INVALID", "CHANNEL_INVALID", "MSG_ID_INVALID") {
		return &domain.OpError{Op: op, Kind: domain.ErrNotFound, Err: err}
	}
	return &domain.OpError{Op: op, Kind: domain.ErrUpstream, Err: err}
}
