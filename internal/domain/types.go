package domain

import "time"

// ChatType distinguishes private chats from groups and broadcast channels.
type ChatType int

const (
	ChatTypeUser ChatType = iota
	ChatTypeGroup
	ChatTypeChannel
)

func (t ChatType) String() string {
	switch t {
	case ChatTypeGroup:
		return "group"
	case ChatTypeChannel:
		return "channel"
	default:
		return "user"
	}
}

// ChatInfo is a dialog (or resolved peer) known to the session.
type ChatInfo struct {
	ID          int64 // marked ID, see MarkedID
	Title       string
	Username    string
	Type        ChatType
	UnreadCount int
	Pinned      bool
	LastTime    time.Time
	Peer        interface{} // holds tg.InputPeerClass for requests
}

type Message struct {
	ID         int
	ChatID     int64
	ChatTitle  string
	SenderID   int64
	SenderName string
	Text       string
	Markdown   string // Text rewritten from Telegram entities, empty without entities
	Timestamp  time.Time
	Out        bool // true if sent by us
	ReplyToID  int
	Service    bool // join, pin and similar actions; counted for paging, never shown
}

// HistoryRequest mirrors the offset parameters of messages.getHistory.
type HistoryRequest struct {
	OffsetID   int
	OffsetDate int
	AddOffset  int
	Limit      int
	MaxID      int
	MinID      int
}

// SearchRequest mirrors messages.search. From is nil when no sender filter is set.
type SearchRequest struct {
	Query    string
	From     *ChatInfo
	MinDate  int
	MaxDate  int
	OffsetID int
	Limit    int
}

// GlobalSearchRequest mirrors messages.searchGlobal. Cursor is the opaque
// value returned in Page.Next by the previous call, nil for the first page.
type GlobalSearchRequest struct {
	Query   string
	MinDate int
	MaxDate int
	Cursor  interface{}
	Limit   int
}

// Page is one upstream response.
type Page struct {
	Messages []Message
	Next     interface{} // global search cursor, nil when there are no more pages
}

type AuthStatus struct {
	Authenticated bool
	Phone         string // masked
	SessionExists bool
	SessionStore  string
}

const channelMarkOffset = 1000000000000

// MarkedID maps a raw Telegram peer ID to a single signed ID space:
// users stay positive, basic groups become negative and channels are
// shifted below -10^12 (the Bot API convention).
func MarkedID(t ChatType, id int64) int64 {
	switch t {
	case ChatTypeGroup:
		return -id
	case ChatTypeChannel:
		return -(channelMarkOffset + id)
	default:
		return id
	}
}

// UnmarkID is the inverse of MarkedID. Channel IDs and basic group IDs
// can only be told apart by magnitude.
func UnmarkID(id int64) (ChatType, int64) {
	switch {
	case id > 0:
		return ChatTypeUser, id
	case id < -channelMarkOffset:
		return ChatTypeChannel, -id - channelMarkOffset
	default:
		return ChatTypeGroup, -id
	}
}
