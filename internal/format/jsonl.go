// Package format renders query results as JSON lines or as terminal views.
// Every function is pure: same input, same bytes.
package format

import (
	"strings"
	"time"

	"github.com/go-faster/jx"

	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/query"
)

// Date is the layout of every timestamp in JSON output.
const Date = time.RFC3339

// lines accumulates compact JSON objects, one per line. Field order is
// fixed by the encode calls.
type lines struct {
	e   jx.Encoder
	out []byte
}

func (l *lines) add(f func(e *jx.Encoder)) {
	l.e.Reset()
	f(&l.e)
	l.out = append(l.out, l.e.Bytes()...)
	l.out = append(l.out, '\n')
}

func (l *lines) String() string { return string(l.out) }

// str writes s with invalid UTF-8 sequences replaced, since strings from
// the server are not validated.
func str(e *jx.Encoder, s string) {
	e.Str(strings.ToValidUTF8(s, "\uFFFD"))
}

func encodeMessage(e *jx.Encoder, m domain.Message, flags ...string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(m.ID)
	e.FieldStart("chat")
	str(e, m.ChatTitle)
	e.FieldStart("sender")
	str(e, m.SenderName)
	e.FieldStart("date")
	e.Str(m.Timestamp.UTC().Format(Date))
	e.FieldStart("text")
	str(e, m.Text)
	for _, f := range flags {
		e.FieldStart(f)
		e.Bool(true)
	}
	e.ObjEnd()
}

// JSONL encodes msgs as JSON lines in the given order.
func JSONL(msgs []domain.Message) string {
	var l lines
	for _, m := range msgs {
		l.add(func(e *jx.Encoder) { encodeMessage(e, m) })
	}
	return l.String()
}

// ThreadJSONL encodes a context window. The target line carries
// "target": true, the message it replies to "replied_to": true.
func ThreadJSONL(th query.Thread) string {
	replyID := 0
	if th.RepliedTo != nil {
		replyID = th.RepliedTo.ID
	}
	var l lines
	for _, m := range th.Messages {
		var flags []string
		if m.ID == th.TargetID {
			flags = append(flags, "target")
		}
		if replyID != 0 && m.ID == replyID {
			flags = append(flags, "replied_to")
		}
		l.add(func(e *jx.Encoder) { encodeMessage(e, m, flags...) })
	}
	return l.String()
}

// ChatsJSONL encodes one line per dialog. The date is null for dialogs
// without a top message.
func ChatsJSONL(chats []domain.ChatInfo) string {
	var l lines
	for _, c := range chats {
		l.add(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(c.ID)
			e.FieldStart("name")
			str(e, c.Title)
			e.FieldStart("type")
			e.Str(c.Type.String())
			e.FieldStart("unread")
			e.Int(c.UnreadCount)
			e.FieldStart("pinned")
			e.Bool(c.Pinned)
			e.FieldStart("date")
			if c.LastTime.IsZero() {
				e.Null()
			} else {
				e.Str(c.LastTime.UTC().Format(Date))
			}
			e.ObjEnd()
		})
	}
	return l.String()
}
