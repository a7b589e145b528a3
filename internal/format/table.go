package format

import (
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/danhigham/tgcli/internal/domain"
)

// MaxCellLines bounds the message column of the search table.
const MaxCellLines = 3

// View renders records for a terminal.
type View struct {
	// Width is the terminal width. Zero lets tables size to content and
	// wraps markdown at 80 columns.
	Width int
	// Location is used for displayed times. Nil means UTC.
	Location *time.Location
}

func (v View) loc() *time.Location {
	if v.Location == nil {
		return time.UTC
	}
	return v.Location
}

func (v View) newTable(headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
	if v.Width > 0 {
		t = t.Width(v.Width)
	}
	return t
}

// SearchTable renders msgs with Date, Chat, Sender and Message columns.
func (v View) SearchTable(msgs []domain.Message) string {
	t := v.newTable("Date", "Chat", "Sender", "Message").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return dimCellStyle
			}
			return cellStyle
		})
	for _, m := range msgs {
		t.Row(
			m.Timestamp.In(v.loc()).Format("2006-01-02 15:04"),
			m.ChatTitle,
			m.SenderName,
			truncateLines(m.Text, MaxCellLines),
		)
	}
	return t.String()
}

// ChatsTable renders dialogs with their type, unread count, pin and last
// activity date.
func (v View) ChatsTable(chats []domain.ChatInfo) string {
	t := v.newTable("Name", "Type", "Unread", "Pinned", "Last message").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2:
				return cellStyle.Align(lipgloss.Right)
			case col == 1 || col == 4:
				return dimCellStyle
			}
			return cellStyle
		})
	for _, c := range chats {
		var unread, pinned, date string
		if c.UnreadCount > 0 {
			unread = strconv.Itoa(c.UnreadCount)
		}
		if c.Pinned {
			pinned = "yes"
		}
		if !c.LastTime.IsZero() {
			date = c.LastTime.In(v.loc()).Format("2006-01-02")
		}
		t.Row(c.Title, c.Type.String(), unread, pinned, date)
	}
	return t.String()
}
