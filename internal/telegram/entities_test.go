package telegram

import (
	"testing"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

func TestEntitiesToMarkdown(t *testing.T) {
	const wave = "\U0001F44B" // two UTF-16 code units

	tests := []struct {
		name     string
		text     string
		entities []tg.MessageEntityClass
		want     string
	}{
		{"no entities", "Hello world", nil, "Hello world"},
		{"bold", "Hello world", []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 6, Length: 5}}, "Hello **world**"},
		{"italic", "Hello world", []tg.MessageEntityClass{&tg.MessageEntityItalic{Offset: 6, Length: 5}}, "Hello *world*"},
		{"code", "Use fmt.Println here", []tg.MessageEntityClass{&tg.MessageEntityCode{Offset: 4, Length: 11}}, "Use `fmt.Println` here"},
		{"pre", "func main() {}", []tg.MessageEntityClass{&tg.MessageEntityPre{Offset: 0, Length: 14, Language: "go"}}, "```go\nfunc main() {}\n```"},
		{"strike", "Hello world", []tg.MessageEntityClass{&tg.MessageEntityStrike{Offset: 6, Length: 5}}, "Hello ~~world~~"},
		{"text url", "Click here for info", []tg.MessageEntityClass{&tg.MessageEntityTextURL{Offset: 6, Length: 4, URL: "https://example.com"}}, "Click [here](https://example.com) for info"},
		{"url", "Visit https://example.com today", []tg.MessageEntityClass{&tg.MessageEntityURL{Offset: 6, Length: 19}}, "Visit [https://example.com](https://example.com) today"},
		{"bot command", "Type /start to begin", []tg.MessageEntityClass{&tg.MessageEntityBotCommand{Offset: 5, Length: 6}}, "Type `/start` to begin"},
		{"blockquote", "This is quoted", []tg.MessageEntityClass{&tg.MessageEntityBlockquote{Offset: 0, Length: 14}}, "> This is quoted"},
		{"email", "Email me at user@example.com", []tg.MessageEntityClass{&tg.MessageEntityEmail{Offset: 12, Length: 16}}, "Email me at [user@example.com](mailto:user@example.com)"},
		{"mention", "Hey @johndoe check this", []tg.MessageEntityClass{&tg.MessageEntityMention{Offset: 4, Length: 8}}, "Hey **@johndoe** check this"},
		{
			"multiple", "Hello bold and italic world",
			[]tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 6, Length: 4}, &tg.MessageEntityItalic{Offset: 15, Length: 6}},
			"Hello **bold** and *italic* world",
		},
		{
			"nested", "Hello world",
			[]tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 0, Length: 11}, &tg.MessageEntityItalic{Offset: 6, Length: 5}},
			"**Hello *world***",
		},
		{
			"nested listed inner first", "Hello world",
			[]tg.MessageEntityClass{&tg.MessageEntityItalic{Offset: 6, Length: 5}, &tg.MessageEntityBold{Offset: 0, Length: 11}},
			"**Hello *world***",
		},
		{"surrogate pair", "Hello " + wave + " world", []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 9, Length: 5}}, "Hello " + wave + " **world**"},
		{"length past end", "Hi there", []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 3, Length: 50}}, "Hi **there**"},
		{"zero length ignored", "Hi", []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 1, Length: 0}}, "Hi"},
		{"unknown entity", "Hi", []tg.MessageEntityClass{&tg.MessageEntityUnknown{Offset: 0, Length: 2}}, "Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntitiesToMarkdown(tt.text, tt.entities); got != tt.want {
				t.Errorf("EntitiesToMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF16Slice(t *testing.T) {
	tests := []struct {
		text   string
		offset int
		length int
		want   string
	}{
		{"Hello world", 6, 5, "world"},
		{"Hello \U0001F44B world", 9, 5, "world"},
		{"Hello \U0001F44B world", 6, 2, "\U0001F44B"},
		{"", 0, 0, ""},
		{"abc", 10, 5, ""},
		{"abc", 1, 10, "bc"},
	}
	for _, tt := range tests {
		units := utf16.Encode([]rune(tt.text))
		if got := utf16Slice(units, tt.offset, tt.length); got != tt.want {
			t.Errorf("utf16Slice(%q, %d, %d) = %q, want %q", tt.text, tt.offset, tt.length, got, tt.want)
		}
	}
}
