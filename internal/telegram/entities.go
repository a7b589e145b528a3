package telegram

import (
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

type markup struct {
	offset, length int // UTF-16 code units
	prefix, suffix string
}

// EntitiesToMarkdown rewrites a message's plain text and entity list into
// markdown for glamour. Entity offsets count UTF-16 code units.
func EntitiesToMarkdown(text string, entities []tg.MessageEntityClass) string {
	if len(entities) == 0 {
		return text
	}
	units := utf16.Encode([]rune(text))

	spans := make([]markup, 0, len(entities))
	for _, e := range entities {
		if m, ok := toMarkup(units, e); ok && m.length > 0 {
			spans = append(spans, m)
		}
	}
	if len(spans) == 0 {
		return text
	}
	// Outer spans open first and close last.
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].offset != spans[j].offset {
			return spans[i].offset < spans[j].offset
		}
		return spans[i].length > spans[j].length
	})

	opens := make(map[int][]string)
	closes := make(map[int][]string)
	for _, s := range spans {
		start := min(max(s.offset, 0), len(units))
		end := min(start+s.length, len(units))
		opens[start] = append(opens[start], s.prefix)
		closes[end] = append([]string{s.suffix}, closes[end]...)
	}

	var b strings.Builder
	for i := 0; i <= len(units); i++ {
		for _, s := range closes[i] {
			b.WriteString(s)
		}
		for _, s := range opens[i] {
			b.WriteString(s)
		}
		if i == len(units) {
			break
		}
		if utf16.IsSurrogate(rune(units[i])) && i+1 < len(units) {
			b.WriteRune(utf16.DecodeRune(rune(units[i]), rune(units[i+1])))
			i++
			continue
		}
		b.WriteRune(rune(units[i]))
	}
	return b.String()
}

func toMarkup(units []uint16, entity tg.MessageEntityClass) (markup, bool) {
	m := markup{offset: entity.GetOffset(), length: entity.GetLength()}
	switch e := entity.(type) {
	case *tg.MessageEntityBold, *tg.MessageEntityMention, *tg.MessageEntityMentionName,
		*tg.MessageEntityHashtag, *tg.MessageEntityCashtag:
		m.prefix, m.suffix = "**", "**"
	case *tg.MessageEntityItalic, *tg.MessageEntityUnderline:
		m.prefix, m.suffix = "*", "*"
	case *tg.MessageEntityCode, *tg.MessageEntityBotCommand:
		m.prefix, m.suffix = "`", "`"
	case *tg.MessageEntityPre:
		m.prefix, m.suffix = "```"+e.Language+"\n", "\n```"
	case *tg.MessageEntityStrike:
		m.prefix, m.suffix = "~~", "~~"
	case *tg.MessageEntitySpoiler:
		m.prefix, m.suffix = "||", "||"
	case *tg.MessageEntityBlockquote:
		m.prefix = "> "
	case *tg.MessageEntityTextURL:
		m.prefix, m.suffix = "[", "]("+e.URL+")"
	case *tg.MessageEntityURL:
		m.prefix, m.suffix = "[", "]("+utf16Slice(units, m.offset, m.length)+")"
	case *tg.MessageEntityEmail:
		m.prefix, m.suffix = "[", "](mailto:"+utf16Slice(units, m.offset, m.length)+")"
	default:
		return markup{}, false
	}
	return m, true
}

// utf16Slice decodes units[offset:offset+length], clipped to the text.
func utf16Slice(units []uint16, offset, length int) string {
	if offset < 0 || offset >= len(units) {
		return ""
	}
	end := min(offset+length, len(units))
	return string(utf16.Decode(units[offset:end]))
}
