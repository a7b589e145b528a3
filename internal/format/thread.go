package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/danhigham/tgcli/internal/query"
)

const defaultWrap = 80

// Thread renders a context window oldest first with day separators. The
// target line is highlighted and the message it replies to is quoted on
// top. Messages that carry Telegram entities go through glamour.
func (v View) Thread(th query.Thread) string {
	md := v.markdown()
	var b strings.Builder

	if r := th.RepliedTo; r != nil {
		b.WriteString(quoteStyle.Render(fmt.Sprintf("  >> %s: %s", r.SenderName, firstLine(r.Text))))
		b.WriteString("\n")
		b.WriteString(daySeparatorStyle.Render("  " + strings.Repeat("-", 40)))
		b.WriteString("\n")
	}

	var day string
	for _, m := range th.Messages {
		ts := m.Timestamp.In(v.loc())
		if d := ts.Format("January 2, 2006"); d != day {
			if day != "" {
				b.WriteString("\n")
			}
			b.WriteString(daySeparatorStyle.Render(fmt.Sprintf("───── %s ─────", d)))
			b.WriteString("\n")
			day = d
		}

		stamp := timeStyle.Render("[" + ts.Format("15:04") + "]")
		name := inNameStyle
		if m.Out {
			name = outNameStyle
		}
		if m.ID == th.TargetID {
			stamp = targetStyle.Render("[" + ts.Format("15:04") + "]")
			name = targetStyle
		}
		head := stamp + " " + name.Render(m.SenderName+":")

		switch {
		case m.Markdown != "":
			fmt.Fprintf(&b, "%s\n%s\n\n", head, md.render(m.Markdown))
		case strings.Contains(m.Text, "\n"):
			fmt.Fprintf(&b, "%s\n%s\n\n", head, m.Text)
		case m.ID == th.TargetID:
			fmt.Fprintf(&b, "%s %s\n", head, targetStyle.Render(m.Text))
		default:
			fmt.Fprintf(&b, "%s %s\n", head, m.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

type markdown struct {
	r *glamour.TermRenderer
}

func (v View) markdown() markdown {
	wrap := v.Width - 2
	if v.Width == 0 {
		wrap = defaultWrap
	}
	if wrap < 10 {
		wrap = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("notty"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return markdown{}
	}
	return markdown{r: r}
}

// render keeps Telegram line breaks, which glamour would fold into
// paragraphs. Blank-line separated blocks that are tables or fenced code
// are rendered whole, everything else line by line.
func (md markdown) render(text string) string {
	if md.r == nil {
		return text
	}
	blocks := strings.Split(text, "\n\n")
	for i, block := range blocks {
		if block == "" {
			continue
		}
		if isMultiLineMarkdown(block) {
			blocks[i] = md.block(block)
			continue
		}
		lines := strings.Split(block, "\n")
		for j, line := range lines {
			if line != "" {
				lines[j] = md.block(line)
			}
		}
		blocks[i] = strings.Join(lines, "\n")
	}
	return strings.Join(blocks, "\n")
}

func (md markdown) block(text string) string {
	r, err := md.r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimLeft(strings.TrimRight(r, "\n "), "\n")
}

// isMultiLineMarkdown reports whether block is a table or fenced code.
func isMultiLineMarkdown(block string) bool {
	if !strings.Contains(block, "\n") {
		return false
	}
	trimmed := strings.TrimSpace(block)
	if strings.HasPrefix(trimmed, "```") {
		return true
	}
	for _, line := range strings.Split(trimmed, "\n") {
		if !strings.Contains(line, "|") {
			return false
		}
	}
	return true
}
