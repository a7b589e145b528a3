package format

import (
	"strings"

	"github.com/danhigham/tgcli/internal/domain"
)

// AuthStatus renders the status, phone and session lines of `tg auth status`.
func AuthStatus(st domain.AuthStatus) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Status: "))
	if st.Authenticated {
		b.WriteString(okStyle.Render("authenticated"))
	} else {
		b.WriteString(badStyle.Render("not authenticated"))
	}
	b.WriteString("\n")
	if st.Phone != "" {
		b.WriteString(labelStyle.Render("Phone: ") + st.Phone + "\n")
	}
	b.WriteString(labelStyle.Render("Session: "))
	if st.SessionExists {
		b.WriteString(okStyle.Render(st.SessionStore))
	} else {
		b.WriteString(badStyle.Render("none"))
	}
	b.WriteString("\n")
	return b.String()
}
