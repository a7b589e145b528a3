package query

import (
	"context"
	"strings"

	"github.com/danhigham/tgcli/internal/domain"
)

// Chats lists dialogs in snapshot order whose title or username contains
// filter, case-insensitively.
func (o *Orchestrator) Chats(ctx context.Context, filter string, limit int) ([]domain.ChatInfo, error) {
	if limit <= 0 {
		return nil, domain.Invalid("chats", "limit must be positive, got %d", limit)
	}
	chats, err := o.dialogs(ctx)
	if err != nil {
		return nil, err
	}

	lf := strings.ToLower(strings.TrimSpace(filter))
	out := make([]domain.ChatInfo, 0, min(limit, len(chats)))
	for _, c := range chats {
		if lf != "" &&
			!strings.Contains(strings.ToLower(c.Title), lf) &&
			!strings.Contains(strings.ToLower(c.Username), lf) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
