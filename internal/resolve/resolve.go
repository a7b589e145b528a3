// Package resolve maps free-text chat and sender references to dialogs.
//
// Matching is a pure function of the snapshot passed in. A reference is
// first compared as a case-insensitive substring of every display name. Only
// when nothing contains it does resolution fall back to fuzzy subsequence
// scoring (github.com/sahilm/fuzzy), keeping candidates that score at least
// MinFuzzyScore.
package resolve

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/danhigham/tgcli/internal/domain"
)

// MinFuzzyScore is the lowest fuzzy score accepted as a match. The scorer
// subtracts one point per unmatched character of the candidate and awards
// bonuses for matches at word starts and adjacent runs, so a negative score
// means the reference is scattered thinly across a much longer name.
const MinFuzzyScore = 0

// titles adapts a chat slice to fuzzy.Source.
type titles []domain.ChatInfo

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// Resolve returns the single chat the query refers to. what names the kind
// of reference ("chat", "sender") in errors.
func Resolve(what, query string, chats []domain.ChatInfo) (domain.ChatInfo, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return domain.ChatInfo{}, domain.Invalid("resolve", "empty %s reference", what)
	}
	lq := strings.ToLower(q)

	var contains, exact []domain.ChatInfo
	for _, c := range chats {
		lt := strings.ToLower(c.Title)
		if !strings.Contains(lt, lq) {
			continue
		}
		contains = append(contains, c)
		if lt == lq {
			exact = append(exact, c)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return domain.ChatInfo{}, ambiguous(what, q, exact)
	case len(contains) == 1:
		return contains[0], nil
	case len(contains) > 1:
		return domain.ChatInfo{}, ambiguous(what, q, contains)
	}

	var candidates []domain.ChatInfo
	for _, m := range fuzzy.FindFrom(q, titles(chats)) {
		if m.Score >= MinFuzzyScore {
			candidates = append(candidates, chats[m.Index])
		}
	}
	switch len(candidates) {
	case 0:
		return domain.ChatInfo{}, &domain.NotFoundError{What: what, Query: q}
	case 1:
		return candidates[0], nil
	default:
		return domain.ChatInfo{}, ambiguous(what, q, candidates)
	}
}

func ambiguous(what, query string, chats []domain.ChatInfo) error {
	names := make([]string, len(chats))
	for i, c := range chats {
		names[i] = c.Title
	}
	return &domain.AmbiguousError{What: what, Query: query, Candidates: names}
}
