package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/format"
	"github.com/danhigham/tgcli/internal/query"
)

const (
	defaultSearchLimit = 20
	defaultReadLimit   = 50
	defaultContext     = 5
)

// filterFlags are the predicate flags shared by search and read.
type filterFlags struct {
	chat   string
	from   string
	query  string
	after  string
	before string
	limit  int
	head   bool
	pretty bool
}

func (f *filterFlags) filter(op string) (query.Filter, error) {
	after, err := parseDate(op, "after", f.after)
	if err != nil {
		return query.Filter{}, err
	}
	before, err := parseDate(op, "before", f.before)
	if err != nil {
		return query.Filter{}, err
	}
	return query.Filter{
		Query:  f.query,
		Chat:   f.chat,
		Sender: f.from,
		After:  after,
		Before: before,
		Limit:  f.limit,
		Head:   f.head,
	}, nil
}

// parseDate reads YYYY-MM-DD as midnight UTC.
func parseDate(op, flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, domain.Invalid(op, "--%s: invalid date %q, expected YYYY-MM-DD", flag, s)
	}
	return t, nil
}

func (a *App) searchCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search messages across chats.",
		Long: "Search messages across all chats, or within one chat with --chat.\n" +
			"At least one of query, --chat or --from is required.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.query = args[0]
			}
			filter, err := f.filter("search")
			if err != nil {
				return err
			}
			if err := filter.CheckSearch(); err != nil {
				return err
			}
			return a.orchestrate(cmd.Context(), func(ctx context.Context, o *query.Orchestrator) error {
				w, err := o.Search(ctx, filter)
				if err != nil {
					return err
				}
				return a.writeWindow(w, f.pretty)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.chat, "chat", "", "limit the search to one chat (alias --in)")
	flags.StringVar(&f.from, "from", "", "only messages from this sender")
	flags.IntVar(&f.limit, "limit", defaultSearchLimit, "maximum number of messages")
	flags.StringVar(&f.after, "after", "", "only messages on or after this date (YYYY-MM-DD)")
	flags.StringVar(&f.before, "before", "", "only messages before this date (YYYY-MM-DD)")
	flags.BoolVar(&f.head, "head", false, "oldest messages first (requires --chat)")
	flags.BoolVar(&f.pretty, "pretty", false, "table output instead of JSONL")
	return cmd
}

func (a *App) readCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "read <chat>",
		Short: "Read recent messages from a chat.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.chat = args[0]
			filter, err := f.filter("read")
			if err != nil {
				return err
			}
			if err := filter.CheckRead(); err != nil {
				return err
			}
			return a.orchestrate(cmd.Context(), func(ctx context.Context, o *query.Orchestrator) error {
				w, err := o.Read(ctx, filter)
				if err != nil {
					return err
				}
				return a.writeWindow(w, f.pretty)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.query, "query", "", "only messages containing this text")
	flags.StringVar(&f.from, "from", "", "only messages from this sender")
	flags.IntVar(&f.limit, "limit", defaultReadLimit, "maximum number of messages")
	flags.StringVar(&f.after, "after", "", "only messages on or after this date (YYYY-MM-DD)")
	flags.StringVar(&f.before, "before", "", "only messages before this date (YYYY-MM-DD)")
	flags.BoolVar(&f.head, "head", false, "oldest messages first")
	flags.BoolVar(&f.pretty, "pretty", false, "table output instead of JSONL")
	return cmd
}

func (a *App) contextCmd() *cobra.Command {
	var (
		n      int
		pretty bool
	)
	cmd := &cobra.Command{
		Use:     "context <chat> <message_id>",
		Aliases: []string{"thread"},
		Short:   "View a message with the messages around it.",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return domain.Invalid("context", "message id must be a number, got %q", args[1])
			}
			if err := query.CheckContext(id, n); err != nil {
				return err
			}
			return a.orchestrate(cmd.Context(), func(ctx context.Context, o *query.Orchestrator) error {
				th, err := o.Context(ctx, args[0], id, n)
				if err != nil {
					return err
				}
				if pretty {
					_, err = lipgloss.Fprint(a.Stdout, a.view().Thread(th))
					return err
				}
				_, err = fmt.Fprint(a.Stdout, format.ThreadJSONL(th))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&n, "context", defaultContext, "messages before and after the target")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "text view instead of JSONL")
	return cmd
}

// writeWindow prints w to stdout. Notices go to stderr.
func (a *App) writeWindow(w query.Window, pretty bool) error {
	if w.Exhausted {
		fmt.Fprintln(a.Stderr, "Warning: page limit reached, results may be incomplete (see max_pages).")
	}
	if len(w.Messages) == 0 {
		fmt.Fprintln(a.Stderr, "No messages found.")
		return nil
	}
	var err error
	if pretty {
		_, err = lipgloss.Fprintln(a.Stdout, a.view().SearchTable(w.Messages))
	} else {
		_, err = fmt.Fprint(a.Stdout, format.JSONL(w.Messages))
	}
	return err
}

func (a *App) view() format.View {
	v := format.View{Location: time.Local}
	if f, ok := a.Stdout.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			v.Width = w
		}
	}
	return v
}
