package cli

import (
	"context"
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/danhigham/tgcli/internal/format"
	"github.com/danhigham/tgcli/internal/query"
)

const defaultChatsLimit = 100

func (a *App) chatsCmd() *cobra.Command {
	var (
		filter string
		limit  int
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats, pinned first, then by last activity.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.orchestrate(cmd.Context(), func(ctx context.Context, o *query.Orchestrator) error {
				chats, err := o.Chats(ctx, filter, limit)
				if err != nil {
					return err
				}
				if len(chats) == 0 {
					fmt.Fprintln(a.Stderr, "No chats found.")
					return nil
				}
				if pretty {
					_, err = lipgloss.Fprintln(a.Stdout, a.view().ChatsTable(chats))
					return err
				}
				_, err = fmt.Fprint(a.Stdout, format.ChatsJSONL(chats))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only chats whose name or username contains this text")
	cmd.Flags().IntVar(&limit, "limit", defaultChatsLimit, "maximum number of chats")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "table output instead of JSONL")
	return cmd
}
