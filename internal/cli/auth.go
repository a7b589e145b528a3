package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/config"
	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/format"
	"github.com/danhigham/tgcli/internal/ui"
)

const appsURL = "https://my.telegram.org/apps"

const loginIntro = `
Logging in to Telegram. You'll be asked for your phone number
including country code (e.g. +81 90 1234 5678). The + and any
spaces or dashes are optional, but the country code is required.
Telegram will send a verification code to your account, like
logging in on a new device. Your phone number is sent to
Telegram's API only; tg does not store or transmit it.
`

const termsNote = `
Unofficial API clients are under observation by Telegram. Normal
interactive use (searching, reading your own messages) is fine.
Avoid bulk scraping, spamming, or using results for AI/ML model
training. Full terms: https://core.telegram.org/api/terms
`

func (a *App) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Telegram authentication.",
		Long: "Without a subcommand: create the config if missing, then show the\n" +
			"status when logged in or start the login.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.smartAuth(cmd.Context())
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Interactive login: phone, verification code and 2FA password.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.login(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Log out and remove the stored session.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.logout(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current auth state.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.status(cmd.Context())
			},
		},
	)
	return cmd
}

// smartAuth checks, in order: config present, already logged in, login.
func (a *App) smartAuth(ctx context.Context) error {
	if _, err := a.loadConfig(ctx); err != nil {
		if !errors.Is(err, config.ErrNoCredentials) {
			return err
		}
		if err := a.setup(ctx); err != nil {
			return err
		}
	}

	_, b, err := a.backend(ctx)
	if err != nil {
		return err
	}
	st, err := b.Status(ctx)
	if err != nil {
		return err
	}
	if st.Authenticated {
		lipgloss.Fprint(a.Stdout, format.AuthStatus(st))
		fmt.Fprintln(a.Stdout, "Run `tg auth logout` to log out.")
		return nil
	}
	return a.loginWith(ctx, b)
}

// setup asks for the API credentials and writes them to the config file,
// optionally as 1Password references.
func (a *App) setup(ctx context.Context) error {
	p := a.prompter()
	fmt.Fprintf(a.Stderr, "No config found at %s\n\n", a.path())
	fmt.Fprintf(a.Stderr, "You need a Telegram API app to use this tool. Create one at %s\n\n", appsURL)

	var apiID int
	for apiID == 0 {
		s, err := p.Prompt(ctx, "API ID")
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || id <= 0 {
			fmt.Fprintln(a.Stderr, "API ID must be a positive number.")
			continue
		}
		apiID = id
	}
	var apiHash string
	for apiHash == "" {
		s, err := p.Secret(ctx, "API Hash")
		if err != nil {
			return err
		}
		apiHash = strings.TrimSpace(s)
	}

	var idValue any = apiID
	hashValue := apiHash
	useOp, err := ui.Confirm(ctx, p, "Store credentials in 1Password?", false)
	if err != nil {
		return err
	}
	if useOp {
		idRef, hashRef, err := a.StoreOp(ctx, config.OpItem{}, apiID, apiHash)
		if err != nil {
			fmt.Fprintf(a.Stderr, "1Password failed: %v\nSaving as plain text instead.\n", err)
		} else {
			idValue, hashValue = idRef, hashRef
		}
	}

	path, err := config.Write(a.path(), idValue, hashValue)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stderr, "Config written to %s\n", path)
	return nil
}

func (a *App) login(ctx context.Context) error {
	_, b, err := a.backend(ctx)
	if err != nil {
		return err
	}
	return a.loginWith(ctx, b)
}

func (a *App) loginWith(ctx context.Context, b Backend) error {
	fmt.Fprint(a.Stderr, loginIntro+"\n")
	st, err := b.Login(ctx, a.prompter())
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	a.Logger.Info("login complete", zap.String("session_store", st.SessionStore))
	fmt.Fprint(a.Stderr, termsNote+"\n")
	fmt.Fprintln(a.Stdout, "Login successful.")
	lipgloss.Fprint(a.Stdout, format.AuthStatus(st))
	return nil
}

func (a *App) logout(ctx context.Context) error {
	_, b, err := a.backend(ctx)
	if err != nil {
		return err
	}
	if err := b.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.Stdout, "Logged out.")
	return nil
}

// status prints the auth state. A missing or expired session also fails
// with ErrAuthRequired so scripts can test the exit code.
func (a *App) status(ctx context.Context) error {
	_, b, err := a.backend(ctx)
	if err != nil {
		return err
	}
	st, err := b.Status(ctx)
	if err != nil {
		return err
	}
	lipgloss.Fprint(a.Stdout, format.AuthStatus(st))
	if !st.Authenticated {
		return &domain.OpError{Op: "auth status", Kind: domain.ErrAuthRequired, Msg: "not logged in, run `tg auth login`"}
	}
	return nil
}
