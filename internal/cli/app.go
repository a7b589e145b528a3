// Package cli wires the tg command tree to the query orchestrator.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/danhigham/tgcli/internal/config"
	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/query"
	"github.com/danhigham/tgcli/internal/telegram"
	"github.com/danhigham/tgcli/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitAuth  = 2
)

// Backend is the Telegram side of every command. *telegram.Client
// implements it.
type Backend interface {
	Query(ctx context.Context, f func(ctx context.Context, up query.Upstream) error) error
	Login(ctx context.Context, p telegram.Prompter) (domain.AuthStatus, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (domain.AuthStatus, error)
}

// App holds the process surroundings of a run. Zero fields fall back to
// the real process: os streams, os.Getenv, the gotd client, a file logger.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Resolve reads op:// secret references.
	Resolve func(ctx context.Context, ref string) (string, error)
	// StoreOp saves credentials to 1Password during first-run setup.
	StoreOp func(ctx context.Context, item config.OpItem, apiID int, apiHash string) (string, string, error)

	NewBackend func(cfg *config.Config, logger *zap.Logger) (Backend, error)
	Prompter   ui.Prompter
	Logger     *zap.Logger

	Version string

	configPath string
	debug      bool
}

func (a *App) defaults() {
	if a.Stdin == nil {
		a.Stdin = os.Stdin
	}
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.Getenv == nil {
		a.Getenv = os.Getenv
	}
	if a.StoreOp == nil {
		a.StoreOp = config.StoreOp
	}
	if a.NewBackend == nil {
		a.NewBackend = newClient
	}
	if a.Version == "" {
		a.Version = "dev"
	}
}

// Execute runs the command line args and returns the process exit code.
// Failures print a single line on stderr.
func (a *App) Execute(ctx context.Context, args []string) int {
	a.defaults()
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if err == nil {
		return ExitOK
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return ExitError
	}
	fmt.Fprintf(a.Stderr, "Error: %v\n", err)
	return ExitCode(err)
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrAuthRequired):
		return ExitAuth
	default:
		return ExitError
	}
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tg",
		Short:         "Search and read Telegram messages from the terminal.",
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("tg {{.Version}}\n")
	// Registered up front so --version is known as a boolean while the
	// subcommand is still being matched.
	root.InitDefaultVersionFlag()
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "in" {
			name = "chat"
		}
		return pflag.NormalizedName(name)
	})

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log debug output to stderr")

	root.AddCommand(
		a.authCmd(),
		a.searchCmd(),
		a.readCmd(),
		a.contextCmd(),
		a.chatsCmd(),
	)
	return root
}

func (a *App) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.DefaultPath()
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return config.Loader{Path: a.path(), Getenv: a.Getenv, Resolve: a.Resolve}.Load(ctx)
}

// backend loads the config and builds the logger and backend for one run.
func (a *App) backend(ctx context.Context) (*config.Config, Backend, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	if a.Logger == nil {
		a.Logger, err = newLogger(cfg, a.debug)
		if err != nil {
			return nil, nil, err
		}
	}
	a.Logger.Debug("config loaded", zap.String("path", cfg.Path), zap.String("session_store", cfg.SessionStore))
	b, err := a.NewBackend(cfg, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, b, nil
}

// orchestrate runs f against a connected orchestrator.
func (a *App) orchestrate(ctx context.Context, f func(ctx context.Context, o *query.Orchestrator) error) error {
	cfg, b, err := a.backend(ctx)
	if err != nil {
		return err
	}
	return b.Query(ctx, func(ctx context.Context, up query.Upstream) error {
		o := query.New(up,
			query.WithLogger(a.Logger.Named("query")),
			query.WithMaxPages(cfg.MaxPages),
		)
		return f(ctx, o)
	})
}

func (a *App) prompter() ui.Prompter {
	if a.Prompter != nil {
		return a.Prompter
	}
	return ui.NewPrompter(a.Stdin, a.Stderr)
}

// newLogger writes to tgcli.log next to the config file. Debug mode adds
// stderr and lowers the level.
func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(dir, "tgcli.log")

	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logCfg.OutputPaths = []string{logPath}
	logCfg.ErrorOutputPaths = []string{logPath}
	if debug {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logCfg.OutputPaths = append(logCfg.OutputPaths, "stderr")
	}
	logger, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// newClient builds the gotd backed client with the configured session store.
func newClient(cfg *config.Config, logger *zap.Logger) (Backend, error) {
	var store telegram.SessionStore
	switch strings.ToLower(cfg.SessionStore) {
	case config.StoreFile:
		store = telegram.NewFileStore(filepath.Dir(cfg.Path))
	default:
		store = telegram.NewKeyringStore()
	}
	return telegram.NewClient(telegram.Options{
		APIID:   cfg.APIID,
		APIHash: cfg.APIHash,
		Store:   store,
		Logger:  logger,
	}), nil
}
