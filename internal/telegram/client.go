package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danhigham/tgcli/internal/domain"
	"github.com/danhigham/tgcli/internal/query"
)

type Options struct {
	APIID   int
	APIHash string
	Store   SessionStore
	Logger  *zap.Logger
	Rate    rate.Limit // 0 means DefaultRate
	Burst   int
}

// Client runs one gotd connection per operation. Updates are disabled;
// the CLI only issues requests.
type Client struct {
	apiID   int
	apiHash string
	store   SessionStore
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rate == 0 {
		opts.Rate = DefaultRate
	}
	if opts.Burst == 0 {
		opts.Burst = DefaultBurst
	}
	return &Client{
		apiID:   opts.APIID,
		apiHash: opts.APIHash,
		store:   opts.Store,
		logger:  opts.Logger,
		limiter: rate.NewLimiter(opts.Rate, opts.Burst),
	}
}

// run connects, calls f and disconnects. The error of f is returned as is.
func (c *Client) run(ctx context.Context, f func(ctx context.Context, tc *telegram.Client) error) error {
	tc := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		Logger:         c.logger.Named("gotd"),
		SessionStorage: c.store,
		NoUpdates:      true,
		Middlewares:    []telegram.Middleware{rateLimit(c.limiter)},
	})

	var ferr error
	err := tc.Run(ctx, func(ctx context.Context) error {
		ferr = f(ctx, tc)
		return ferr
	})
	if ferr != nil {
		return ferr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return wrap("connect", err)
	}
	return nil
}

func (c *Client) requireSession(ctx context.Context) error {
	ok, err := c.store.Exists(ctx)
	if err != nil {
		return &domain.OpError{Op: "session", Kind: domain.ErrUpstream, Err: err}
	}
	if !ok {
		return &domain.OpError{Op: "session", Kind: domain.ErrAuthRequired, Msg: "not logged in, run `tg auth login`"}
	}
	return nil
}

// Query connects with the stored session and hands f an upstream bound to
// the connection. It fails with ErrAuthRequired before connecting when no
// session is stored.
func (c *Client) Query(ctx context.Context, f func(ctx context.Context, up query.Upstream) error) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	return c.run(ctx, func(ctx context.Context, tc *telegram.Client) error {
		st, err := tc.Auth().Status(ctx)
		if err != nil {
			return wrap("auth status", err)
		}
		if !st.Authorized || st.User == nil {
			return &domain.OpError{Op: "session", Kind: domain.ErrAuthRequired, Msg: "session expired, run `tg auth login`"}
		}
		return f(ctx, newUpstream(tc.API(), st.User, c.logger))
	})
}

// Login runs the interactive phone, code and password flow. gotd writes
// the session to the store on success.
func (c *Client) Login(ctx context.Context, p Prompter) (domain.AuthStatus, error) {
	var status domain.AuthStatus
	err := c.run(ctx, func(ctx context.Context, tc *telegram.Client) error {
		flow := auth.NewFlow(promptAuth{p: p}, auth.SendCodeOptions{})
		if err := tc.Auth().IfNecessary(ctx, flow); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return wrap("login", err)
		}
		self, err := tc.Self(ctx)
		if err != nil {
			return wrap("get self", err)
		}
		c.logger.Info("logged in", zap.Int64("user_id", self.ID))
		status = domain.AuthStatus{
			Authenticated: true,
			Phone:         MaskPhone(self.Phone),
			SessionExists: true,
			SessionStore:  c.store.Describe(),
		}
		return nil
	})
	return status, err
}

// Logout terminates the session on the server when possible and always
// removes the local copy.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	err := c.run(ctx, func(ctx context.Context, tc *telegram.Client) error {
		st, err := tc.Auth().Status(ctx)
		if err != nil {
			return err
		}
		if !st.Authorized {
			return nil
		}
		_, err = tc.API().AuthLogOut(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn("remote logout failed", zap.Error(err))
	}
	if err := c.store.Delete(ctx); err != nil {
		return &domain.OpError{Op: "logout", Kind: domain.ErrUpstream, Err: err}
	}
	return nil
}

// Status reports whether a session is stored and still authorized.
func (c *Client) Status(ctx context.Context) (domain.AuthStatus, error) {
	status := domain.AuthStatus{SessionStore: c.store.Describe()}
	ok, err := c.store.Exists(ctx)
	if err != nil {
		return status, &domain.OpError{Op: "session", Kind: domain.ErrUpstream, Err: err}
	}
	if !ok {
		return status, nil
	}
	status.SessionExists = true

	err = c.run(ctx, func(ctx context.Context, tc *telegram.Client) error {
		st, err := tc.Auth().Status(ctx)
		if err != nil {
			return wrap("auth status", err)
		}
		status.Authenticated = st.Authorized
		if st.Authorized && st.User != nil {
			status.Phone = MaskPhone(st.User.Phone)
		}
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("status: %w", err)
	}
	return status, nil
}
