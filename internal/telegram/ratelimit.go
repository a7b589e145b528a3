package telegram

import (
	"context"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"golang.org/x/time/rate"
)

// Default pacing for RPCs of a single invocation.
const (
	DefaultRate  = rate.Limit(5)
	DefaultBurst = 3
)

// rateLimit delays each RPC until the limiter admits it.
func rateLimit(lim *rate.Limiter) telegram.Middleware {
	return telegram.MiddlewareFunc(func(next tg.Invoker) telegram.InvokeFunc {
		return func(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
			return next.Invoke(ctx, input, output)
		}
	})
}
