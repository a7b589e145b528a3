package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// Prompter asks the user for login input.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
	Secret(ctx context.Context, label string) (string, error)
}

// promptAuth implements gotd's auth.UserAuthenticator on top of a Prompter.
type promptAuth struct {
	p Prompter
}

func (a promptAuth) Phone(ctx context.Context) (string, error) {
	phone, err := a.p.Prompt(ctx, "Phone number (international format, e.g. +15551234567)")
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", ""), nil
}

func (a promptAuth) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	label := "Login code"
	switch sentCode.Type.(type) {
	case *tg.AuthSentCodeTypeApp:
		label = "Login code (sent to your Telegram app)"
	case *tg.AuthSentCodeTypeSMS:
		label = "Login code (sent by SMS)"
	}
	code, err := a.p.Prompt(ctx, label)
	return strings.TrimSpace(code), err
}

func (a promptAuth) Password(ctx context.Context) (string, error) {
	return a.p.Secret(ctx, "Two-step verification password")
}

func (a promptAuth) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a promptAuth) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up not supported, register with an official Telegram app first")
}

// MaskPhone keeps the first three and last two digits.
func MaskPhone(p string) string {
	if len(p) <= 5 {
		return p
	}
	return p[:3] + strings.Repeat("*", len(p)-5) + p[len(p)-2:]
}
