package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const secretRefPrefix = "op://"

// IsSecretRef reports whether v is a 1Password secret reference.
func IsSecretRef(v string) bool {
	return strings.HasPrefix(v, secretRefPrefix)
}

// OpRead resolves a secret reference with the 1Password CLI.
func OpRead(ctx context.Context, ref string) (string, error) {
	out, err := runOp(ctx, "read", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// OpItem names the 1Password item that holds the API credentials.
type OpItem struct {
	Vault string
	Title string
}

func (i OpItem) ref(field string) string {
	return secretRefPrefix + i.Vault + "/" + i.Title + "/" + field
}

// StoreOp creates a login item holding the credentials and returns the
// secret references to write to the config file.
func StoreOp(ctx context.Context, item OpItem, apiID int, apiHash string) (idRef, hashRef string, err error) {
	if item.Vault == "" {
		item.Vault = "Personal"
	}
	if item.Title == "" {
		item.Title = "Telegram API"
	}
	_, err = runOp(ctx, "item", "create",
		"--category", "login",
		"--title", item.Title,
		"--vault", item.Vault,
		"api_id[text]="+strconv.Itoa(apiID),
		"api_hash[text]="+apiHash,
	)
	if err != nil {
		return "", "", err
	}
	return item.ref("api_id"), item.ref("api_hash"), nil
}

func runOp(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "op", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("op %s: %s: %w", args[0], msg, err)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("op %s: 1Password CLI not installed: %w", args[0], err)
		}
		return "", fmt.Errorf("op %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
