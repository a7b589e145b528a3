package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/zalando/go-keyring"
)

const (
	KeyringService = "tg-cli"
	KeyringUser    = "telegram_session"
)

// SessionStore is a gotd session storage that can report and remove what
// it holds.
type SessionStore interface {
	session.Storage
	Exists(ctx context.Context) (bool, error)
	Delete(ctx context.Context) error
	Describe() string
}

// KeyringStore keeps the session in the OS credential store.
type KeyringStore struct {
	Service string
	User    string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService, User: KeyringUser}
}

func (k *KeyringStore) LoadSession(ctx context.Context) ([]byte, error) {
	s, err := keyring.Get(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

func (k *KeyringStore) StoreSession(ctx context.Context, data []byte) error {
	if err := keyring.Set(k.Service, k.User, base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(ctx context.Context) (bool, error) {
	_, err := keyring.Get(k.Service, k.User)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("keyring get: %w", err)
	}
}

func (k *KeyringStore) Delete(ctx context.Context) error {
	err := keyring.Delete(k.Service, k.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

func (k *KeyringStore) Describe() string {
	return "keyring (" + k.Service + "/" + k.User + ")"
}

// FileStore keeps the session in a JSON file, as gotd's FileStorage does.
type FileStore struct {
	session.FileStorage
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{FileStorage: session.FileStorage{Path: filepath.Join(dir, "session.json")}}
}

func (f *FileStore) StoreSession(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return f.FileStorage.StoreSession(ctx, data)
}

func (f *FileStore) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(f.Path)
	switch {
	case err == nil:
		return info.Size() > 0, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat session: %w", err)
	}
}

func (f *FileStore) Delete(ctx context.Context) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (f *FileStore) Describe() string {
	return "file (" + f.Path + ")"
}
