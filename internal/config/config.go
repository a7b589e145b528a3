package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/danhigham/tgcli/internal/domain"
)

const (
	EnvAPIID   = "TELEGRAM_API_ID"
	EnvAPIHash = "TELEGRAM_API_HASH"

	StoreKeyring = "keyring"
	StoreFile    = "file"
)

// ErrNoCredentials means neither the config file nor the environment
// provide an API ID and hash.
var ErrNoCredentials = errors.New("telegram API credentials not found")

type Config struct {
	APIID        int
	APIHash      string
	LogLevel     string
	SessionStore string
	MaxPages     int    // 0 means the orchestrator default
	Path         string // file consulted, whether or not it existed
}

// Level returns the parsed log level.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Value is a config scalar that may be written as a number or a string.
type Value string

func (v *Value) UnmarshalTOML(data any) error {
	switch d := data.(type) {
	case string:
		*v = Value(d)
	case int64:
		*v = Value(strconv.FormatInt(d, 10))
	default:
		return fmt.Errorf("expected string or integer, got %T", data)
	}
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected string or integer", node.Line)
	}
	*v = Value(node.Value)
	return nil
}

type credentials struct {
	APIID   Value `toml:"api_id" yaml:"api_id"`
	APIHash Value `toml:"api_hash" yaml:"api_hash"`
}

// file accepts flat keys and the older nested telegram section.
type file struct {
	APIID        Value        `toml:"api_id" yaml:"api_id"`
	APIHash      Value        `toml:"api_hash" yaml:"api_hash"`
	Telegram     *credentials `toml:"telegram" yaml:"telegram"`
	LogLevel     string       `toml:"log_level" yaml:"log_level"`
	SessionStore string       `toml:"session_store" yaml:"session_store"`
	MaxPages     int          `toml:"max_pages" yaml:"max_pages"`
}

func Dir() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		cfgDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(cfgDir, "tgcli")
}

// DefaultPath is config.toml in Dir, or a legacy config.yaml when only
// that exists.
func DefaultPath() string {
	path := filepath.Join(Dir(), "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	legacy := filepath.Join(Dir(), "config.yaml")
	if _, err := os.Stat(legacy); err == nil {
		return legacy
	}
	return path
}

// Loader reads the config file and fills gaps from the environment.
// Zero fields select the defaults: DefaultPath, os.Getenv and OpRead.
type Loader struct {
	Path    string
	Getenv  func(string) string
	Resolve func(ctx context.Context, ref string) (string, error)
}

func Load(ctx context.Context, path string) (*Config, error) {
	return Loader{Path: path}.Load(ctx)
}

func (l Loader) Load(ctx context.Context) (*Config, error) {
	path := l.Path
	if path == "" {
		path = DefaultPath()
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	resolveRef := l.Resolve
	if resolveRef == nil {
		resolveRef = OpRead
	}

	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	creds := credentials{APIID: f.APIID, APIHash: f.APIHash}
	if f.Telegram != nil {
		if creds.APIID == "" {
			creds.APIID = f.Telegram.APIID
		}
		if creds.APIHash == "" {
			creds.APIHash = f.Telegram.APIHash
		}
	}

	id, err := resolveValue(ctx, resolveRef, string(creds.APIID), getenv(EnvAPIID))
	if err != nil {
		return nil, err
	}
	hash, err := resolveValue(ctx, resolveRef, string(creds.APIHash), getenv(EnvAPIHash))
	if err != nil {
		return nil, err
	}
	if id == "" || hash == "" {
		return nil, &domain.OpError{
			Op:   "config",
			Kind: domain.ErrConfig,
			Msg:  fmt.Sprintf("set api_id and api_hash in %s or via %s / %s", path, EnvAPIID, EnvAPIHash),
			Err:  ErrNoCredentials,
		}
	}

	apiID, err := strconv.Atoi(id)
	if err != nil || apiID <= 0 {
		return nil, configErr("api_id must be a positive integer", nil)
	}

	cfg := &Config{
		APIID:        apiID,
		APIHash:      hash,
		LogLevel:     f.LogLevel,
		SessionStore: f.SessionStore,
		MaxPages:     f.MaxPages,
		Path:         path,
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return nil, configErr("log_level", err)
	}
	switch cfg.SessionStore {
	case "":
		cfg.SessionStore = StoreKeyring
	case StoreKeyring, StoreFile:
	default:
		return nil, configErr(fmt.Sprintf("session_store must be %q or %q, got %q", StoreKeyring, StoreFile, cfg.SessionStore), nil)
	}
	if cfg.MaxPages < 0 {
		return nil, configErr("max_pages must not be negative", nil)
	}
	return cfg, nil
}

// readFile decodes path by extension. A missing file yields an empty config.
func readFile(path string) (file, error) {
	var f file
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, configErr("read config", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		_, err = toml.Decode(string(data), &f)
	}
	if err != nil {
		return f, configErr("parse config "+path, err)
	}
	return f, nil
}

// resolveValue prefers the file value, resolving op:// references, and
// falls back to env.
func resolveValue(ctx context.Context, resolveRef func(context.Context, string) (string, error), value, env string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return strings.TrimSpace(env), nil
	}
	if !IsSecretRef(value) {
		return value, nil
	}
	out, err := resolveRef(ctx, value)
	if err != nil {
		return "", configErr("resolve "+value, err)
	}
	return strings.TrimSpace(out), nil
}

func configErr(msg string, err error) error {
	return &domain.OpError{Op: "config", Kind: domain.ErrConfig, Msg: msg, Err: err}
}
