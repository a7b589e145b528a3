package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Write stores the API credentials in the TOML file at path, keeping any
// other keys already there, and returns the path written. apiID is an int
// or a secret reference string. A legacy YAML path is replaced by its
// config.toml sibling.
func Write(path string, apiID any, apiHash string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		path = filepath.Join(filepath.Dir(path), "config.toml")
	}
	values := map[string]any{}
	if _, err := toml.DecodeFile(path, &values); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", configErr("read "+path, err)
	}
	values["api_id"] = apiID
	values["api_hash"] = apiHash
	delete(values, "telegram")

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", configErr("create config dir", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", configErr("write config", err)
	}
	if err := toml.NewEncoder(f).Encode(values); err != nil {
		f.Close()
		return "", configErr("encode config", err)
	}
	if err := f.Close(); err != nil {
		return "", configErr("write config", err)
	}
	return path, nil
}
