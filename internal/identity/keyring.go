package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Keyring persists the signed-in principal for one profile as a TOML file.
type Keyring struct {
	path string
}

type keyringFile struct {
	Principal Principal `toml:"principal"`
	Token     string    `toml:"token,omitempty"`
}

// NewKeyring returns a keyring stored at path.
func NewKeyring(path string) *Keyring {
	return &Keyring{path: path}
}

// Load returns the stored principal and token. It returns (nil, "", nil)
// when nothing is stored.
func (k *Keyring) Load() (*Principal, string, error) {
	var f keyringFile
	if _, err := toml.DecodeFile(k.path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read session %s: %w", k.path, err)
	}
	if f.Principal.UID == "" {
		return nil, "", nil
	}
	return &f.Principal, f.Token, nil
}

// Save stores p and an optional token, replacing any previous session.
func (k *Keyring) Save(p Principal, token string) error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := k.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(keyringFile{Principal: p, Token: token}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode session: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, k.path)
}

// Clear removes the stored session.
func (k *Keyring) Clear() error {
	if err := os.Remove(k.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
