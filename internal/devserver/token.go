package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenBytes = 24

// LoadOrCreateToken returns the bearer token persisted at tokenPath so
// clients and `serve` restarts agree on credentials. On first run, or
// when the file is blank, it mints a fresh token and writes it with
// owner-only permissions.
func LoadOrCreateToken(tokenPath string) (string, error) {
	data, err := os.ReadFile(tokenPath)
	switch {
	case err == nil:
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read token: %w", err)
	}

	token, err := mintToken()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return "", fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write token: %w", err)
	}
	return token, nil
}

func mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
