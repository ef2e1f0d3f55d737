package strava

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenFile is where the token is kept when no path is configured.
const DefaultTokenFile = ".strava_token.json"

// storedToken mirrors the fields of a Strava token response, so files written
// by other Strava tools load unchanged.
type storedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// LoadToken reads a token file. A missing file returns an error wrapping
// os.ErrNotExist.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}
	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
	}
	if st.ExpiresAt > 0 {
		tok.Expiry = time.Unix(st.ExpiresAt, 0)
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	st := storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		st.ExpiresAt = tok.Expiry.Unix()
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// persistingSource saves every new access token handed out by base.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// PersistingTokenSource wraps base so refreshed tokens are written to path.
// current is the token already on disk, if any.
func PersistingTokenSource(base oauth2.TokenSource, path string, current *oauth2.Token, logger *slog.Logger) oauth2.TokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	ps := &persistingSource{base: base, path: path, logger: logger}
	if current != nil {
		ps.last = current.AccessToken
	}
	return ps
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	if err := SaveToken(s.path, tok); err != nil {
		return nil, err
	}
	s.last = tok.AccessToken
	s.logger.Info("strava token refreshed", "expires", tok.Expiry.Format(time.RFC3339), "file", s.path)
	return tok, nil
}
