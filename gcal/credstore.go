package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/perbu/daybrief/config"
)

const defaultCallbackAddr = "localhost:8066"

// CredentialStore owns the OAuth client configuration and the cached token.
type CredentialStore struct {
	loader       config.Loader
	conf         *oauth2.Config
	timeout      time.Duration
	callbackAddr string
	logger       *zap.SugaredLogger
}

// NewCredentialStore parses the OAuth client secrets from loader.
func NewCredentialStore(loader config.Loader, timeout time.Duration, logger *zap.SugaredLogger) (*CredentialStore, error) {
	credBytes, err := loader.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("%w: loading credentials: %v", ErrAuth, err)
	}
	conf, err := google.ConfigFromJSON(credBytes, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing credentials: %v", ErrAuth, err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CredentialStore{
		loader:       loader,
		conf:         conf,
		timeout:      timeout,
		callbackAddr: defaultCallbackAddr,
		logger:       logger.With("component", "credentials"),
	}, nil
}

// withHTTPClient makes token endpoint calls use a client with a bounded timeout.
func (s *CredentialStore) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: s.timeout})
}

// Session returns an authenticated HTTP client. The cached token is refreshed
// when expired and written back when it changed. Every failure wraps ErrAuth.
func (s *CredentialStore) Session(ctx context.Context) (*http.Client, error) {
	tokenBytes, err := s.loader.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("%w: no cached token, run `daybrief auth`: %v", ErrAuth, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenBytes, &tok); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling token: %v", ErrAuth, err)
	}

	ctx = s.withHTTPClient(ctx)
	src := s.conf.TokenSource(ctx, &tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refreshing token: %v", ErrAuth, err)
	}

	if fresh.AccessToken != tok.AccessToken {
		s.logger.Infow("token refreshed", "expiry", fresh.Expiry)
		if err := s.saveToken(fresh); err != nil {
			// The session is still usable; the next run refreshes again.
			s.logger.Warnw("persisting refreshed token", "error", err)
		}
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(fresh, src)), nil
}

func (s *CredentialStore) saveToken(tok *oauth2.Token) error {
	tokenBytes, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("json.Marshal token: %w", err)
	}
	return s.loader.SaveToken(tokenBytes)
}
