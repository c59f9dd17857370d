package gcal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Authorize runs the interactive OAuth flow: prompt is given the consent URL,
// a loopback server receives the code, and the resulting token is cached.
func (s *CredentialStore) Authorize(ctx context.Context, prompt func(authURL string)) error {
	state, err := randomState()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.callbackAddr)
	if err != nil {
		return fmt.Errorf("listening for OAuth callback: %w", err)
	}
	conf := *s.conf
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"

	type callback struct {
		code string
		err  error
	}
	codeCh := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			_, _ = fmt.Fprintln(w, "Authorization was denied. You can close this page now.")
			select {
			case codeCh <- callback{err: fmt.Errorf("authorization denied: %s", e)}:
			default:
			}
			return
		}
		_, _ = fmt.Fprintln(w, "Received authentication code. You can close this page now.")
		select {
		case codeCh <- callback{code: q.Get("code")}:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("OAuth callback server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("HTTP server Shutdown", "error", err)
		}
	}()

	prompt(conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")))

	var cb callback
	select {
	case cb = <-codeCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	if cb.err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, cb.err)
	}

	tok, err := conf.Exchange(s.withHTTPClient(ctx), cb.code)
	if err != nil {
		return fmt.Errorf("%w: unable to retrieve token from web: %v", ErrAuth, err)
	}
	if err := s.saveToken(tok); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	s.logger.Infow("token saved", "expiry", tok.Expiry)
	return nil
}

// randomState generates the anti-forgery state parameter.
func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
