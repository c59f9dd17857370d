package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIURL is the Pushover message endpoint.
const DefaultAPIURL = "https://api.pushover.net/1/messages.json"

// ErrMissingCredentials is returned by New when the user key or API token is empty.
var ErrMissingCredentials = errors.New("pushover: user key and API token are required")

// Message is a single notification.
type Message struct {
	Title    string
	Body     string
	Priority int
	HTML     bool
}

// Response is the JSON body Pushover answers with. Status 1 means accepted.
type Response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// DeliveryError describes a notification Pushover did not accept.
type DeliveryError struct {
	StatusCode int
	Status     int
	Errors     []string
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("pushover delivery failed: %v", e.Err)
	case len(e.Errors) > 0:
		return fmt.Sprintf("pushover delivery rejected (http %d, status %d): %s", e.StatusCode, e.Status, strings.Join(e.Errors, "; "))
	default:
		return fmt.Sprintf("pushover delivery rejected (http %d, status %d)", e.StatusCode, e.Status)
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client is the Pushover API client.
type Client struct {
	token      string
	user       string
	apiURL     string
	priority   int
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// New creates a Pushover client. timeout bounds every request.
func New(user, token string, timeout time.Duration, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(user) == "" || strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredentials
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		token:      token,
		user:       user,
		apiURL:     DefaultAPIURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "pushover"),
	}, nil
}

// SetAPIURL overrides the default Pushover API URL for testing purposes.
func (c *Client) SetAPIURL(url string) {
	c.apiURL = url
}

// SetPriority sets the priority used by Deliver.
func (c *Client) SetPriority(priority int) {
	c.priority = priority
}

// Send posts one message. Anything but an accepted status is a *DeliveryError.
func (c *Client) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)
	form.Set("message", msg.Body)
	form.Set("title", msg.Title)
	form.Set("priority", strconv.Itoa(msg.Priority))
	if msg.HTML {
		form.Set("html", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var apiResp Response
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &DeliveryError{StatusCode: resp.StatusCode, Errors: []string{strings.TrimSpace(string(raw))}}
		}
		return &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK || apiResp.Status != 1 {
		return &DeliveryError{StatusCode: resp.StatusCode, Status: apiResp.Status, Errors: apiResp.Errors}
	}

	c.logger.Debugw("notification accepted", "request", apiResp.Request, "title", msg.Title)
	return nil
}

// Deliver sends an HTML message and reports whether Pushover accepted it.
// Failures are logged, never returned.
func (c *Client) Deliver(ctx context.Context, title, body string) bool {
	err := c.Send(ctx, Message{Title: title, Body: body, Priority: c.priority, HTML: true})
	if err != nil {
		c.logger.Errorw("sending notification", "title", title, "error", err)
		return false
	}
	return true
}
