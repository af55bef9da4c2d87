// Package whatsapp provides an HTTP client for a WhatsApp gateway service.
// The gateway owns the pairing handshake and session credentials; this
// client consumes its event stream and message endpoints.
package whatsapp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EventType identifies a session lifecycle event emitted by the gateway.
type EventType string

const (
	EventPairingChallenge EventType = "pairing_challenge"
	EventAuthenticated    EventType = "authenticated"
	EventAuthFailure      EventType = "auth_failure"
	EventReady            EventType = "ready"
	EventDisconnected     EventType = "disconnected"
)

// Event is one session lifecycle event. Data carries the QR payload for
// pairing challenges and the reason for auth failures and disconnects.
type Event struct {
	Type EventType `json:"type"`
	Data string    `json:"data,omitempty"`
}

// Client is the messaging gateway surface the orchestrator needs.
type Client interface {
	// Events opens the gateway's session event stream. The returned channel
	// is closed when the stream ends or ctx is canceled.
	Events(ctx context.Context) (<-chan Event, error)

	// IsRegistered reports whether the identifier is an active account on
	// the messaging network.
	IsRegistered(ctx context.Context, number string) (bool, error)

	// Send delivers text to the identifier and returns the gateway message
	// ID.
	Send(ctx context.Context, number, text string) (string, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token for gateway authentication.
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithRateLimit sets the requests-per-second limit for gateway calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL: baseURL,
		// Send requests can take a while on a slow session; the event
		// stream uses its own non-timeout client.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chatID converts a normalized number into the gateway's wire identifier.
func chatID(number string) string {
	return number + "@c.us"
}

func (c *client) Events(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/session/events", nil)
	if err != nil {
		return nil, eris.Wrap(err, "whatsapp: create events request")
	}
	c.auth(req)

	// The stream stays open for the whole run; bypass the per-request
	// timeout while keeping the configured transport.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "whatsapp: open event stream")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("whatsapp: event stream status %d", resp.StatusCode)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer resp.Body.Close() //nolint:errcheck

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				zap.L().Warn("whatsapp: malformed event", zap.Error(err))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *client) IsRegistered(ctx context.Context, number string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, eris.Wrap(err, "whatsapp: rate limiter wait")
	}

	url := fmt.Sprintf("%s/v1/contacts/%s/exists", c.baseURL, chatID(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, eris.Wrap(err, "whatsapp: create exists request")
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "whatsapp: check registration")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, eris.Errorf("whatsapp: exists status %d for %s", resp.StatusCode, number)
	}

	var body struct {
		Exists bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, eris.Wrap(err, "whatsapp: decode exists response")
	}
	return body.Exists, nil
}

func (c *client) Send(ctx context.Context, number, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "whatsapp: rate limiter wait")
	}

	payload, err := json.Marshal(map[string]string{
		"to":   chatID(number),
		"body": text,
	})
	if err != nil {
		return "", eris.Wrap(err, "whatsapp: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "whatsapp: create send request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "whatsapp: send message")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", eris.Errorf("whatsapp: send status %d for %s: %s", resp.StatusCode, number, data)
	}

	var body struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", eris.Wrap(err, "whatsapp: decode send response")
	}
	if body.MessageID == "" {
		return "", eris.New("whatsapp: send response missing message_id")
	}
	return body.MessageID, nil
}

func (c *client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
