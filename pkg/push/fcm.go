package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/onlycars/onlycars-backend/pkg/config"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

var errServerKeyRequired = errors.New("fcm server key is required")

// Message is one push notification addressed to a set of device tokens.
type Message struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// Sender delivers push notifications. Implemented by Client; faked in tests.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to the FCM HTTP API.
type Client struct {
	http      *http.Client
	endpoint  string
	serverKey string
	logger    *logger.Logger
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// NewClient builds an FCM client from configuration.
func NewClient(cfg config.FCMConfig, logg *logger.Logger) (*Client, error) {
	serverKey := strings.TrimSpace(cfg.ServerKey)
	if serverKey == "" {
		return nil, errServerKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		endpoint:  defaultEndpoint,
		serverKey: serverKey,
		logger:    logg,
	}, nil
}

// Send pushes the message to every token, combining per-token failures so one
// dead device does not hide deliveries to the rest.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if len(msg.Tokens) == 0 {
		return nil
	}
	var errs []error
	for _, token := range msg.Tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		if err := c.sendOne(ctx, token, msg); err != nil {
			errs = append(errs, fmt.Errorf("token %s: %w", shortToken(token), err))
		}
	}
	return multierr.Combine(errs...)
}

func (c *Client) sendOne(ctx context.Context, token string, msg Message) error {
	payload := fcmRequest{
		To: token,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding fcm request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building fcm request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling fcm")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading fcm response")
	}
	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("fcm returned status %d", resp.StatusCode))
	}

	var parsed fcmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding fcm response")
	}
	if parsed.Failure > 0 {
		reason := "unknown"
		if len(parsed.Results) > 0 && parsed.Results[0].Error != "" {
			reason = parsed.Results[0].Error
		}
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("fcm delivery failed: %s", reason))
	}
	return nil
}

func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
