// Package auditlog forwards structured client-side audit and error entries
// to the backend's logs/front endpoint. Submission is fire-and-forget: a
// logging failure must never break the flow that emitted it, so errors are
// swallowed and mirrored locally at debug level only. This path deliberately
// bypasses the gateway and its network-failure-as-session-loss policy.
package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Entry is the wire shape consumed by logs/front.
type Entry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Folder  string `json:"folder"`
	Action  string `json:"action"`
}

// Folder and action tags for security audit events raised by the injection
// guard.
const (
	FolderBlocking    = "blocage"
	ActionMarkupInput = "Html Tags"
)

// Client posts audit entries to the backend.
type Client struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// New builds an audit client. httpClient may be nil; pass the gateway's
// client to share its cookie jar so entries ride the same credential.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		url:    strings.TrimSuffix(baseURL, "/") + "/logs/front",
		client: httpClient,
		log:    log.With().Str("component", "auditlog").Logger(),
	}
}

// Emit submits one entry. Failures are silent by contract.
func (c *Client) Emit(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		c.log.Debug().Err(err).Msg("audit entry marshal failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		c.log.Debug().Err(err).Msg("audit request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("audit submission failed")
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		c.log.Debug().Int("status", res.StatusCode).Msg("audit submission rejected")
	}
}

// SecurityEvent records an injection-guard hit. The user is shown nothing
// specific; only this server-side trace is produced.
func (c *Client) SecurityEvent(ctx context.Context, message string) {
	c.Emit(ctx, Entry{
		Level:   zerolog.LevelErrorValue,
		Message: message,
		Folder:  FolderBlocking,
		Action:  ActionMarkupInput,
	})
}
