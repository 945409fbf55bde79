package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinyland-inc/fbrelay/pkg/logger"
)

// Client talks to the Messenger Send API. One Send call delivers exactly one
// payload; the page access token travels as a query parameter.
type Client struct {
	apiBase    string
	pageToken  string
	httpClient *http.Client
}

func NewClient(apiBase, pageToken string, timeout time.Duration) *Client {
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		pageToken:  pageToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers a single payload to the Send API. Any non-200 status is an
// error; the caller decides whether that aborts anything.
func (c *Client) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := c.apiBase + "/me/messages?access_token=" + url.QueryEscape(c.pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send to messenger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messenger send returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	logger.DebugCF("messenger", "Payload delivered", map[string]any{
		"recipient": p.Recipient.ID,
	})
	return nil
}
