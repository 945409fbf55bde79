// Package teneo implements a client for the Teneo Engine TIE API.
//
// The Engine accepts a form-encoded POST and correlates turns into a
// conversation via a jsessionid carried in the URL path. An empty session id
// starts a new conversation; the Engine returns the id to use for the next
// turn (which may differ from the one sent, e.g. after server-side expiry).
package teneo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Input is one user turn plus channel metadata. The channel tag identifies
// the integration surface to the Engine for analytics; it is not used for
// routing here.
type Input struct {
	Text    string
	Channel string
}

// Output is the Engine's structured reply for one turn.
type Output struct {
	Text       string            `json:"text"`
	Emotion    string            `json:"emotion"`
	Link       string            `json:"link"`
	Parameters map[string]string `json:"parameters"`
}

// Response is the TIE API response envelope.
type Response struct {
	Status    int    `json:"status"`
	SessionID string `json:"sessionId"`
	Output    Output `json:"output"`
}

type Client struct {
	engineURL  string
	httpClient *http.Client
}

func NewClient(engineURL string, timeout time.Duration) *Client {
	return &Client{
		engineURL:  strings.TrimRight(engineURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EngineURL returns the configured Engine endpoint, for log context.
func (c *Client) EngineURL() string {
	return c.engineURL
}

// SendInput submits one turn to the Engine. sessionID "" asks the Engine for
// a new session. Transport failures, non-2xx statuses, and a non-zero Engine
// status all fail the call; the caller owns recovery.
func (c *Client) SendInput(ctx context.Context, sessionID string, in Input) (*Response, error) {
	endpoint := c.engineURL
	if sessionID != "" {
		endpoint = c.sessionURL(sessionID)
	}

	form := url.Values{}
	form.Set("viewtype", "tieapi")
	form.Set("userinput", in.Text)
	if in.Channel != "" {
		form.Set("channel", in.Channel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	if out.Status != 0 {
		return nil, fmt.Errorf("engine status %d", out.Status)
	}

	return &out, nil
}

// sessionURL appends ;jsessionid=<id> to the URL path, before any query
// string, which is how the TIE API continues a session.
func (c *Client) sessionURL(sessionID string) string {
	base, query, found := strings.Cut(c.engineURL, "?")
	s := base + ";jsessionid=" + url.PathEscape(sessionID)
	if found {
		s += "?" + query
	}
	return s
}
