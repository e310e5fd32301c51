package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Client calls Bot API methods that are not answered inline from the webhook.
type Client struct {
	token   string
	apiBase string
	http    *http.Client
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token, apiBase string, timeout time.Duration) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		token:   token,
		apiBase: strings.TrimRight(apiBase, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SetWebhook points the bot's updates at webhookURL.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	form := url.Values{}
	form.Set("url", webhookURL)
	form.Set("allowed_updates", `["message","edited_message"]`)

	endpoint := fmt.Sprintf("%s/bot%s/setWebhook", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("SetWebhook: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		// The token is part of the URL; keep it out of the returned error.
		return fmt.Errorf("SetWebhook: calling Bot API: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("SetWebhook: decoding response (status %d): %w", resp.StatusCode, err)
	}
	if !body.OK {
		return fmt.Errorf("SetWebhook: rejected with status %d: %s", resp.StatusCode, body.Description)
	}

	return nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}
