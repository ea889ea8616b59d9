package line

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
)

// Client talks to the LINE Messaging API on behalf of the platform.
type Client struct {
	http *resty.Client
}

// PushMessage is a single text message pushed to a linked LINE user.
type PushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []PushMessage `json:"messages"`
}

// WebhookEndpointInfo mirrors the LINE webhook endpoint response.
type WebhookEndpointInfo struct {
	Endpoint string `json:"endpoint"`
	Active   bool   `json:"active"`
}

// NewClient builds a LINE API client from config. ChannelToken is the
// platform's own OA token used for push delivery; per-store credentials
// are supplied per call where needed.
func NewClient(cfg config.LineConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("line api base url is required")
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	if cfg.ChannelToken != "" {
		httpClient.SetAuthToken(cfg.ChannelToken)
	}

	return &Client{http: httpClient}, nil
}

// Push sends text messages to a LINE user via the Messaging API.
func (c *Client) Push(ctx context.Context, lineUserID string, messages ...PushMessage) error {
	if strings.TrimSpace(lineUserID) == "" {
		return fmt.Errorf("line user id is required")
	}
	if len(messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pushRequest{To: lineUserID, Messages: messages}).
		Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("line push: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// GetWebhookEndpoint fetches the webhook endpoint registered for a store's
// channel. The channel access token must belong to that store's OA.
func (c *Client) GetWebhookEndpoint(ctx context.Context, channelToken string) (*WebhookEndpointInfo, error) {
	if strings.TrimSpace(channelToken) == "" {
		return nil, fmt.Errorf("channel token is required")
	}

	info := &WebhookEndpointInfo{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(channelToken).
		SetResult(info).
		Get("/v2/bot/channel/webhook/endpoint")
	if err != nil {
		return nil, fmt.Errorf("line webhook endpoint: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &WebhookEndpointInfo{}, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("line webhook endpoint: status %d: %s", resp.StatusCode(), resp.String())
	}
	return info, nil
}

// TestWebhookEndpoint asks LINE to probe the registered webhook endpoint
// and reports whether the probe succeeded.
func (c *Client) TestWebhookEndpoint(ctx context.Context, channelToken string) (bool, error) {
	if strings.TrimSpace(channelToken) == "" {
		return false, fmt.Errorf("channel token is required")
	}

	result := struct {
		Success bool `json:"success"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(channelToken).
		SetResult(&result).
		Post("/v2/bot/channel/webhook/test")
	if err != nil {
		return false, fmt.Errorf("line webhook test: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("line webhook test: status %d: %s", resp.StatusCode(), resp.String())
	}
	return result.Success, nil
}
