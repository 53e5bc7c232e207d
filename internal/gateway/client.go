package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kweller/sms-games-bot/internal/creation"
	"github.com/kweller/sms-games-bot/internal/obslog"
	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

// HeaderProvider injects per-request headers (API keys and the like).
type HeaderProvider func() map[string]string

// Client talks to the two outbound services: the notification service that
// delivers prompts by opt-in path, and the game host's creation endpoint.
// Both calls are fire-and-forget for the conversation core: failures are
// logged by the caller and never retried.
type Client struct {
	optinURL  string
	createURL string
	http      *fasthttp.Client
	headers   HeaderProvider

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// NewClient builds a client. optinBaseURL is the notification service root;
// gameHost is the host serving the multiplayer creation endpoint.
func NewClient(optinBaseURL, gameHost string, opts ...Option) *Client {
	c := &Client{
		optinURL:       strings.TrimRight(optinBaseURL, "/") + "/optin",
		createURL:      "http://" + strings.TrimSpace(gameHost) + "/sms-multiplayer-game/create",
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPrompt subscribes the phone number to an opt-in path, which triggers
// the prompt bound to that path.
func (c *Client) SendPrompt(ctx context.Context, phone string, optin int) error {
	req := smsdto.OptinRequest{AlphaPhone: phone, AlphaOptin: optin}
	status, err := c.postJSON(ctx, c.optinURL, req)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("optin status=%d", status)
	}
	return nil
}

// CreateGame posts the completed record to the game-creation endpoint. The
// response status is logged, not acted upon.
func (c *Client) CreateGame(ctx context.Context, p *creation.Progress) error {
	req := smsdto.CreateGameRequest{
		AlphaMobile:    p.AlphaPhone,
		AlphaFirstName: p.AlphaName,
		BetaMobile0:    p.Betas[0],
		BetaMobile1:    p.Betas[1],
		BetaMobile2:    p.Betas[2],
		StoryID:        p.StoryID,
		StoryType:      p.StoryType,
	}
	status, err := c.postJSON(ctx, c.createURL, req)
	if err != nil {
		return err
	}
	obslog.L().Info("game_create_post", zap.String("url", c.createURL), zap.Int("status", status))
	if status < 200 || status >= 300 {
		return fmt.Errorf("game create status=%d", status)
	}
	return nil
}

var _ creation.Notifier = (*Client)(nil)
var _ creation.GameCreator = (*Client)(nil)

func (c *Client) postJSON(ctx context.Context, url string, in any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	return resp.StatusCode(), nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}
