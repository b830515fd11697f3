// Package backend is the REST transport to the delivery platform.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL serves login, orders, status updates and notifications.
	BaseURL string
	// ChatBaseURL serves /order/{id}/chats.
	ChatBaseURL string
	// Timeout bounds each request. Zero leaves only the context.
	Timeout time.Duration
	// HTTPClient is used for all requests. Nil means http.DefaultClient.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the backend. It satisfies the orders, chat and
// notifications transports.
type Client struct {
	baseURL     string
	chatBaseURL string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := normalizeURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: base url: %w", err)
	}
	chat, err := normalizeURL(cfg.ChatBaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: chat base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     base,
		chatBaseURL: chat,
		timeout:     cfg.Timeout,
		httpClient:  httpClient,
		logger:      logger.Named("backend"),
	}, nil
}

func normalizeURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme in %q", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// Login exchanges credentials for the driver identity.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Identity, error) {
	const op = "login"
	var resp loginResponse
	status, err := c.do(ctx, op, http.MethodPost, c.baseURL+"/driverLogin", loginRequest{username, password}, &resp)
	if err != nil {
		return domain.Identity{}, err
	}
	if status >= http.StatusInternalServerError {
		return domain.Identity{}, failure.New(failure.Transport, op, fmt.Errorf("unexpected status %d", status))
	}
	if (resp.Success != nil && !*resp.Success) || resp.User == nil || resp.User.ID == "" {
		return domain.Identity{}, failure.Rejectedf(op, "%s", orDefault(resp.Message, "invalid credentials"))
	}
	return domain.Identity{DriverID: resp.User.ID, Name: resp.User.displayName()}, nil
}

// FetchOrders returns the driver's current orders.
func (c *Client) FetchOrders(ctx context.Context, driverID domain.ID) ([]domain.Order, error) {
	const op = "fetch orders"
	var resp ordersResponse
	q := url.Values{"user_id": {driverID.String()}}
	if err := c.get(ctx, op, c.baseURL+"/driverOrders?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		out = append(out, o.domain())
	}
	return out, nil
}

// SubmitStatus asks the backend to move orderID to next. The driver id is
// always sent.
func (c *Client) SubmitStatus(ctx context.Context, orderID domain.ID, next string, driverID domain.ID) (domain.Result, error) {
	const op = "update status"
	q := url.Values{"status": {next}, "user_id": {driverID.String()}}
	endpoint := c.baseURL + "/driverOrderStatusUpdate/" + url.PathEscape(orderID.String()) + "?" + q.Encode()
	return c.mutation(ctx, op, http.MethodGet, endpoint, nil, false)
}

// FetchMessages returns orderID's chat history in backend order.
func (c *Client) FetchMessages(ctx context.Context, orderID domain.ID) ([]domain.ChatMessage, error) {
	const op = "fetch chat"
	var resp []chatMessage
	if err := c.get(ctx, op, c.chatURL(orderID), &resp); err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(resp))
	for _, m := range resp {
		out = append(out, domain.ChatMessage{
			Author:    m.User,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// SendMessage posts msg to orderID's chat.
func (c *Client) SendMessage(ctx context.Context, orderID domain.ID, msg domain.OutgoingMessage) (domain.Result, error) {
	body := chatRequest{UserID: msg.Author.String(), Text: msg.Text}
	if msg.Kind == domain.KindLocation {
		body.Type = "Location"
	}
	return c.mutation(ctx, "send message", http.MethodPost, c.chatURL(orderID), body, true)
}

// FetchNotifications returns the driver's notifications.
func (c *Client) FetchNotifications(ctx context.Context, driverID domain.ID) ([]domain.Notification, error) {
	const op = "fetch notifications"
	var resp notificationsResponse
	q := url.Values{"user_id": {driverID.String()}}
	if err := c.get(ctx, op, c.baseURL+"/notification?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Notifications == nil {
		return []domain.Notification{}, nil
	}
	return resp.Notifications, nil
}

func (c *Client) chatURL(orderID domain.ID) string {
	return c.chatBaseURL + "/order/" + url.PathEscape(orderID.String()) + "/chats"
}

// get performs a read. Any non-2xx status is a transport failure.
func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	status, err := c.do(ctx, op, http.MethodGet, endpoint, nil, out)
	if err != nil {
		return err
	}
	if !ok2xx(status) {
		return failure.New(failure.Transport, op, fmt.Errorf("unexpected status %d", status))
	}
	return nil
}

// mutation performs a write and reads the {success} verdict. A non-2xx
// response still counts as a verdict when its body carries one. A 2xx
// response without the field is accepted unless strict is set.
func (c *Client) mutation(ctx context.Context, op, method, endpoint string, body any, strict bool) (domain.Result, error) {
	var resp resultResponse
	status, err := c.do(ctx, op, method, endpoint, body, &resp)
	if err != nil {
		return domain.Result{}, err
	}
	switch {
	case resp.Success != nil:
		return domain.Result{Success: *resp.Success, Message: resp.Message}, nil
	case !ok2xx(status):
		return domain.Result{}, failure.New(failure.Transport, op, fmt.Errorf("unexpected status %d", status))
	case strict:
		return domain.Result{Success: false, Message: orDefault(resp.Message, "no success flag in response")}, nil
	default:
		return domain.Result{Success: true, Message: resp.Message}, nil
	}
}

// do sends one request and decodes the JSON body into out. Network errors,
// unreadable bodies and undecodable JSON are transport failures; the HTTP
// status is returned for the caller to judge.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body, out any) (int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, failure.New(failure.Invalid, op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, failure.New(failure.Invalid, op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With(zap.String("op", op), zap.String("method", method), zap.String("url", redact(endpoint)))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return 0, failure.New(failure.Transport, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, failure.New(failure.Transport, op, fmt.Errorf("read response: %w", err))
	}
	log.Debug("response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(data)),
	)

	if len(bytes.TrimSpace(data)) == 0 {
		if ok2xx(resp.StatusCode) {
			return resp.StatusCode, failure.New(failure.Transport, op, errors.New("empty response body"))
		}
		return resp.StatusCode, failure.New(failure.Transport, op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(data, out); err != nil {
		if !ok2xx(resp.StatusCode) {
			return resp.StatusCode, failure.New(failure.Transport, op, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		return resp.StatusCode, failure.New(failure.Transport, op, fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}

func ok2xx(status int) bool { return status >= 200 && status < 300 }

// redact strips the query string, which carries the driver id.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
