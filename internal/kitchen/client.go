package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sumanshinde/Rpos/internal/orders"
)

// Client drives the kitchen endpoints of a running API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: %s: decode body: %w", method, path, resp.Status, err)
	}
	if resp.StatusCode >= 300 || env.Status != "success" {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) Board(ctx context.Context) (*Board, error) {
	var data struct {
		Board *Board `json:"board"`
	}
	if err := c.do(ctx, http.MethodGet, "/kitchen/board", &data); err != nil {
		return nil, err
	}
	if data.Board == nil {
		return nil, fmt.Errorf("kitchen board missing from response")
	}
	return data.Board, nil
}

func (c *Client) action(ctx context.Context, id, verb string) (*orders.Order, error) {
	var data struct {
		Order *orders.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/kitchen/orders/"+id+"/"+verb, &data); err != nil {
		return nil, err
	}
	return data.Order, nil
}

func (c *Client) Start(ctx context.Context, id string) (*orders.Order, error) {
	return c.action(ctx, id, "start")
}

func (c *Client) Complete(ctx context.Context, id string) (*orders.Order, error) {
	return c.action(ctx, id, "complete")
}

func (c *Client) Serve(ctx context.Context, id string) (*orders.Order, error) {
	return c.action(ctx, id, "serve")
}
