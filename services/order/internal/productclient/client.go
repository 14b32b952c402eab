package productclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnavailable       = errors.New("product service unavailable")
)

type Direction string

const (
	Increment Direction = "increment"
	Decrement Direction = "decrement"
)

type Product struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	IsActive bool            `json:"isActive"`
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
}

func NewClient(productServiceURL string) *Client {
	return &Client{
		baseURL: productServiceURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxAttempts: 3,
		baseBackoff: 200 * time.Millisecond,
	}
}

// ResolveMany fetches all requested products in a single round trip. Ids
// missing from the catalog are simply absent from the result.
func (c *Client) ResolveMany(ctx context.Context, ids []uint) ([]Product, error) {
	body, err := json.Marshal(map[string][]uint{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal bulk request: %w", err)
	}

	var products []Product
	if err := c.doJSON(ctx, http.MethodPost, "/products/bulk", body, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustStock moves the product's stock by quantity in the given direction.
// A decrement that would leave stock negative fails with ErrInsufficientStock.
func (c *Client) AdjustStock(ctx context.Context, productID uint, quantity int, direction Direction) (*Product, error) {
	body, err := json.Marshal(map[string]interface{}{
		"quantity":  quantity,
		"operation": direction,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal stock request: %w", err)
	}

	var product Product
	path := fmt.Sprintf("/products/%d/stock", productID)
	if err := c.doJSON(ctx, http.MethodPatch, path, body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// doJSON performs the request with bounded retries. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses map to
// domain errors immediately and are never retried.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		retry, err := c.decode(resp, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) decode(resp *http.Response, out interface{}) (retry bool, err error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg := readErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusBadRequest {
			return false, fmt.Errorf("%w: %s", ErrInsufficientStock, msg)
		}
		return false, fmt.Errorf("product service rejected request (%d): %s", resp.StatusCode, msg)
	default:
		return true, fmt.Errorf("product service returned %d", resp.StatusCode)
	}
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "unknown error"
	}
	if payload.Error != "" {
		return payload.Error
	}
	if payload.Message != "" {
		return payload.Message
	}
	return "unknown error"
}
