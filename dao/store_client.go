// dao/store_client.go
package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	access_errors "github.com/luishdz04/muscleup-gym/errors"
)

// StoreClient is the low-level PostgREST adapter shared by all DAOs.
// Every request carries the service key and a bounded timeout; a
// timeout is an ordinary retryable store error, never a hang.
type StoreClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewStoreClient(baseURL, serviceKey string, timeout time.Duration) *StoreClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StoreClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *StoreClient) headers(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
}

// Get runs a filtered select against a collection and decodes the
// JSON array response into out.
func (c *StoreClient) Get(ctx context.Context, table string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building store request: %w", err)
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", access_errors.ErrStoreOperation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", access_errors.ErrStoreOperation, table, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", access_errors.ErrStoreOperation, table, err)
	}
	return nil
}

// Post inserts a row into a collection.
func (c *StoreClient) Post(ctx context.Context, table string, payload interface{}) error {
	return c.post(ctx, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table), payload)
}

// RPC invokes a server-side function. Used for operations that must be
// atomic on the store side, like the temporary-access counter.
func (c *StoreClient) RPC(ctx context.Context, fn string, payload interface{}) error {
	return c.post(ctx, fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn), payload)
}

func (c *StoreClient) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding store payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building store request: %w", err)
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", access_errors.ErrStoreOperation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", access_errors.ErrStoreOperation, endpoint, resp.StatusCode, respBody)
	}
	return nil
}
