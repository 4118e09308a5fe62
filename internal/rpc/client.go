package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/pkg/errors"
)

// Client calls a swapd server. Failures reported by the server are
// returned as *rpc_types.RpcError.
type Client struct {
	url   string
	token string
	http  *http.Client
}

func NewClient(url, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{url: url, token: token, http: &http.Client{Timeout: timeout}}
}

// Call invokes method with params and decodes the result object into out.
// out may be nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	request := map[string]interface{}{"method": method}
	if params != nil {
		request["params"] = []interface{}{params}
	}
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", method)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s: http status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	var status struct {
		Status string `json:"status"`
		rpc_types.RpcError
	}
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return errors.Wrap(err, "decoding result")
	}
	if status.Status != "success" {
		rpcErr := status.RpcError
		return &rpcErr
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(envelope.Result, out), "decoding result")
}
