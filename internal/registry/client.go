package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/pkg/errors"
)

// DefaultEndpoint is the endpoints key used for registries without an entry
// of their own.
const DefaultEndpoint = "default"

// Client reaches registries and the native ledger over HTTP JSON-RPC, using
// the {"method": ..., "params": [{...}]} request format and reading
// result.status from the reply.
type Client struct {
	endpoints map[string]string
	native    string
	http      *http.Client
}

var (
	_ AssetRegistry = (*Client)(nil)
	_ NativeLedger  = (*Client)(nil)
)

// ClientConfig holds the endpoint table of a Client.
type ClientConfig struct {
	// Endpoints maps a registry id to the URL serving it.
	Endpoints      map[string]string
	NativeEndpoint string
	Timeout        time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoints := make(map[string]string, len(cfg.Endpoints))
	for k, v := range cfg.Endpoints {
		endpoints[k] = v
	}
	return &Client{
		endpoints: endpoints,
		native:    cfg.NativeEndpoint,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) endpointFor(registry string) (string, error) {
	if url, ok := c.endpoints[registry]; ok {
		return url, nil
	}
	if url, ok := c.endpoints[DefaultEndpoint]; ok {
		return url, nil
	}
	return "", errors.Wrapf(ErrUnknownRegistry, "%q", registry)
}

func (c *Client) TokensForOwner(ctx context.Context, registry, owner string, limit int) ([]Token, error) {
	url, err := c.endpointFor(registry)
	if err != nil {
		return nil, err
	}

	var result struct {
		Tokens []Token `json:"tokens"`
	}
	err = c.call(ctx, url, "nft_tokens_for_owner", map[string]any{
		"registry":   registry,
		"account_id": owner,
		"limit":      limit,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Tokens, nil
}

func (c *Client) TransferItem(ctx context.Context, registry, item, to string) error {
	url, err := c.endpointFor(registry)
	if err != nil {
		return err
	}
	return c.call(ctx, url, "nft_transfer", map[string]any{
		"registry":    registry,
		"token_id":    item,
		"receiver_id": to,
	}, nil)
}

// Collect asks the native ledger to draw amt from the allowance from has
// granted the engine.
func (c *Client) Collect(ctx context.Context, from string, amt amount.Amount) error {
	if c.native == "" {
		return errors.New("no native ledger endpoint configured")
	}
	return c.call(ctx, c.native, "collect", map[string]any{
		"sender_id": from,
		"amount":    amt,
	}, nil)
}

func (c *Client) Transfer(ctx context.Context, to string, amt amount.Amount) error {
	if c.native == "" {
		return errors.New("no native ledger endpoint configured")
	}
	return c.call(ctx, c.native, "transfer", map[string]any{
		"receiver_id": to,
		"amount":      amt,
	}, nil)
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) call(ctx context.Context, url, method string, params map[string]any, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return errors.Wrapf(err, "encoding %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "building %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s response", method)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s: unexpected HTTP status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrapf(err, "decoding %s response", method)
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return errors.Wrapf(err, "decoding %s result", method)
	}
	if status.Status != "success" {
		return &RemoteError{Method: method, Code: status.Error, Message: status.ErrorMessage}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return errors.Wrapf(err, "decoding %s result", method)
		}
	}
	return nil
}
