package nodeclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// Client submits JSON-RPC requests to one node endpoint (spec.md §6).
type Client struct {
	endpoint   string
	httpClient *http.Client
	requestID  atomic.Int64
}

// DefaultTimeout is the per-request timeout spec.md §5 names for node RPC.
const DefaultTimeout = 30 * time.Second

// New returns a Client posting to endpoint with the given per-request timeout.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// SubmitExtrinsic wraps txBytes in the node's extrinsic envelope and posts
// it via author_submitExtrinsic, returning the transaction hash (spec.md
// §4.11, §6).
func (c *Client) SubmitExtrinsic(ctx context.Context, txBytes []byte) (txHash string, err error) {
	framed := WrapExtrinsic(txBytes)
	hexParam := "0x" + hex.EncodeToString(framed)

	var result string
	if err := c.call(ctx, "author_submitExtrinsic", []any{hexParam}, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqID := c.requestID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("nodeclient: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nodeclient: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return corerrors.ErrNodeTimeout
		}
		return fmt.Errorf("%w: %v", corerrors.ErrNodeNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", corerrors.ErrNodeNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &corerrors.NodeHTTPError{Status: resp.StatusCode}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("%w: decoding response: %v", corerrors.ErrNodeNetwork, err)
	}
	if rpcResp.Error != nil {
		return &corerrors.NodeRPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%w: decoding result: %v", corerrors.ErrNodeNetwork, err)
		}
	}
	return nil
}
