package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"

	"stablebond-keeper/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint      string
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	maxDelay      time.Duration
	backoffMult   float64
	commitment    Commitment
	skipPreflight bool
	limiter       *rate.Limiter
	requestID     atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCommitment sets the commitment used for reads and preflight.
func WithCommitment(commitment Commitment) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// WithSkipPreflight disables transaction simulation before submission.
func WithSkipPreflight(skip bool) ClientOption {
	return func(c *HTTPClient) {
		c.skipPreflight = skip
	}
}

// WithRateLimit caps outgoing requests per second. Public RPC endpoints
// answer bursts with 429s, so keepers pace themselves instead.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		commitment:  CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds(), err)
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// rawAccount is the base64-encoded account shape shared by several methods.
type rawAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (r *rawAccount) decode() (*AccountInfo, error) {
	owner, err := ParsePublicKey(r.Owner)
	if err != nil {
		return nil, fmt.Errorf("account owner: %w", err)
	}
	info := &AccountInfo{
		Lamports:   r.Lamports,
		Owner:      owner,
		Executable: r.Executable,
		RentEpoch:  r.RentEpoch,
	}
	if len(r.Data) >= 1 {
		data, err := base64.StdEncoding.DecodeString(r.Data[0])
		if err != nil {
			return nil, fmt.Errorf("account data: %w", err)
		}
		info.Data = data
	}
	return info, nil
}

func (c *HTTPClient) accountConfig() map[string]interface{} {
	return map[string]interface{}{
		"encoding":   "base64",
		"commitment": c.commitment,
	}
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, account PublicKey) (*AccountInfo, error) {
	params := []interface{}{account.String(), c.accountConfig()}

	var result struct {
		Value *rawAccount `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, &RemoteError{Op: "getAccountInfo " + account.String(), Err: err}
	}

	if result.Value == nil {
		return nil, nil
	}
	return result.Value.decode()
}

// GetMultipleAccounts retrieves up to 100 accounts in one call.
func (c *HTTPClient) GetMultipleAccounts(ctx context.Context, accounts []PublicKey) ([]*AccountInfo, error) {
	keys := make([]string, len(accounts))
	for i, pk := range accounts {
		keys[i] = pk.String()
	}
	params := []interface{}{keys, c.accountConfig()}

	var result struct {
		Value []*rawAccount `json:"value"`
	}
	if err := c.call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, &RemoteError{Op: "getMultipleAccounts", Err: err}
	}

	infos := make([]*AccountInfo, len(result.Value))
	for i, raw := range result.Value {
		if raw == nil {
			continue
		}
		info, err := raw.decode()
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}
	return infos, nil
}

// GetProgramAccounts scans program-owned accounts matching filters.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, program PublicKey, filters ...AccountFilter) ([]ProgramAccount, error) {
	config := c.accountConfig()
	if len(filters) > 0 {
		fs := make([]interface{}, 0, len(filters))
		for _, f := range filters {
			if p := f.params(); p != nil {
				fs = append(fs, p)
			}
		}
		config["filters"] = fs
	}
	params := []interface{}{program.String(), config}

	var result []struct {
		Pubkey  string     `json:"pubkey"`
		Account rawAccount `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, &RemoteError{Op: "getProgramAccounts " + program.String(), Err: err}
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, r := range result {
		pk, err := ParsePublicKey(r.Pubkey)
		if err != nil {
			return nil, err
		}
		info, err := r.Account.decode()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", r.Pubkey, err)
		}
		accounts = append(accounts, ProgramAccount{Pubkey: pk, Account: *info})
	}
	return accounts, nil
}

// GetLatestBlockhash retrieves a recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	params := []interface{}{map[string]interface{}{"commitment": c.commitment}}

	var result struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, &RemoteError{Op: "getLatestBlockhash", Err: err}
	}

	hash, err := ParseHash(result.Value.Blockhash)
	if err != nil {
		return nil, err
	}
	return &LatestBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
		Slot:                 result.Context.Slot,
	}, nil
}

// SendTransaction submits a signed transaction.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx *Transaction) (Signature, error) {
	params := []interface{}{
		tx.Base64(),
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       c.skipPreflight,
			"preflightCommitment": c.commitment,
		},
	}

	var result string
	if err := c.call(ctx, "sendTransaction", params, &result); err != nil {
		return Signature{}, &RemoteError{Op: "sendTransaction", Err: err}
	}

	raw, err := base58.Decode(result)
	if err != nil || len(raw) != SignatureLength {
		return Signature{}, fmt.Errorf("sendTransaction: malformed signature %q", result)
	}
	var sig Signature
	copy(sig[:], raw)
	return sig, nil
}

// GetSignatureStatuses retrieves confirmation state for signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures ...Signature) ([]*SignatureStatus, error) {
	sigs := make([]string, len(signatures))
	for i, s := range signatures {
		sigs[i] = s.String()
	}
	params := []interface{}{sigs, map[string]interface{}{"searchTransactionHistory": false}}

	var result struct {
		Value []*struct {
			Slot               int64       `json:"slot"`
			Confirmations      *uint64     `json:"confirmations"`
			Err                interface{} `json:"err"`
			ConfirmationStatus string      `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, &RemoteError{Op: "getSignatureStatuses", Err: err}
	}

	statuses := make([]*SignatureStatus, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			Err:                v.Err,
			ConfirmationStatus: Commitment(v.ConfirmationStatus),
		}
	}
	return statuses, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	params := []interface{}{map[string]interface{}{"commitment": c.commitment}}
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, &RemoteError{Op: "getSlot", Err: err}
	}
	return result, nil
}

var _ RPCClient = (*HTTPClient)(nil)
