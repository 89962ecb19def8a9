// api/client.go

// HTTP client library for the vault API

// Wraps the REST endpoints behind typed methods for wallets and operator
// tooling, and provides a RewardPoller that watches an account's unclaimed
// reward in the background with a callback on change.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

// Client represents an API client for the vault
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) get(path string, dst interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (c *Client) post(path string, body, dst interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("API returned status %d", resp.StatusCode)
}

// Stake locks a deposit and returns the new position id
func (c *Client) Stake(address string, amount int64) (uint64, error) {
	var out struct {
		PositionID uint64 `json:"position_id"`
	}
	err := c.post("/api/v1/stake", map[string]interface{}{
		"address": address,
		"amount":  amount,
	}, &out)
	return out.PositionID, err
}

// Claim settles the unclaimed reward of one position
func (c *Client) Claim(address string, positionID uint64) (int64, error) {
	var out struct {
		Reward int64 `json:"reward"`
	}
	err := c.post("/api/v1/claim", map[string]interface{}{
		"address":     address,
		"position_id": positionID,
	}, &out)
	return out.Reward, err
}

// ClaimAll settles every claimable position of an account
func (c *Client) ClaimAll(address string) (int64, error) {
	var out struct {
		Reward int64 `json:"reward"`
	}
	err := c.post("/api/v1/claim-all", map[string]interface{}{
		"address": address,
	}, &out)
	return out.Reward, err
}

// RequestWithdraw opens a notice-period withdrawal against a position
func (c *Client) RequestWithdraw(address string, positionID uint64, amount int64) (*withdrawal.Request, error) {
	var out withdrawal.Request
	err := c.post("/api/v1/withdrawals/request", map[string]interface{}{
		"address":     address,
		"position_id": positionID,
		"amount":      amount,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelWithdraw cancels a pending withdrawal request
func (c *Client) CancelWithdraw(address string, positionID uint64) error {
	return c.post("/api/v1/withdrawals/cancel", map[string]interface{}{
		"address":     address,
		"position_id": positionID,
	}, nil)
}

// ExecuteWithdraw settles a matured withdrawal request
func (c *Client) ExecuteWithdraw(address string, positionID uint64) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post("/api/v1/withdrawals/execute", map[string]interface{}{
		"address":     address,
		"position_id": positionID,
	}, &out)
	return out, err
}

// Positions fetches an account's open positions
func (c *Client) Positions(address string) ([]position.Position, error) {
	var out struct {
		Positions []position.Position `json:"positions"`
	}
	err := c.get("/api/v1/account/"+address+"/positions", &out)
	return out.Positions, err
}

// AccountReward fetches the total unclaimed reward of an account
func (c *Client) AccountReward(address string) (int64, error) {
	var out struct {
		Reward int64 `json:"reward"`
	}
	err := c.get("/api/v1/account/"+address+"/reward", &out)
	return out.Reward, err
}

// Status fetches the vault-wide status summary
func (c *Client) Status() (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.get("/api/v1/status", &out)
	return out, err
}

// RewardPoller watches an account's unclaimed reward in the background
type RewardPoller struct {
	client   *Client
	address  string
	interval time.Duration

	mu         sync.Mutex
	lastReward int64

	ctx    context.Context
	cancel context.CancelFunc

	onRewardChange func(oldReward, newReward int64)
	onError        func(error)
}

// NewRewardPoller creates a poller for one account
func NewRewardPoller(client *Client, address string) *RewardPoller {
	ctx, cancel := context.WithCancel(context.Background())

	return &RewardPoller{
		client:   client,
		address:  address,
		interval: 15 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetInterval sets the polling interval
func (rp *RewardPoller) SetInterval(interval time.Duration) {
	rp.interval = interval
}

// OnRewardChange sets a callback for when the unclaimed reward changes
func (rp *RewardPoller) OnRewardChange(callback func(oldReward, newReward int64)) {
	rp.onRewardChange = callback
}

// OnError sets a callback for when errors occur
func (rp *RewardPoller) OnError(callback func(error)) {
	rp.onError = callback
}

// Start begins polling in the background
func (rp *RewardPoller) Start() {
	go rp.pollLoop()
}

// Stop stops the polling
func (rp *RewardPoller) Stop() {
	rp.cancel()
}

// PollOnce performs a single check, useful right after a transaction
func (rp *RewardPoller) PollOnce() {
	rp.checkReward()
}

func (rp *RewardPoller) pollLoop() {
	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()

	rp.checkReward()

	for {
		select {
		case <-rp.ctx.Done():
			return
		case <-ticker.C:
			rp.checkReward()
		}
	}
}

func (rp *RewardPoller) checkReward() {
	reward, err := rp.client.AccountReward(rp.address)
	if err != nil {
		if rp.onError != nil {
			rp.onError(err)
		}
		return
	}

	rp.mu.Lock()
	oldReward := rp.lastReward
	changed := reward != oldReward
	rp.lastReward = reward
	rp.mu.Unlock()

	if changed && rp.onRewardChange != nil {
		rp.onRewardChange(oldReward, reward)
	}
}

// LastReward returns the last observed reward without making an API call
func (rp *RewardPoller) LastReward() int64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.lastReward
}
