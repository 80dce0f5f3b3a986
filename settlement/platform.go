// settlement/platform.go
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Platform is the outbound surface of the wallet counterpart. The bridge
// depends on this interface so tests can stub the remote side.
type Platform interface {
	Withdraw(ctx context.Context, orderID, userID string, amount float64) error
}

// Account is the platform's view of a user.
type Account struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Gold   float64 `json:"gold_balance"`
	Silver float64 `json:"silver_balance"`
}

// PlatformClient talks to the platform REST API with signed payloads and
// the shared api key.
type PlatformClient struct {
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
}

func NewPlatformClient(baseURL, apiKey, secret string) *PlatformClient {
	return &PlatformClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type platformResponse struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Withdraw asks the platform to credit the user's wallet. Any non-success
// answer is an error; the caller compensates.
func (c *PlatformClient) Withdraw(ctx context.Context, orderID, userID string, amount float64) error {
	timestamp := time.Now().Unix()
	payload := map[string]interface{}{
		"order_id":  orderID,
		"user_id":   userID,
		"amount":    amount,
		"timestamp": timestamp,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/bridge/transaction/withdraw", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-signature", Sign(orderID, userID, amount, timestamp, c.secret))
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform withdraw call: %w", err)
	}
	defer resp.Body.Close()

	var pr platformResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("platform withdraw decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK || (pr.Code != 200 && !pr.Success) {
		return fmt.Errorf("platform rejected withdraw: %s", pr.Message)
	}
	return nil
}

// GetAccount looks a platform account up by id.
func (c *PlatformClient) GetAccount(ctx context.Context, userID string) (*Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/bridge/account/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform account call: %w", err)
	}
	defer resp.Body.Close()

	var pr platformResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("platform account decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform account lookup failed: %s", pr.Message)
	}

	var account Account
	if err := json.Unmarshal(pr.Data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetGameTitle fetches the catalog title for a game id, used in transaction
// descriptions.
func (c *PlatformClient) GetGameTitle(ctx context.Context, gameID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/bridge/games/"+gameID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform game call: %w", err)
	}
	defer resp.Body.Close()

	var pr platformResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("platform game decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("platform game lookup failed: %s", pr.Message)
	}

	var game struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(pr.Data, &game); err != nil {
		return "", err
	}
	return game.Title, nil
}
