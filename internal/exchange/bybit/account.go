package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tygwan/risk-engine/internal/exchange"
)

// GetBalances retrieves the unified account equity and the balance
// available for new positions
func (c *Client) GetBalances(ctx context.Context) (*exchange.AccountSnapshot, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.retryable(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	serverResp, err := checkResponse(result)
	if err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var walletResult struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet result: %w", err)
	}

	if len(walletResult.List) == 0 {
		return nil, fmt.Errorf("no account data found")
	}

	account := walletResult.List[0]
	return &exchange.AccountSnapshot{
		TotalValue: parseFloat64(account.TotalEquity),
		Available:  parseFloat64(account.TotalAvailableBalance),
		Timestamp:  time.Now(),
	}, nil
}
