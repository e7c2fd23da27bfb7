package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/tygwan/risk-engine/internal/exchange"
)

// GetCurrentPrice gets the latest traded price for a symbol
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.retryable(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest price: %w", err)
	}

	serverResp, err := checkResponse(result)
	if err != nil {
		return 0, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	if len(tickerResult.List) == 0 {
		return 0, fmt.Errorf("no ticker data found for %s", symbol)
	}

	return parseFloat64(tickerResult.List[0].LastPrice), nil
}

// GetOrderBook fetches a depth snapshot for a symbol. Bybit returns both
// sides sorted best-first already, so the levels are passed through in
// order.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if depth <= 0 {
		depth = 25
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"limit":    depth,
	}

	result, err := c.retryable(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order book: %w", err)
	}

	serverResp, err := checkResponse(result)
	if err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	// Bybit order book format: b/a are arrays of [price, size] string pairs
	var bookResult struct {
		Symbol    string     `json:"s"`
		Bids      [][]string `json:"b"`
		Asks      [][]string `json:"a"`
		Timestamp int64      `json:"ts"`
	}
	if err := json.Unmarshal(resultBytes, &bookResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order book result: %w", err)
	}

	book := &exchange.OrderBook{
		Symbol:    bookResult.Symbol,
		Bids:      parseBookLevels(bookResult.Bids),
		Asks:      parseBookLevels(bookResult.Asks),
		Timestamp: time.UnixMilli(bookResult.Timestamp),
	}
	return book, nil
}

// GetFees fetches the maker and taker fee rates for a symbol
func (c *Client) GetFees(ctx context.Context, symbol string) (exchange.FeeSchedule, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.retryable(ctx, func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetFeeRates(ctx)
	})
	if err != nil {
		return exchange.FeeSchedule{}, fmt.Errorf("failed to get fee rate: %w", err)
	}

	serverResp, err := checkResponse(result)
	if err != nil {
		return exchange.FeeSchedule{}, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return exchange.FeeSchedule{}, fmt.Errorf("failed to marshal result: %w", err)
	}

	var feeResult struct {
		List []struct {
			Symbol       string `json:"symbol"`
			MakerFeeRate string `json:"makerFeeRate"`
			TakerFeeRate string `json:"takerFeeRate"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &feeResult); err != nil {
		return exchange.FeeSchedule{}, fmt.Errorf("failed to unmarshal fee result: %w", err)
	}

	if len(feeResult.List) == 0 {
		return exchange.FeeSchedule{}, fmt.Errorf("no fee data found for %s", symbol)
	}

	return exchange.FeeSchedule{
		MakerRate: parseFloat64(feeResult.List[0].MakerFeeRate),
		TakerRate: parseFloat64(feeResult.List[0].TakerFeeRate),
	}, nil
}

func parseBookLevels(raw [][]string) []exchange.BookLevel {
	levels := make([]exchange.BookLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			continue
		}
		levels = append(levels, exchange.BookLevel{
			Price:    parseFloat64(pair[0]),
			Quantity: parseFloat64(pair[1]),
		})
	}
	return levels
}

// checkResponse validates the envelope shared by all V5 endpoints
func checkResponse(response interface{}) (*bybit_api.ServerResponse, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, NewBybitError(serverResp.RetCode, serverResp.RetMsg)
	}
	return serverResp, nil
}
