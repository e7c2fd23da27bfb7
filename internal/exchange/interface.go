package exchange

import "context"

// PriceFeed provides current market prices. The engine treats this as an
// external collaborator boundary; implementations may perform network I/O.
type PriceFeed interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderBookProvider supplies depth snapshots for slippage estimation
type OrderBookProvider interface {
	GetOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)
}

// AccountFeed supplies account balance snapshots
type AccountFeed interface {
	GetBalances(ctx context.Context) (*AccountSnapshot, error)
}

// MarketData combines the read-only feeds the risk engine consumes.
// The engine never places orders; order execution belongs to the caller.
type MarketData interface {
	PriceFeed
	OrderBookProvider
	AccountFeed
}
