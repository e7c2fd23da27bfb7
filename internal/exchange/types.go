package exchange

import "time"

// BookLevel is a single price level of an order book side
type BookLevel struct {
	Price    float64
	Quantity float64 // available quantity in base asset at this price
}

// OrderBook is a depth snapshot for one symbol. Bids are sorted best
// (highest) first, asks best (lowest) first.
type OrderBook struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// BestBid returns the highest bid, or zero value if the book side is empty
func (b *OrderBook) BestBid() BookLevel {
	if len(b.Bids) == 0 {
		return BookLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the lowest ask, or zero value if the book side is empty
func (b *OrderBook) BestAsk() BookLevel {
	if len(b.Asks) == 0 {
		return BookLevel{}
	}
	return b.Asks[0]
}

// FeeSchedule holds the venue's trading fee rates as fractions
type FeeSchedule struct {
	MakerRate float64
	TakerRate float64
}

// AccountSnapshot is a point-in-time view of account balances used to
// seed and refresh the portfolio's total value
type AccountSnapshot struct {
	TotalValue float64 // total account value in quote currency
	Available  float64 // balance available for new positions
	Timestamp  time.Time
}
