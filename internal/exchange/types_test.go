package exchange

import "testing"

func TestBestBidBestAsk(t *testing.T) {
	book := &OrderBook{
		Symbol: "BTCUSDT",
		Bids: []BookLevel{
			{Price: 49_999.5, Quantity: 0.8},
			{Price: 49_998.0, Quantity: 2.1},
		},
		Asks: []BookLevel{
			{Price: 50_000.5, Quantity: 1.2},
			{Price: 50_001.0, Quantity: 3.0},
		},
	}

	if bid := book.BestBid(); bid.Price != 49_999.5 {
		t.Errorf("BestBid price = %.2f, want 49999.50", bid.Price)
	}
	if ask := book.BestAsk(); ask.Price != 50_000.5 {
		t.Errorf("BestAsk price = %.2f, want 50000.50", ask.Price)
	}
}

func TestBestBidBestAskEmptySide(t *testing.T) {
	book := &OrderBook{Symbol: "BTCUSDT"}

	if bid := book.BestBid(); bid != (BookLevel{}) {
		t.Errorf("BestBid on empty book = %+v, want zero value", bid)
	}
	if ask := book.BestAsk(); ask != (BookLevel{}) {
		t.Errorf("BestAsk on empty book = %+v, want zero value", ask)
	}
}
