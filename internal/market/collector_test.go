package market

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lendbot/internal/bitfinex"
)

type mockMarketClient struct {
	book    []bitfinex.BookRow
	bookErr error

	frr    float64
	frrErr error

	trade    bitfinex.Trade
	tradeErr error

	ticker    bitfinex.Ticker
	tickerErr error
}

func (m *mockMarketClient) Book(ctx context.Context, symbol string) ([]bitfinex.BookRow, error) {
	return m.book, m.bookErr
}

func (m *mockMarketClient) FundingStatLast(ctx context.Context, symbol string) (float64, error) {
	return m.frr, m.frrErr
}

func (m *mockMarketClient) LastTrade(ctx context.Context, symbol string) (bitfinex.Trade, error) {
	return m.trade, m.tradeErr
}

func (m *mockMarketClient) Ticker(ctx context.Context, symbol string) (bitfinex.Ticker, error) {
	return m.ticker, m.tickerErr
}

func fp(v float64) *float64 { return &v }

func TestSnapshot_FullMarketData(t *testing.T) {
	client := &mockMarketClient{
		book: []bitfinex.BookRow{
			{Rate: 0.0004, Amount: 1000},
			{Rate: 0.00045, Amount: 500},
			{Rate: 0.0006, Amount: -800},
			{Rate: 0.00055, Amount: -300},
		},
		frr:    0.0005,
		trade:  bitfinex.Trade{ID: 1, Rate: 0.00038},
		ticker: bitfinex.Ticker{FRR: fp(0.0005), Bid: fp(0.00045), Ask: fp(0.00055), LastPrice: fp(0.00038)},
	}
	collector := NewCollector(client, nil)

	snap := collector.Snapshot(context.Background(), "fUSDT")

	if snap.Symbol != "fUSDT" {
		t.Errorf("expected symbol fUSDT, got %q", snap.Symbol)
	}
	if snap.BestBid == nil || !snap.BestBid.Equal(decimal.NewFromFloat(0.00045)) {
		t.Errorf("best bid must be the highest positive-size rate, got %v", snap.BestBid)
	}
	if snap.BestAsk == nil || !snap.BestAsk.Equal(decimal.NewFromFloat(0.00055)) {
		t.Errorf("best ask must be the lowest negative-size rate, got %v", snap.BestAsk)
	}
	if snap.FRR == nil || !snap.FRR.Equal(decimal.NewFromFloat(0.0005)) {
		t.Errorf("reference rate mismatch: %v", snap.FRR)
	}
	if snap.LastTradeRate == nil || !snap.LastTradeRate.Equal(decimal.NewFromFloat(0.00038)) {
		t.Errorf("last trade rate mismatch: %v", snap.LastTradeRate)
	}
	if snap.Ticker == nil || snap.Ticker.Last == nil {
		t.Error("ticker quote missing")
	}
}

func TestSnapshot_SourceFailuresDegradeToMissingFields(t *testing.T) {
	failure := errors.New("boom")
	client := &mockMarketClient{
		bookErr:   failure,
		frrErr:    failure,
		tradeErr:  failure,
		tickerErr: failure,
	}
	collector := NewCollector(client, nil)

	snap := collector.Snapshot(context.Background(), "fUSDT")

	if snap.BestBid != nil || snap.BestAsk != nil || snap.FRR != nil || snap.LastTradeRate != nil || snap.Ticker != nil {
		t.Errorf("all fields must be absent when every source fails: %+v", snap)
	}
}

func TestBestBidAsk_SingleSidedBook(t *testing.T) {
	bid, ask := bestBidAsk([]bitfinex.BookRow{
		{Rate: 0.0004, Amount: 1000},
		{Rate: 0.00042, Amount: 200},
	})
	if bid == nil || !bid.Equal(decimal.NewFromFloat(0.00042)) {
		t.Errorf("expected best bid 0.00042, got %v", bid)
	}
	if ask != nil {
		t.Errorf("expected no ask, got %v", ask)
	}

	bid, ask = bestBidAsk(nil)
	if bid != nil || ask != nil {
		t.Error("empty book must yield no sides")
	}
}
