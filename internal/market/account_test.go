package market

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lendbot/internal/bitfinex"
	"lendbot/internal/config"
)

type mockAccountClient struct {
	wallets    []bitfinex.Wallet
	walletsErr error

	cancelAsset string
	cancelErr   error
}

func (m *mockAccountClient) Wallets(ctx context.Context) ([]bitfinex.Wallet, error) {
	return m.wallets, m.walletsErr
}

func (m *mockAccountClient) CancelAllOffers(ctx context.Context, assetCode string) (json.RawMessage, error) {
	m.cancelAsset = assetCode
	return json.RawMessage(`[1710000000000,"foc_all-req",null,null,[],null,"SUCCESS"]`), m.cancelErr
}

func fundingConfig() config.FundingConfig {
	return config.FundingConfig{
		PublicSymbol:    "fUSDT",
		SymbolPreferred: "fUSDT",
		SymbolFallback:  "fUST",
		AssetAliases:    []string{"USDT", "UST"},
	}
}

func TestResolve_DetectsAliasAndFreeBalance(t *testing.T) {
	client := &mockAccountClient{
		wallets: []bitfinex.Wallet{
			{Type: "exchange", Currency: "USDT", Available: 9000},
			{Type: "funding", Currency: "USDT", Available: 1500},
			{Type: "funding", Currency: "BTC", Available: 2},
		},
	}
	svc := NewAccountService(client, fundingConfig(), nil)

	mctx, free := svc.Resolve(context.Background())

	if mctx.AssetCode != "USDT" {
		t.Errorf("expected asset USDT, got %q", mctx.AssetCode)
	}
	if mctx.SymbolPreferred != "fUSDT" || mctx.SymbolFallback != "fUST" {
		t.Errorf("symbol context mismatch: %+v", mctx)
	}
	if !free.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("free balance must come from the funding wallet only, got %s", free)
	}
}

func TestResolve_FallsBackToSecondAlias(t *testing.T) {
	client := &mockAccountClient{
		wallets: []bitfinex.Wallet{
			{Type: "funding", Currency: "UST", Available: 700},
		},
	}
	svc := NewAccountService(client, fundingConfig(), nil)

	mctx, free := svc.Resolve(context.Background())

	if mctx.AssetCode != "UST" {
		t.Errorf("expected alias UST, got %q", mctx.AssetCode)
	}
	if !free.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected balance 700, got %s", free)
	}
}

func TestResolve_WalletFailureDegradesToZero(t *testing.T) {
	client := &mockAccountClient{walletsErr: errors.New("timeout")}
	svc := NewAccountService(client, fundingConfig(), nil)

	mctx, free := svc.Resolve(context.Background())

	if !free.IsZero() {
		t.Errorf("expected zero balance on wallet failure, got %s", free)
	}
	if mctx.AssetCode != "USDT" {
		t.Errorf("expected default asset USDT, got %q", mctx.AssetCode)
	}
}

func TestCancelAll(t *testing.T) {
	client := &mockAccountClient{}
	svc := NewAccountService(client, fundingConfig(), nil)

	if err := svc.CancelAll(context.Background(), "USDT"); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if client.cancelAsset != "USDT" {
		t.Errorf("expected cancel for USDT, got %q", client.cancelAsset)
	}

	client.cancelErr = errors.New("nonce too small")
	if err := svc.CancelAll(context.Background(), "USDT"); err == nil {
		t.Error("expected error to propagate")
	}
}
