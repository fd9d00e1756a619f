package bitfinex

import (
	"context"
	"encoding/json"
	"strings"
)

// Wallets 拉取全部钱包行，供余额查询与币种别名探测使用。
func (c *Client) Wallets(ctx context.Context) ([]Wallet, error) {
	raw, err := c.postPrivate(ctx, "v2/auth/r/wallets", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return parseWallets(raw), nil
}

func parseWallets(raw json.RawMessage) []Wallet {
	rows := decodeRows(raw)
	wallets := make([]Wallet, 0, len(rows))
	for _, row := range rows {
		// 行格式: [WALLET_TYPE, CURRENCY, BALANCE, UNSETTLED_INTEREST, AVAILABLE_BALANCE, ...]
		if len(row) < 5 {
			continue
		}
		wtype, okType := stringAt(row, 0)
		currency, okCurrency := stringAt(row, 1)
		available, okAvailable := floatAt(row, 2)
		if !okType || !okCurrency || !okAvailable {
			continue
		}
		wallets = append(wallets, Wallet{
			Type:      strings.ToLower(wtype),
			Currency:  strings.ToUpper(currency),
			Available: available,
		})
	}
	return wallets
}

// CancelAllOffers 批量撤销指定币种的全部在挂放贷委托。
func (c *Client) CancelAllOffers(ctx context.Context, assetCode string) (json.RawMessage, error) {
	return c.postPrivate(ctx, "v2/auth/w/funding/offer/cancel/all", map[string]interface{}{
		"symbol": assetCode,
	})
}

// SubmitOffer 提交一笔放贷委托。
func (c *Client) SubmitOffer(ctx context.Context, req OfferRequest) (json.RawMessage, error) {
	return c.postPrivate(ctx, "v2/auth/w/funding/offer/submit", map[string]interface{}{
		"type":   req.Type,
		"symbol": req.Symbol,
		"amount": req.Amount,
		"rate":   req.Rate,
		"period": req.Period,
		"flags":  req.Flags,
	})
}
