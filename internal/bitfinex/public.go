package bitfinex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Book 拉取资金盘口快照（R0 精度），每行携带利率与带符号数量。
func (c *Client) Book(ctx context.Context, symbol string) ([]BookRow, error) {
	length := c.cfg.BookLength
	if length <= 0 {
		length = 25
	}

	raw, err := c.getPublic(ctx, fmt.Sprintf("/v2/book/funding/%s/R0", symbol), map[string]string{
		"len": strconv.Itoa(length),
	})
	if err != nil {
		return nil, err
	}

	return parseBook(raw), nil
}

func parseBook(raw json.RawMessage) []BookRow {
	rows := decodeRows(raw)
	book := make([]BookRow, 0, len(rows))
	for _, row := range rows {
		// R0 行格式: [OFFER_ID, RATE, AMOUNT, PERIOD]
		if len(row) < 4 {
			continue
		}
		rate, okRate := floatAt(row, 1)
		amount, okAmount := floatAt(row, 2)
		if !okRate || !okAmount {
			continue
		}
		book = append(book, BookRow{Rate: rate, Amount: amount})
	}
	return book
}

// FundingStatLast 拉取官方发布的浮动参考利率。
// 线上存在 [MTS, VALUE] 与裸标量两种形状，这里统一容忍。
func (c *Client) FundingStatLast(ctx context.Context, symbol string) (float64, error) {
	raw, err := c.getPublic(ctx, fmt.Sprintf("/v2/funding/stats/%s/last", symbol), nil)
	if err != nil {
		return 0, err
	}

	value, ok := parseFundingStat(raw)
	if !ok {
		return 0, fmt.Errorf("bitfinex: 参考利率响应无可用数值: %s", string(raw))
	}
	return value, nil
}

func parseFundingStat(raw json.RawMessage) (float64, bool) {
	var arr []interface{}
	if err := json.Unmarshal(raw, &arr); err == nil {
		var v float64
		var ok bool
		switch {
		case len(arr) >= 2:
			v, ok = floatAt(arr, 1)
		case len(arr) == 1:
			v, ok = floatAt(arr, 0)
		}
		if ok && v > 0 {
			return v, true
		}
		return 0, false
	}

	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil && scalar > 0 {
		return scalar, true
	}
	return 0, false
}

// LastTrade 拉取最近一笔资金撮合记录。
func (c *Client) LastTrade(ctx context.Context, symbol string) (Trade, error) {
	raw, err := c.getPublic(ctx, fmt.Sprintf("/v2/trades/%s/hist", symbol), map[string]string{
		"limit": "1",
	})
	if err != nil {
		return Trade{}, err
	}

	trade, ok := parseLastTrade(raw)
	if !ok {
		return Trade{}, fmt.Errorf("bitfinex: 无成交历史: %s", symbol)
	}
	return trade, nil
}

func parseLastTrade(raw json.RawMessage) (Trade, bool) {
	rows := decodeRows(raw)
	for _, row := range rows {
		// 行格式: [ID, MTS, AMOUNT, RATE, PERIOD]
		if len(row) < 5 {
			continue
		}
		id, okID := floatAt(row, 0)
		mts, okMTS := floatAt(row, 1)
		amount, okAmount := floatAt(row, 2)
		rate, okRate := floatAt(row, 3)
		period, okPeriod := floatAt(row, 4)
		if !okID || !okMTS || !okAmount || !okRate || !okPeriod {
			continue
		}
		return Trade{
			ID:     int64(id),
			MTS:    int64(mts),
			Amount: amount,
			Rate:   rate,
			Period: int(period),
		}, true
	}
	return Trade{}, false
}

// Ticker 拉取整合行情：参考利率、买一、卖一与最新价。
func (c *Client) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	raw, err := c.getPublic(ctx, fmt.Sprintf("/v2/ticker/%s", symbol), nil)
	if err != nil {
		return Ticker{}, err
	}

	var row []interface{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return Ticker{}, fmt.Errorf("bitfinex: 解析行情响应失败: %w", err)
	}

	// 资金行情行格式:
	// [FRR, BID, BID_PERIOD, BID_SIZE, ASK, ASK_PERIOD, ASK_SIZE,
	//  DAILY_CHANGE, DAILY_CHANGE_REL, LAST_PRICE, VOLUME, HIGH, LOW]
	return Ticker{
		FRR:       floatPtrAt(row, 0),
		Bid:       floatPtrAt(row, 1),
		Ask:       floatPtrAt(row, 4),
		LastPrice: floatPtrAt(row, 9),
	}, nil
}
