package bitfinex

import "encoding/json"

// Wallet 表示钱包接口返回的一行：类型、币种与可用余额。
type Wallet struct {
	Type      string
	Currency  string
	Available float64
}

// BookRow 表示资金盘口的一档，Amount 符号区分买卖方向。
type BookRow struct {
	Rate   float64
	Amount float64
}

// Trade 表示一笔已成交的资金撮合。
type Trade struct {
	ID     int64
	MTS    int64
	Amount float64
	Rate   float64
	Period int
}

// Ticker 表示资金市场行情快照的关键字段，缺失字段为 nil。
type Ticker struct {
	FRR       *float64
	Bid       *float64
	Ask       *float64
	LastPrice *float64
}

// OfferRequest 表示一笔放贷委托，金额与利率为定点小数字符串。
type OfferRequest struct {
	Type   string
	Symbol string
	Amount string
	Rate   string
	Period int
	Flags  int64
}

// decodeRows 把数组响应拆成原始行，非数组行被丢弃。
func decodeRows(raw json.RawMessage) [][]interface{} {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		var row []interface{}
		if err := json.Unmarshal(item, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func floatAt(row []interface{}, idx int) (float64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	v, ok := row[idx].(float64)
	return v, ok
}

func stringAt(row []interface{}, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	v, ok := row[idx].(string)
	return v, ok
}

func floatPtrAt(row []interface{}, idx int) *float64 {
	if v, ok := floatAt(row, idx); ok {
		return &v
	}
	return nil
}
