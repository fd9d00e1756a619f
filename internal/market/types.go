package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Context 为一次放贷轮次解析出的市场上下文，解析后只读，绝不全局修改。
type Context struct {
	AssetCode       string
	PublicSymbol    string
	SymbolPreferred string
	SymbolFallback  string
}

// TickerQuote 为整合行情中与锚定相关的字段，缺失为 nil。
type TickerQuote struct {
	FRR  *decimal.Decimal
	Bid  *decimal.Decimal
	Ask  *decimal.Decimal
	Last *decimal.Decimal
}

// Snapshot 聚合一次采集到的全部公共市场信号，任一字段都可能缺失。
type Snapshot struct {
	Symbol        string
	BestBid       *decimal.Decimal
	BestAsk       *decimal.Decimal
	FRR           *decimal.Decimal
	LastTradeRate *decimal.Decimal
	Ticker        *TickerQuote
	RetrievedAt   time.Time
}

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func fromFloatPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	return decimalPtr(*v)
}
