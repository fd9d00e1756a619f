package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendbot/internal/bitfinex"
)

type marketClient interface {
	Book(ctx context.Context, symbol string) ([]bitfinex.BookRow, error)
	FundingStatLast(ctx context.Context, symbol string) (float64, error)
	LastTrade(ctx context.Context, symbol string) (bitfinex.Trade, error)
	Ticker(ctx context.Context, symbol string) (bitfinex.Ticker, error)
}

// Collector 顺序采集公共市场数据，任一来源失败都退化为字段缺失。
type Collector struct {
	client marketClient
	logger *zap.Logger
}

// NewCollector 创建市场数据采集器。
func NewCollector(client marketClient, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		client: client,
		logger: logger,
	}
}

// Snapshot 采集盘口、参考利率、最近成交与整合行情。
// 采集严格串行，单个来源出错只记录日志，不中断轮次。
func (c *Collector) Snapshot(ctx context.Context, symbol string) Snapshot {
	snapshot := Snapshot{
		Symbol:      symbol,
		RetrievedAt: time.Now().UTC(),
	}

	if rows, err := c.client.Book(ctx, symbol); err != nil {
		c.logger.Warn("拉取资金盘口失败", zap.String("symbol", symbol), zap.Error(err))
	} else {
		snapshot.BestBid, snapshot.BestAsk = bestBidAsk(rows)
	}

	if frr, err := c.client.FundingStatLast(ctx, symbol); err != nil {
		c.logger.Warn("拉取参考利率失败", zap.String("symbol", symbol), zap.Error(err))
	} else {
		snapshot.FRR = decimalPtr(frr)
	}

	if trade, err := c.client.LastTrade(ctx, symbol); err != nil {
		c.logger.Warn("拉取最近成交失败", zap.String("symbol", symbol), zap.Error(err))
	} else if trade.Rate > 0 {
		snapshot.LastTradeRate = decimalPtr(trade.Rate)
	}

	if ticker, err := c.client.Ticker(ctx, symbol); err != nil {
		c.logger.Warn("拉取整合行情失败", zap.String("symbol", symbol), zap.Error(err))
	} else {
		snapshot.Ticker = &TickerQuote{
			FRR:  fromFloatPtr(ticker.FRR),
			Bid:  fromFloatPtr(ticker.Bid),
			Ask:  fromFloatPtr(ticker.Ask),
			Last: fromFloatPtr(ticker.LastPrice),
		}
	}

	c.logger.Debug("市场数据快照采集完成",
		zap.String("symbol", symbol),
		zap.Bool("has_best_bid", snapshot.BestBid != nil),
		zap.Bool("has_best_ask", snapshot.BestAsk != nil),
		zap.Bool("has_frr", snapshot.FRR != nil),
		zap.Bool("has_last_trade", snapshot.LastTradeRate != nil),
		zap.Bool("has_ticker", snapshot.Ticker != nil),
	)

	return snapshot
}

// bestBidAsk 从带符号数量的盘口行里取双边最优价。
// 正数量为出借买盘，负数量为借入卖盘；买一取最大利率，卖一取最小利率。
func bestBidAsk(rows []bitfinex.BookRow) (*decimal.Decimal, *decimal.Decimal) {
	var bestBid, bestAsk *float64
	for _, row := range rows {
		rate := row.Rate
		switch {
		case row.Amount > 0:
			if bestBid == nil || rate > *bestBid {
				bestBid = &rate
			}
		case row.Amount < 0:
			if bestAsk == nil || rate < *bestAsk {
				bestAsk = &rate
			}
		}
	}
	return fromFloatPtr(bestBid), fromFloatPtr(bestAsk)
}
