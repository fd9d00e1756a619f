package anchor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lendbot/internal/config"
	"lendbot/internal/market"
)

// ErrNoSignal 表示市场信号完全不可用，blend 策略会以此中止本轮。
var ErrNoSignal = errors.New("anchor: 无可用市场信号")

// Resolver 把一份市场快照收敛为单一的日利率锚。
type Resolver interface {
	Name() string
	Resolve(snapshot market.Snapshot) (decimal.Decimal, error)
}

// NewResolver 按配置选择锚定策略。
func NewResolver(cfg config.StrategyConfig) (Resolver, error) {
	fallback := decimal.NewFromFloat(cfg.FallbackRate)

	switch cfg.Anchor {
	case config.AnchorFRR:
		return &frrResolver{fallback: fallback}, nil
	case config.AnchorBlend:
		return &blendResolver{
			midWeight:  decimal.NewFromFloat(cfg.Blend.MidWeight),
			lastWeight: decimal.NewFromFloat(cfg.Blend.LastWeight),
		}, nil
	case config.AnchorLastTrade:
		return &lastTradeResolver{chain: frrResolver{fallback: fallback}}, nil
	default:
		return nil, fmt.Errorf("anchor: 未知锚定策略 %q", cfg.Anchor)
	}
}

// frrResolver 为规范策略：参考利率优先，盘口中值兜底，保证正数输出。
type frrResolver struct {
	fallback decimal.Decimal
}

func (r *frrResolver) Name() string { return config.AnchorFRR }

func (r *frrResolver) Resolve(snapshot market.Snapshot) (decimal.Decimal, error) {
	if snapshot.FRR != nil && snapshot.FRR.IsPositive() {
		return *snapshot.FRR, nil
	}

	bid, ask := snapshot.BestBid, snapshot.BestAsk
	switch {
	case bid != nil && ask != nil:
		return bid.Add(*ask).Div(decimal.NewFromInt(2)), nil
	case bid != nil && bid.IsPositive():
		return *bid, nil
	case ask != nil && ask.IsPositive():
		return *ask, nil
	}

	return r.fallback, nil
}

// blendResolver 把盘口中值与最新成交价按固定权重混合。
// 两者都缺失时显式失败，由上层中止本轮。
type blendResolver struct {
	midWeight  decimal.Decimal
	lastWeight decimal.Decimal
}

func (r *blendResolver) Name() string { return config.AnchorBlend }

func (r *blendResolver) Resolve(snapshot market.Snapshot) (decimal.Decimal, error) {
	ticker := snapshot.Ticker
	if ticker == nil {
		return decimal.Zero, fmt.Errorf("%w: 行情快照缺失", ErrNoSignal)
	}

	mid := midFromQuote(ticker)
	last := positiveOrNil(ticker.Last)

	var result decimal.Decimal
	switch {
	case mid != nil && last != nil:
		result = r.midWeight.Mul(*mid).Add(r.lastWeight.Mul(*last))
	case mid != nil:
		result = *mid
	case last != nil:
		result = *last
	default:
		return decimal.Zero, fmt.Errorf("%w: 行情无买卖价也无最新价", ErrNoSignal)
	}

	if !result.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: 混合结果非正", ErrNoSignal)
	}
	return result, nil
}

// lastTradeResolver 以最近成交利率为锚，无成交史时退回规范链。
type lastTradeResolver struct {
	chain frrResolver
}

func (r *lastTradeResolver) Name() string { return config.AnchorLastTrade }

func (r *lastTradeResolver) Resolve(snapshot market.Snapshot) (decimal.Decimal, error) {
	if snapshot.LastTradeRate != nil && snapshot.LastTradeRate.IsPositive() {
		return *snapshot.LastTradeRate, nil
	}
	return r.chain.Resolve(snapshot)
}

func midFromQuote(ticker *market.TickerQuote) *decimal.Decimal {
	bid := positiveOrNil(ticker.Bid)
	ask := positiveOrNil(ticker.Ask)
	switch {
	case bid != nil && ask != nil:
		mid := bid.Add(*ask).Div(decimal.NewFromInt(2))
		return &mid
	case bid != nil:
		return bid
	case ask != nil:
		return ask
	}
	return nil
}

func positiveOrNil(v *decimal.Decimal) *decimal.Decimal {
	if v != nil && v.IsPositive() {
		return v
	}
	return nil
}
