package planner

import (
	"math"

	"github.com/shopspring/decimal"

	"lendbot/internal/config"
)

// Planner 把可用余额按梯度切分成一组放贷意向。
// 所有方法均为纯函数，不触网、不修改自身状态。
type Planner struct {
	kind      Kind
	minOffer  decimal.Decimal
	chunkSize decimal.Decimal
	rateFloor decimal.Decimal
	ladder    []decimal.Decimal
	guardAPY  float64
	period    int
	flags     int64

	makerEnabled bool
	makerMax     int
	makerEps     decimal.Decimal

	idleThreshold decimal.Decimal
}

// New 由策略配置构造 Planner。
func New(cfg config.StrategyConfig) *Planner {
	kind := KindFRRDelta
	if cfg.OrderKind == config.OrderKindLimit {
		kind = KindLimit
	}

	var flags int64
	if cfg.AutoRenew {
		flags = AutoRenewFlag
	}

	ladder := make([]decimal.Decimal, 0, len(cfg.Ladder))
	for _, offset := range cfg.Ladder {
		ladder = append(ladder, decimal.NewFromFloat(offset))
	}
	if len(ladder) == 0 {
		ladder = []decimal.Decimal{decimal.Zero}
	}

	return &Planner{
		kind:          kind,
		minOffer:      decimal.NewFromFloat(cfg.MinOffer),
		chunkSize:     decimal.NewFromFloat(cfg.ChunkSize),
		rateFloor:     decimal.NewFromFloat(cfg.RateFloor),
		ladder:        ladder,
		guardAPY:      cfg.MinAPYGuard,
		period:        cfg.DurationDays,
		flags:         flags,
		makerEnabled:  cfg.Maker.Enabled,
		makerMax:      cfg.Maker.MaxChunks,
		makerEps:      decimal.NewFromFloat(cfg.Maker.Epsilon),
		idleThreshold: decimal.NewFromFloat(cfg.IdleWarnThreshold),
	}
}

// MinOffer 返回单笔委托的最小金额。
func (p *Planner) MinOffer() decimal.Decimal { return p.minOffer }

// IdleThreshold 返回闲置余额告警阈值。
func (p *Planner) IdleThreshold() decimal.Decimal { return p.idleThreshold }

// DailyToAPY 把日利率按复利折算成年化收益率。
// 只用于守护阈值比较与日志展示，不影响任何金额计算。
func DailyToAPY(daily decimal.Decimal) float64 {
	return math.Pow(1+daily.InexactFloat64(), 365) - 1
}

// Ladder 返回本轮实际使用的偏移梯度。
// 低收益环境下梯度收敛为单个零偏移：目的仍是把资金挂出去换取成交，而非观望。
func (p *Planner) Ladder(anchor decimal.Decimal) []decimal.Decimal {
	if p.guardAPY > 0 {
		apy := 0.0
		if anchor.IsPositive() {
			apy = DailyToAPY(anchor)
		}
		if apy*100 < p.guardAPY {
			return []decimal.Decimal{decimal.Zero}
		}
	}
	return p.ladder
}

// PlanPrimary 为主梯度阶段生成意向序列，穷尽模式：余额降到最小金额以下才停。
// 返回意向与未分配余额。
func (p *Planner) PlanPrimary(balance, anchor decimal.Decimal) ([]Intent, decimal.Decimal) {
	ladder := p.Ladder(anchor)
	remaining := balance
	intents := make([]Intent, 0)

	for idx := 0; remaining.GreaterThanOrEqual(p.minOffer); idx++ {
		chunk := decimal.Min(p.chunkSize, remaining)
		if chunk.LessThan(p.minOffer) {
			break
		}

		offset := ladder[idx%len(ladder)]
		intents = append(intents, Intent{
			Amount: chunk,
			Rate:   p.rateFor(anchor, offset),
			Period: p.period,
			Kind:   p.kind,
			Flags:  p.flags,
			Phase:  PhasePrimary,
			Offset: offset,
		})
		remaining = remaining.Sub(chunk)
	}

	return intents, remaining
}

// PlanMakerLegs 在买一价内侧生成额外意向，提升成交概率；无买一时回落到锚。
func (p *Planner) PlanMakerLegs(remaining decimal.Decimal, bestBid *decimal.Decimal, anchor decimal.Decimal) ([]Intent, decimal.Decimal) {
	if !p.makerEnabled || remaining.LessThan(p.minOffer) {
		return nil, remaining
	}

	maxChunks := int(remaining.Div(p.chunkSize).IntPart())
	if maxChunks > p.makerMax {
		maxChunks = p.makerMax
	}
	if maxChunks <= 0 {
		return nil, remaining
	}

	var target decimal.Decimal
	if bestBid != nil && bestBid.IsPositive() {
		target = decimal.Max(bestBid.Sub(p.makerEps), p.rateFloor)
	} else {
		target = decimal.Max(anchor, p.rateFloor)
	}

	intents := make([]Intent, 0, maxChunks)
	for i := 0; i < maxChunks; i++ {
		if remaining.LessThan(p.minOffer) {
			break
		}
		chunk := decimal.Min(p.chunkSize, remaining)
		if chunk.LessThan(p.minOffer) {
			break
		}
		intents = append(intents, Intent{
			Amount: chunk,
			Rate:   target,
			Period: p.period,
			Kind:   KindLimit,
			Flags:  p.flags,
			Phase:  PhaseMaker,
		})
		remaining = remaining.Sub(chunk)
	}

	return intents, remaining
}

// PlanSweep 把全部剩余余额收进一笔兜底委托。
// FRRDELTA 模式下利率为零，即纯跟随参考利率的零偏移单；
// LIMIT 模式下直接使用锚利率。余额非正时无需兜底。
func (p *Planner) PlanSweep(remaining, anchor decimal.Decimal) *Intent {
	if !remaining.IsPositive() {
		return nil
	}

	rate := decimal.Zero
	if p.kind == KindLimit {
		rate = decimal.Max(anchor, p.rateFloor)
	}

	return &Intent{
		Amount: remaining,
		Rate:   rate,
		Period: p.period,
		Kind:   p.kind,
		Flags:  p.flags,
		Phase:  PhaseSweep,
		Offset: decimal.Zero,
	}
}

// rateFor 计算单笔意向的目标利率：浮动单加法偏移，固定单乘法偏移，统一钳到正下限。
func (p *Planner) rateFor(anchor, offset decimal.Decimal) decimal.Decimal {
	var rate decimal.Decimal
	switch p.kind {
	case KindLimit:
		rate = anchor.Mul(decimal.NewFromInt(1).Add(offset))
	default:
		rate = anchor.Add(offset)
	}
	return decimal.Max(rate, p.rateFloor)
}
