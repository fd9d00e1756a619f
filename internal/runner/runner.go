package runner

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendbot/internal/anchor"
	"lendbot/internal/market"
	"lendbot/internal/monitor"
	"lendbot/internal/planner"
)

type accountService interface {
	Resolve(ctx context.Context) (market.Context, decimal.Decimal)
	CancelAll(ctx context.Context, assetCode string) error
}

type marketCollector interface {
	Snapshot(ctx context.Context, symbol string) market.Snapshot
}

type offerSubmitter interface {
	Submit(ctx context.Context, mctx market.Context, intent planner.Intent) error
}

type recorder interface {
	RecordAnchor(ctx context.Context, payload monitor.AnchorPayload)
	RecordOffer(ctx context.Context, payload monitor.OfferPayload)
	RecordRunSummary(ctx context.Context, payload monitor.RunSummaryPayload)
	RecordIdleWarning(ctx context.Context, payload monitor.IdleWarningPayload)
	RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{})
}

// Runner 驱动单轮放贷：撤单、读余额、解析锚、梯度铺单、maker 腿、兜底、闲置告警。
// 一轮内全部串行，不保留任何跨轮状态。
type Runner struct {
	account  accountService
	market   marketCollector
	resolver anchor.Resolver
	plan     *planner.Planner
	submit   offerSubmitter
	monitor  recorder
	logger   *zap.Logger
}

// New 创建放贷轮次执行器。
func New(account accountService, collector marketCollector, resolver anchor.Resolver, plan *planner.Planner, submit offerSubmitter, mon recorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		account:  account,
		market:   collector,
		resolver: resolver,
		plan:     plan,
		submit:   submit,
		monitor:  mon,
		logger:   logger,
	}
}

// Run 执行一轮放贷。
func (r *Runner) Run(ctx context.Context) error {
	// 先确定本轮币种，再撤单，撤单释放的资金要计入随后的可用余额。
	mctx, _ := r.account.Resolve(ctx)

	if err := r.account.CancelAll(ctx, mctx.AssetCode); err != nil {
		r.logger.Warn("撤销在挂委托失败，继续本轮", zap.String("asset", mctx.AssetCode), zap.Error(err))
		r.monitor.RecordError(ctx, "撤销在挂委托失败", err, map[string]interface{}{"asset": mctx.AssetCode})
	}

	mctx, balance := r.account.Resolve(ctx)
	r.logger.Info("本轮上下文就绪",
		zap.String("asset", mctx.AssetCode),
		zap.String("public_symbol", mctx.PublicSymbol),
		zap.String("free_balance", balance.StringFixed(2)),
	)

	if balance.LessThan(r.plan.MinOffer()) {
		r.logger.Info("可用余额低于最小委托金额，无可放贷",
			zap.String("free_balance", balance.StringFixed(2)),
			zap.String("min_offer", r.plan.MinOffer().StringFixed(2)),
		)
		r.monitor.RecordRunSummary(ctx, monitor.RunSummaryPayload{
			Asset:       mctx.AssetCode,
			FreeBalance: balance.StringFixed(2),
			Deployed:    "0.00",
			Remaining:   balance.StringFixed(2),
			Offers:      0,
			Note:        "nothing to deploy",
		})
		return nil
	}

	snapshot := r.market.Snapshot(ctx, mctx.PublicSymbol)

	anchorRate, err := r.resolver.Resolve(snapshot)
	if err != nil {
		r.monitor.RecordError(ctx, "锚定利率解析失败", err, map[string]interface{}{"strategy": r.resolver.Name()})
		return fmt.Errorf("runner: 锚定利率解析失败: %w", err)
	}

	apy := planner.DailyToAPY(anchorRate)
	r.logger.Info("锚定利率已解析",
		zap.String("strategy", r.resolver.Name()),
		zap.String("daily_rate", anchorRate.StringFixed(6)),
		zap.String("apy", fmt.Sprintf("%.2f%%", apy*100)),
	)
	r.monitor.RecordAnchor(ctx, monitor.AnchorPayload{
		Strategy: r.resolver.Name(),
		Rate:     anchorRate.StringFixed(6),
		APY:      apy,
	})

	remaining := balance
	offers := 0

	// 主梯度阶段。
	primary, _ := r.plan.PlanPrimary(remaining, anchorRate)
	placed, spent := r.submitPhase(ctx, mctx, primary)
	offers += placed
	remaining = remaining.Sub(spent)

	// maker 腿阶段。
	makers, _ := r.plan.PlanMakerLegs(remaining, snapshot.BestBid, anchorRate)
	placed, spent = r.submitPhase(ctx, mctx, makers)
	offers += placed
	remaining = remaining.Sub(spent)

	// 兜底阶段：任何残余都收进一笔零偏移委托。
	if sweep := r.plan.PlanSweep(remaining, anchorRate); sweep != nil {
		if err := r.submit.Submit(ctx, mctx, *sweep); err != nil {
			r.logger.Error("兜底委托提交失败",
				zap.String("amount", sweep.Amount.StringFixed(2)),
				zap.Error(err),
			)
			r.monitor.RecordError(ctx, "兜底委托提交失败", err, map[string]interface{}{
				"amount": sweep.Amount.StringFixed(2),
			})
		} else {
			r.recordOffer(ctx, *sweep)
			offers++
			remaining = remaining.Sub(sweep.Amount)
		}
	}

	// 闲置告警：只有兜底失败才可能走到这里，纯提示，不触发重试。
	threshold := r.plan.IdleThreshold()
	if threshold.IsPositive() && remaining.GreaterThanOrEqual(threshold) {
		r.logger.Warn("仍有余额闲置，建议调大 maker 腿数量或降低收益守护阈值",
			zap.String("remaining", remaining.StringFixed(2)),
			zap.String("threshold", threshold.StringFixed(2)),
		)
		r.monitor.RecordIdleWarning(ctx, monitor.IdleWarningPayload{
			Remaining: remaining.StringFixed(2),
			Threshold: threshold.StringFixed(2),
		})
	}

	deployed := balance.Sub(remaining)
	r.monitor.RecordRunSummary(ctx, monitor.RunSummaryPayload{
		Asset:       mctx.AssetCode,
		FreeBalance: balance.StringFixed(2),
		Deployed:    deployed.StringFixed(2),
		Remaining:   remaining.StringFixed(2),
		Offers:      offers,
	})
	r.logger.Info("本轮放贷完成",
		zap.String("deployed", deployed.StringFixed(2)),
		zap.String("remaining", remaining.StringFixed(2)),
		zap.Int("offers", offers),
	)

	return nil
}

// submitPhase 依序提交一个阶段的意向，首个失败立即终止该阶段，失败意向不重试。
// 返回成功笔数与成功占用的金额。
func (r *Runner) submitPhase(ctx context.Context, mctx market.Context, intents []planner.Intent) (int, decimal.Decimal) {
	placed := 0
	spent := decimal.Zero

	for _, intent := range intents {
		if err := r.submit.Submit(ctx, mctx, intent); err != nil {
			r.logger.Error("委托提交失败，终止该阶段",
				zap.String("phase", string(intent.Phase)),
				zap.String("amount", intent.Amount.StringFixed(2)),
				zap.String("rate", intent.Rate.StringFixed(6)),
				zap.Error(err),
			)
			r.monitor.RecordError(ctx, "委托提交失败", err, map[string]interface{}{
				"phase":  string(intent.Phase),
				"amount": intent.Amount.StringFixed(2),
				"rate":   intent.Rate.StringFixed(6),
			})
			break
		}
		r.recordOffer(ctx, intent)
		placed++
		spent = spent.Add(intent.Amount)
	}

	return placed, spent
}

func (r *Runner) recordOffer(ctx context.Context, intent planner.Intent) {
	r.monitor.RecordOffer(ctx, monitor.OfferPayload{
		Phase:  string(intent.Phase),
		Kind:   string(intent.Kind),
		Amount: intent.Amount.StringFixed(6),
		Rate:   intent.Rate.StringFixed(6),
		Period: intent.Period,
	})
}
