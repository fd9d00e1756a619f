package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lendbot/internal/anchor"
	"lendbot/internal/bitfinex"
	"lendbot/internal/config"
	"lendbot/internal/market"
	"lendbot/internal/monitor"
	"lendbot/internal/planner"
	"lendbot/internal/runner"
	"lendbot/internal/store"
	"lendbot/internal/submit"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	once   bool
}

// New 创建 App 实例。once 为真时只执行一轮后退出。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store, once bool) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		once:   once,
	}
}

// Run 装配依赖并按调度执行放贷轮次，直至收到退出信号。
func (a *App) Run(ctx context.Context) error {
	client, err := bitfinex.NewClient(a.cfg.Funding, a.logger)
	if err != nil {
		return fmt.Errorf("初始化交易所客户端失败: %w", err)
	}

	resolver, err := anchor.NewResolver(a.cfg.Strategy)
	if err != nil {
		return fmt.Errorf("初始化锚定策略失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}

	run := runner.New(
		market.NewAccountService(client, a.cfg.Funding, a.logger),
		market.NewCollector(client, a.logger),
		resolver,
		planner.New(a.cfg.Strategy),
		submit.NewSubmitter(client, a.logger),
		monitorSvc,
		a.logger,
	)

	a.logger.Info("放贷系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("public_symbol", a.cfg.Funding.PublicSymbol),
		zap.String("anchor", a.cfg.Strategy.Anchor),
		zap.String("order_kind", a.cfg.Strategy.OrderKind),
	)

	if a.once {
		return run.Run(ctx)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if a.cfg.Scheduler.RunOnStart {
		if err := run.Run(groupCtx); err != nil {
			a.logger.Error("首轮放贷执行失败", zap.Error(err))
		}
	}

	// SkipIfStillRunning 保证任一时刻至多一轮在跑，上一轮未结束时直接跳过本次触发。
	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := scheduler.AddFunc(a.cfg.Scheduler.Cron, func() {
		if err := run.Run(groupCtx); err != nil {
			a.logger.Error("执行放贷轮次失败", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("注册调度任务失败: %w", err)
	}
	scheduler.Start()

	group.Go(func() error {
		<-groupCtx.Done()
		<-scheduler.Stop().Done()
		a.logger.Info("调度器已停止")
		return nil
	})

	if a.cfg.Monitor.Enabled {
		group.Go(func() error {
			return serveMonitor(groupCtx, monitorSvc, a.cfg.Monitor.Port, a.logger)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}

	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
