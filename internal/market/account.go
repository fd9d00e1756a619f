package market

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendbot/internal/bitfinex"
	"lendbot/internal/config"
)

type accountClient interface {
	Wallets(ctx context.Context) ([]bitfinex.Wallet, error)
	CancelAllOffers(ctx context.Context, assetCode string) (json.RawMessage, error)
}

// AccountService 负责余额查询、币种别名探测与批量撤单。
type AccountService struct {
	client accountClient
	cfg    config.FundingConfig
	logger *zap.Logger
}

// NewAccountService 创建账户服务。
func NewAccountService(client accountClient, cfg config.FundingConfig, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve 读取钱包并解析本轮市场上下文与可用余额。
// 查询失败退化为零余额，上下文回落到配置的首个别名。
func (s *AccountService) Resolve(ctx context.Context) (Context, decimal.Decimal) {
	mctx := Context{
		AssetCode:       s.defaultAsset(),
		PublicSymbol:    s.cfg.PublicSymbol,
		SymbolPreferred: s.cfg.SymbolPreferred,
		SymbolFallback:  s.cfg.SymbolFallback,
	}

	wallets, err := s.client.Wallets(ctx)
	if err != nil {
		s.logger.Warn("查询钱包余额失败，按零余额处理", zap.Error(err))
		return mctx, decimal.Zero
	}

	mctx.AssetCode = s.detectAsset(wallets)

	free := decimal.Zero
	for _, w := range wallets {
		if w.Type != "funding" || w.Currency != mctx.AssetCode {
			continue
		}
		available := decimal.NewFromFloat(w.Available)
		if available.GreaterThan(free) {
			free = available
		}
	}

	s.logger.Info("钱包上下文解析完成",
		zap.String("asset", mctx.AssetCode),
		zap.String("free_balance", free.StringFixed(2)),
	)
	return mctx, free
}

// CancelAll 批量撤销指定币种的在挂放贷委托，尽力而为。
func (s *AccountService) CancelAll(ctx context.Context, assetCode string) error {
	resp, err := s.client.CancelAllOffers(ctx, assetCode)
	if err != nil {
		return err
	}
	s.logger.Info("已撤销在挂放贷委托",
		zap.String("asset", assetCode),
		zap.ByteString("response", resp),
	)
	return nil
}

// detectAsset 按配置的优先顺序在钱包币种里挑选别名。
func (s *AccountService) detectAsset(wallets []bitfinex.Wallet) string {
	seen := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		seen[w.Currency] = true
	}
	for _, alias := range s.cfg.AssetAliases {
		if seen[strings.ToUpper(alias)] {
			return strings.ToUpper(alias)
		}
	}
	return s.defaultAsset()
}

func (s *AccountService) defaultAsset() string {
	if len(s.cfg.AssetAliases) > 0 {
		return strings.ToUpper(s.cfg.AssetAliases[0])
	}
	return "USDT"
}
