package submit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"lendbot/internal/bitfinex"
	"lendbot/internal/market"
	"lendbot/internal/planner"
)

type offerClient interface {
	SubmitOffer(ctx context.Context, req bitfinex.OfferRequest) (json.RawMessage, error)
}

// Submitter 把放贷意向落地为交易所委托。
// 同一标的存在两个符号别名，首选符号失败时换备用符号重试一次，之后照常上抛。
type Submitter struct {
	client offerClient
	logger *zap.Logger
}

// NewSubmitter 创建提交适配器。
func NewSubmitter(client offerClient, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		client: client,
		logger: logger,
	}
}

// Submit 提交一笔意向。金额与利率序列化为 6 位定点小数，杜绝浮点漂移。
func (s *Submitter) Submit(ctx context.Context, mctx market.Context, intent planner.Intent) error {
	req := bitfinex.OfferRequest{
		Type:   string(intent.Kind),
		Symbol: mctx.SymbolPreferred,
		Amount: intent.Amount.StringFixed(6),
		Rate:   intent.Rate.StringFixed(6),
		Period: intent.Period,
		Flags:  intent.Flags,
	}

	resp, err := s.client.SubmitOffer(ctx, req)
	if err == nil {
		s.logSubmitted(req, intent, resp)
		return nil
	}

	s.logger.Warn("首选符号提交失败，换备用符号重试一次",
		zap.String("preferred", mctx.SymbolPreferred),
		zap.String("fallback", mctx.SymbolFallback),
		zap.String("amount", req.Amount),
		zap.String("rate", req.Rate),
		zap.Error(err),
	)

	req.Symbol = mctx.SymbolFallback
	resp, err = s.client.SubmitOffer(ctx, req)
	if err != nil {
		return fmt.Errorf("submit: 首选与备用符号均提交失败: %w", err)
	}

	s.logSubmitted(req, intent, resp)
	return nil
}

func (s *Submitter) logSubmitted(req bitfinex.OfferRequest, intent planner.Intent, resp json.RawMessage) {
	s.logger.Info("放贷委托已提交",
		zap.String("phase", string(intent.Phase)),
		zap.String("kind", string(intent.Kind)),
		zap.String("symbol", req.Symbol),
		zap.String("amount", req.Amount),
		zap.String("rate", req.Rate),
		zap.Int("period", req.Period),
		zap.Float64("apy", planner.DailyToAPY(intent.Rate)),
		zap.ByteString("response", resp),
	)
}
