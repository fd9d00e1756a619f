package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lendbot/internal/config"
	"lendbot/internal/market"
	"lendbot/internal/monitor"
	"lendbot/internal/planner"
)

type mockAccount struct {
	balance      decimal.Decimal
	cancelErr    error
	resolveCalls int
	cancelAsset  string
}

func (m *mockAccount) Resolve(ctx context.Context) (market.Context, decimal.Decimal) {
	m.resolveCalls++
	return market.Context{
		AssetCode:       "USDT",
		PublicSymbol:    "fUSDT",
		SymbolPreferred: "fUSDT",
		SymbolFallback:  "fUST",
	}, m.balance
}

func (m *mockAccount) CancelAll(ctx context.Context, assetCode string) error {
	m.cancelAsset = assetCode
	return m.cancelErr
}

type mockCollector struct {
	snap market.Snapshot
}

func (m *mockCollector) Snapshot(ctx context.Context, symbol string) market.Snapshot {
	m.snap.Symbol = symbol
	return m.snap
}

type mockSubmitter struct {
	intents []planner.Intent
	failAt  map[int]error // 按 1 起始的调用序号注入失败
	calls   int
}

func (m *mockSubmitter) Submit(ctx context.Context, mctx market.Context, intent planner.Intent) error {
	m.calls++
	if err, ok := m.failAt[m.calls]; ok {
		return err
	}
	m.intents = append(m.intents, intent)
	return nil
}

type mockRecorder struct {
	anchors   []monitor.AnchorPayload
	offers    []monitor.OfferPayload
	summaries []monitor.RunSummaryPayload
	idles     []monitor.IdleWarningPayload
	errors    []string
}

func (m *mockRecorder) RecordAnchor(ctx context.Context, payload monitor.AnchorPayload) {
	m.anchors = append(m.anchors, payload)
}

func (m *mockRecorder) RecordOffer(ctx context.Context, payload monitor.OfferPayload) {
	m.offers = append(m.offers, payload)
}

func (m *mockRecorder) RecordRunSummary(ctx context.Context, payload monitor.RunSummaryPayload) {
	m.summaries = append(m.summaries, payload)
}

func (m *mockRecorder) RecordIdleWarning(ctx context.Context, payload monitor.IdleWarningPayload) {
	m.idles = append(m.idles, payload)
}

func (m *mockRecorder) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	m.errors = append(m.errors, msg)
}

type fixedResolver struct {
	rate decimal.Decimal
	err  error
}

func (r *fixedResolver) Name() string { return "frr" }

func (r *fixedResolver) Resolve(snapshot market.Snapshot) (decimal.Decimal, error) {
	return r.rate, r.err
}

func runStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		Anchor:            config.AnchorFRR,
		OrderKind:         config.OrderKindFRRDelta,
		MinOffer:          150,
		ChunkSize:         500,
		DurationDays:      2,
		AutoRenew:         true,
		Ladder:            []float64{0.0, 0.0002},
		RateFloor:         0.000001,
		FallbackRate:      0.0002,
		IdleWarnThreshold: 200,
	}
}

func newTestRunner(account *mockAccount, submitter *mockSubmitter, rec *mockRecorder, resolver *fixedResolver, cfg config.StrategyConfig) *Runner {
	return New(account, &mockCollector{}, resolver, planner.New(cfg), submitter, rec, nil)
}

func TestRun_NothingToDeploy(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(100)}
	submitter := &mockSubmitter{}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if submitter.calls != 0 {
		t.Errorf("expected no submissions, got %d", submitter.calls)
	}
	if len(rec.anchors) != 0 {
		t.Error("anchor must not be resolved when there is nothing to deploy")
	}
	if len(rec.summaries) != 1 || rec.summaries[0].Note != "nothing to deploy" {
		t.Errorf("expected a nothing-to-deploy summary, got %+v", rec.summaries)
	}
}

func TestRun_DeploysFullBalance(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(1000)}
	submitter := &mockSubmitter{}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if submitter.calls != 2 {
		t.Fatalf("expected 2 submissions, got %d", submitter.calls)
	}
	if account.resolveCalls != 2 {
		t.Errorf("balance must be read again after cancellation, resolve calls = %d", account.resolveCalls)
	}
	if account.cancelAsset != "USDT" {
		t.Errorf("expected cancel for USDT, got %q", account.cancelAsset)
	}

	summary := rec.summaries[len(rec.summaries)-1]
	if summary.Deployed != "1000.00" || summary.Remaining != "0.00" || summary.Offers != 2 {
		t.Errorf("summary mismatch: %+v", summary)
	}
	if len(rec.idles) != 0 {
		t.Error("no idle warning expected after full deployment")
	}
}

func TestRun_SweepsSubMinimumRemainder(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(620)}
	submitter := &mockSubmitter{}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if submitter.calls != 2 {
		t.Fatalf("expected primary plus sweep, got %d submissions", submitter.calls)
	}
	sweep := submitter.intents[1]
	if sweep.Phase != planner.PhaseSweep {
		t.Errorf("expected sweep phase, got %s", sweep.Phase)
	}
	if !sweep.Amount.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected sweep amount 120, got %s", sweep.Amount)
	}

	summary := rec.summaries[len(rec.summaries)-1]
	if summary.Deployed != "620.00" || summary.Remaining != "0.00" {
		t.Errorf("summary mismatch: %+v", summary)
	}
}

func TestRun_AnchorFailureAbortsRun(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(1000)}
	submitter := &mockSubmitter{}
	rec := &mockRecorder{}
	cause := errors.New("no signal")
	r := newTestRunner(account, submitter, rec, &fixedResolver{err: cause}, runStrategy())

	err := r.Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped resolver error, got %v", err)
	}
	if submitter.calls != 0 {
		t.Errorf("no submissions expected after anchor failure, got %d", submitter.calls)
	}
	if len(rec.errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(rec.errors))
	}
}

func TestRun_FailFastThenSweepsUnspentBalance(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(1500)}
	submitter := &mockSubmitter{failAt: map[int]error{2: errors.New("rate limited")}}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 主阶段第二笔失败后立即终止，未占用的 1000 由兜底单收下。
	if submitter.calls != 3 {
		t.Fatalf("expected 3 submission attempts, got %d", submitter.calls)
	}
	if len(submitter.intents) != 2 {
		t.Fatalf("expected 2 successful submissions, got %d", len(submitter.intents))
	}
	sweep := submitter.intents[1]
	if sweep.Phase != planner.PhaseSweep || !sweep.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected sweep of 1000, got %+v", sweep)
	}

	summary := rec.summaries[len(rec.summaries)-1]
	if summary.Deployed != "1500.00" || summary.Offers != 2 {
		t.Errorf("summary mismatch: %+v", summary)
	}
	if len(rec.errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(rec.errors))
	}
}

func TestRun_IdleWarningWhenNothingPlaces(t *testing.T) {
	account := &mockAccount{balance: decimal.NewFromInt(620)}
	failure := errors.New("maintenance")
	submitter := &mockSubmitter{failAt: map[int]error{1: failure, 2: failure}}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rec.idles) != 1 {
		t.Fatalf("expected 1 idle warning, got %d", len(rec.idles))
	}
	if rec.idles[0].Remaining != "620.00" {
		t.Errorf("expected idle remaining 620.00, got %q", rec.idles[0].Remaining)
	}

	summary := rec.summaries[len(rec.summaries)-1]
	if summary.Deployed != "0.00" || summary.Offers != 0 {
		t.Errorf("summary mismatch: %+v", summary)
	}
}

func TestRun_CancellationFailureIsTolerated(t *testing.T) {
	account := &mockAccount{
		balance:   decimal.NewFromInt(500),
		cancelErr: errors.New("nonce too small"),
	}
	submitter := &mockSubmitter{}
	rec := &mockRecorder{}
	r := newTestRunner(account, submitter, rec, &fixedResolver{rate: decimal.NewFromFloat(0.0005)}, runStrategy())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run must tolerate cancellation failure: %v", err)
	}
	if submitter.calls == 0 {
		t.Error("run must continue to submission after cancellation failure")
	}
	if len(rec.errors) != 1 {
		t.Errorf("expected cancellation failure to be recorded, got %d errors", len(rec.errors))
	}
}
