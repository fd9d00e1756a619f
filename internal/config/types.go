package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// 锚定策略与订单类型的合法取值。
const (
	AnchorFRR       = "frr"
	AnchorBlend     = "blend"
	AnchorLastTrade = "last_trade"

	OrderKindFRRDelta = "frrdelta"
	OrderKindLimit    = "limit"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Funding   FundingConfig   `mapstructure:"funding"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// FundingConfig 描述资金市场接入信息。
type FundingConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	APISecret       string        `mapstructure:"api_secret"`
	PublicSymbol    string        `mapstructure:"public_symbol"`
	SymbolPreferred string        `mapstructure:"symbol_preferred"`
	SymbolFallback  string        `mapstructure:"symbol_fallback"`
	AssetAliases    []string      `mapstructure:"asset_aliases"`
	BookLength      int           `mapstructure:"book_length"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// StrategyConfig 管理放贷策略：梯度、阈值与兜底参数。
type StrategyConfig struct {
	Anchor            string      `mapstructure:"anchor"`
	OrderKind         string      `mapstructure:"order_kind"`
	MinOffer          float64     `mapstructure:"min_offer"`
	ChunkSize         float64     `mapstructure:"chunk_size"`
	DurationDays      int         `mapstructure:"duration_days"`
	AutoRenew         bool        `mapstructure:"auto_renew"`
	Ladder            []float64   `mapstructure:"ladder"`
	MinAPYGuard       float64     `mapstructure:"min_apy_guard"`
	RateFloor         float64     `mapstructure:"rate_floor"`
	FallbackRate      float64     `mapstructure:"fallback_rate"`
	IdleWarnThreshold float64     `mapstructure:"idle_warn_threshold"`
	Maker             MakerConfig `mapstructure:"maker"`
	Blend             BlendConfig `mapstructure:"blend"`
}

// MakerConfig 控制贴近买一价的 maker 腿。
type MakerConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	MaxChunks int     `mapstructure:"max_chunks"`
	Epsilon   float64 `mapstructure:"epsilon"`
}

// BlendConfig 控制 blend 锚定策略的加权参数。
type BlendConfig struct {
	MidWeight  float64 `mapstructure:"mid_weight"`
	LastWeight float64 `mapstructure:"last_weight"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制放贷轮次的调度节奏。
type SchedulerConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// MonitorConfig 控制监控事件查询接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Funding.BaseURL == "" {
		err = multierr.Append(err, errors.New("funding.base_url 不能为空"))
	}
	if c.Funding.APIKey == "" || c.Funding.APISecret == "" {
		err = multierr.Append(err, errors.New("funding.api_key 与 funding.api_secret 不能为空"))
	}
	if c.Funding.PublicSymbol == "" {
		err = multierr.Append(err, errors.New("funding.public_symbol 不能为空"))
	}
	if c.Funding.SymbolPreferred == "" || c.Funding.SymbolFallback == "" {
		err = multierr.Append(err, errors.New("funding.symbol_preferred 与 funding.symbol_fallback 不能为空"))
	}
	if len(c.Funding.AssetAliases) == 0 {
		err = multierr.Append(err, errors.New("funding.asset_aliases 至少包含一个币种代码"))
	}
	if c.Funding.BookLength <= 0 {
		err = multierr.Append(err, errors.New("funding.book_length 必须大于0"))
	}
	if c.Funding.Timeout <= 0 {
		err = multierr.Append(err, errors.New("funding.timeout 必须大于0"))
	}

	switch c.Strategy.Anchor {
	case AnchorFRR, AnchorBlend, AnchorLastTrade:
	default:
		err = multierr.Append(err, fmt.Errorf("strategy.anchor 取值非法: %q", c.Strategy.Anchor))
	}
	switch c.Strategy.OrderKind {
	case OrderKindFRRDelta, OrderKindLimit:
	default:
		err = multierr.Append(err, fmt.Errorf("strategy.order_kind 取值非法: %q", c.Strategy.OrderKind))
	}
	if c.Strategy.MinOffer <= 0 {
		err = multierr.Append(err, errors.New("strategy.min_offer 必须大于0"))
	}
	if c.Strategy.ChunkSize < c.Strategy.MinOffer {
		err = multierr.Append(err, errors.New("strategy.chunk_size 不能小于 min_offer"))
	}
	if c.Strategy.DurationDays < 2 || c.Strategy.DurationDays > 120 {
		err = multierr.Append(err, errors.New("strategy.duration_days 必须位于[2,120]"))
	}
	if len(c.Strategy.Ladder) == 0 {
		err = multierr.Append(err, errors.New("strategy.ladder 至少包含一个偏移量"))
	}
	if c.Strategy.MinAPYGuard < 0 {
		err = multierr.Append(err, errors.New("strategy.min_apy_guard 不能为负"))
	}
	if c.Strategy.RateFloor <= 0 {
		err = multierr.Append(err, errors.New("strategy.rate_floor 必须大于0"))
	}
	if c.Strategy.FallbackRate <= 0 {
		err = multierr.Append(err, errors.New("strategy.fallback_rate 必须大于0"))
	}
	if c.Strategy.IdleWarnThreshold < 0 {
		err = multierr.Append(err, errors.New("strategy.idle_warn_threshold 不能为负"))
	}
	if c.Strategy.Maker.Enabled {
		if c.Strategy.Maker.MaxChunks <= 0 {
			err = multierr.Append(err, errors.New("strategy.maker.max_chunks 必须大于0"))
		}
		if c.Strategy.Maker.Epsilon <= 0 {
			err = multierr.Append(err, errors.New("strategy.maker.epsilon 必须大于0"))
		}
	}
	if c.Strategy.Anchor == AnchorBlend {
		sum := c.Strategy.Blend.MidWeight + c.Strategy.Blend.LastWeight
		if c.Strategy.Blend.MidWeight < 0 || c.Strategy.Blend.LastWeight < 0 || sum < 0.999 || sum > 1.001 {
			err = multierr.Append(err, errors.New("strategy.blend 权重必须非负且和为1"))
		}
	}

	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if c.Scheduler.Cron == "" {
		err = multierr.Append(err, errors.New("scheduler.cron 不能为空"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于(0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
