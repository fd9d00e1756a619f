package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "lendbot"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("funding.base_url", "https://api.bitfinex.com")
	v.SetDefault("funding.public_symbol", "fUSDT")
	v.SetDefault("funding.symbol_preferred", "fUSDT")
	v.SetDefault("funding.symbol_fallback", "fUST")
	v.SetDefault("funding.asset_aliases", []string{"USDT", "UST"})
	v.SetDefault("funding.book_length", 25)
	v.SetDefault("funding.timeout", "30s")

	v.SetDefault("strategy.anchor", AnchorFRR)
	v.SetDefault("strategy.order_kind", OrderKindFRRDelta)
	v.SetDefault("strategy.min_offer", 150.0)
	v.SetDefault("strategy.chunk_size", 500.0)
	v.SetDefault("strategy.duration_days", 2)
	v.SetDefault("strategy.auto_renew", true)
	v.SetDefault("strategy.ladder", []float64{0.0, 0.0002, 0.0005, 0.0008, 0.0012})
	v.SetDefault("strategy.min_apy_guard", 0.0)
	v.SetDefault("strategy.rate_floor", 0.000001)
	v.SetDefault("strategy.fallback_rate", 0.0002)
	v.SetDefault("strategy.idle_warn_threshold", 200.0)
	v.SetDefault("strategy.maker.enabled", true)
	v.SetDefault("strategy.maker.max_chunks", 6)
	v.SetDefault("strategy.maker.epsilon", 0.00001)
	v.SetDefault("strategy.blend.mid_weight", 0.7)
	v.SetDefault("strategy.blend.last_weight", 0.3)

	v.SetDefault("database.path", "data/lendbot.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("scheduler.cron", "0 */15 * * * *")
	v.SetDefault("scheduler.run_on_start", true)

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 8787)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
