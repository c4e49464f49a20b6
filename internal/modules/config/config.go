package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const configFilePathENV = "CONFIG_FILE"

// Config — process-wide configuration, immutable after load.
type Config struct {
	Telegram struct {
		Token        string
		AdminChatIDs []string
	}

	DB string

	Service struct {
		HTTPAddr       string
		SubscribersKey string
	}

	// Reconciliation loop
	Interval     time.Duration // pause between cycles
	CycleTimeout time.Duration // hard deadline for one cycle
	PollTimeout  time.Duration // per external read (explorer poll, OHLC fetch)

	// Signal producer
	Signal struct {
		Pair        string // Kraken REST pair, e.g. XBTUSD
		StreamPair  string // Kraken ws pair, e.g. XBT/USD; empty disables the stream
		IntervalMin int
		RSIPeriod   int
		EMAPeriod   int
		MACDFast    int
		MACDSlow    int
		MACDSignal  int
	}

	// Plan prices in USDT and the matching tolerance (fraction, 0.01 == ±1%)
	PriceMonthly   decimal.Decimal
	PriceYearly    decimal.Decimal
	MatchTolerance decimal.Decimal

	Jaeger struct {
		Enabled bool
		Host    string
		Port    int
	}

	Chains []ChainConfig
}

// NewConfig loads the optional YAML config file and lets ENV override every
// knob. A missing file is not an error: defaults plus ENV must be enough to
// boot the worker.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("interval", "60s")
	v.SetDefault("cycle_timeout", "50s")
	v.SetDefault("poll_timeout", "15s")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("signal.pair", "XBTUSD")
	v.SetDefault("signal.stream_pair", "XBT/USD")
	v.SetDefault("signal.interval_min", 5)
	v.SetDefault("signal.rsi_period", 14)
	v.SetDefault("signal.ema_period", 50)
	v.SetDefault("signal.macd_fast", 12)
	v.SetDefault("signal.macd_slow", 26)
	v.SetDefault("signal.macd_signal", 9)
	v.SetDefault("price_monthly", "70")
	v.SetDefault("price_yearly", "500")
	v.SetDefault("match_tolerance", "0.01")
	v.SetDefault("jaeger.enabled", false)
	v.SetDefault("jaeger.host", "127.0.0.1")
	v.SetDefault("jaeger.port", 6831)
	v.SetDefault("chains_file", "configs/chains.yaml")

	// env names kept compatible with the original deployment
	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	_ = v.BindEnv("admin_chat_ids", "ADMIN_CHAT_IDS")
	_ = v.BindEnv("db_dsn", "DATABASE_URL")
	_ = v.BindEnv("subscribers_key", "SUBSCRIBERS_KEY")
	_ = v.BindEnv("interval", "FREQUENCY")
	_ = v.BindEnv("http_addr", "HTTP_ADDR")
	_ = v.BindEnv("jaeger.enabled", "JAEGER_ENABLED")
	_ = v.BindEnv("jaeger.host", "JAEGER_HOST")
	_ = v.BindEnv("jaeger.port", "JAEGER_PORT")
	_ = v.BindEnv("chains_file", "CHAINS_FILE")

	if file := os.Getenv(configFilePathENV); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("values_local")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	cfg := &Config{}
	cfg.Telegram.Token = v.GetString("telegram.token")
	cfg.Telegram.AdminChatIDs = splitList(v.GetString("admin_chat_ids"))
	cfg.DB = v.GetString("db_dsn")
	cfg.Service.HTTPAddr = v.GetString("http_addr")
	cfg.Service.SubscribersKey = v.GetString("subscribers_key")

	cfg.Interval = durationOr(v.GetString("interval"), 60*time.Second)
	cfg.CycleTimeout = durationOr(v.GetString("cycle_timeout"), 50*time.Second)
	cfg.PollTimeout = durationOr(v.GetString("poll_timeout"), 15*time.Second)

	cfg.Signal.Pair = v.GetString("signal.pair")
	cfg.Signal.StreamPair = v.GetString("signal.stream_pair")
	cfg.Signal.IntervalMin = v.GetInt("signal.interval_min")
	cfg.Signal.RSIPeriod = v.GetInt("signal.rsi_period")
	cfg.Signal.EMAPeriod = v.GetInt("signal.ema_period")
	cfg.Signal.MACDFast = v.GetInt("signal.macd_fast")
	cfg.Signal.MACDSlow = v.GetInt("signal.macd_slow")
	cfg.Signal.MACDSignal = v.GetInt("signal.macd_signal")

	var err error
	if cfg.PriceMonthly, err = decimal.NewFromString(v.GetString("price_monthly")); err != nil {
		return nil, errors.Wrap(err, "price_monthly")
	}
	if cfg.PriceYearly, err = decimal.NewFromString(v.GetString("price_yearly")); err != nil {
		return nil, errors.Wrap(err, "price_yearly")
	}
	if cfg.MatchTolerance, err = decimal.NewFromString(v.GetString("match_tolerance")); err != nil {
		return nil, errors.Wrap(err, "match_tolerance")
	}

	cfg.Jaeger.Enabled = v.GetBool("jaeger.enabled")
	cfg.Jaeger.Host = v.GetString("jaeger.host")
	cfg.Jaeger.Port = v.GetInt("jaeger.port")

	cfg.Chains, err = LoadChains(v.GetString("chains_file"))
	if err != nil {
		return nil, errors.Wrap(err, "load chains")
	}

	return cfg, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationOr(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// bare seconds, the way FREQUENCY was always set
	if d, err := time.ParseDuration(val + "s"); err == nil {
		return d
	}
	return def
}
