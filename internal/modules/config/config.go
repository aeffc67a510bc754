package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"multisignal_bot/internal/models"
	indicators "multisignal_bot/internal/modules/indicators/service"
	"multisignal_bot/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	binanceKeyENV     = "BINANCE_API_KEY"
	binanceSecretENV  = "BINANCE_SECRET_KEY"

	envPrefix = "BOT"
)

type ServiceConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

type ExchangeConfig struct {
	// Mode: paper | live
	Mode      string `mapstructure:"mode" yaml:"mode"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	// QuoteAsset: чем на бирже котируется BASE_CURRENCY (USD -> USDT).
	QuoteAsset   string  `mapstructure:"quote_asset" yaml:"quote_asset"`
	PaperBalance float64 `mapstructure:"paper_balance" yaml:"paper_balance"`
}

type TradingConfig struct {
	BaseCurrency  string        `mapstructure:"base_currency" yaml:"base_currency"`
	Pairs         []string      `mapstructure:"pairs" yaml:"pairs"`
	Interval      string        `mapstructure:"interval" yaml:"interval"`
	HistoryBars   int           `mapstructure:"history_bars" yaml:"history_bars"`
	CycleInterval time.Duration `mapstructure:"cycle_interval" yaml:"cycle_interval"`
	APICallDelay  time.Duration `mapstructure:"api_call_delay" yaml:"api_call_delay"`
}

type RiskConfig struct {
	RiskPerTrade           float64        `mapstructure:"risk_per_trade" yaml:"risk_per_trade"`
	StopLoss               float64        `mapstructure:"stop_loss" yaml:"stop_loss"`
	TakeProfit             float64        `mapstructure:"take_profit" yaml:"take_profit"`
	TrailingStop           float64        `mapstructure:"trailing_stop" yaml:"trailing_stop"`
	Reserve                float64        `mapstructure:"reserve" yaml:"reserve"`
	MaxExposure            float64        `mapstructure:"max_portfolio_exposure" yaml:"max_portfolio_exposure"`
	MaxDailyDrawdown       float64        `mapstructure:"max_daily_drawdown" yaml:"max_daily_drawdown"`
	MaxConcurrentPositions int            `mapstructure:"max_concurrent_positions" yaml:"max_concurrent_positions"`
	Leverage               map[string]int `mapstructure:"leverage" yaml:"leverage"`
	// ProtectiveStop: после входа ставить на бирже stop-loss ордер, при выходе снимать его.
	ProtectiveStop bool `mapstructure:"protective_stop" yaml:"protective_stop"`
}

type ExecutionConfig struct {
	OrderType     string        `mapstructure:"order_type" yaml:"order_type"`
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	VolumeStep    float64       `mapstructure:"volume_step" yaml:"volume_step"`
	// LimitOffset: limit-вход ставим по last * (1 + offset), чтобы ордер был исполнимым.
	LimitOffset float64 `mapstructure:"limit_offset" yaml:"limit_offset"`
	// FillTimeout: сколько ждать исполнения limit-входа, потом ордер снимается.
	FillTimeout time.Duration `mapstructure:"fill_timeout" yaml:"fill_timeout"`
	FillPoll    time.Duration `mapstructure:"fill_poll" yaml:"fill_poll"`
}

type StrategyConfig struct {
	// Mode: binary | vote
	Mode             string  `mapstructure:"mode" yaml:"mode"`
	PrimaryIndicator string  `mapstructure:"primary_indicator" yaml:"primary_indicator"`
	TechnicalWeight  float64 `mapstructure:"technical_weight" yaml:"technical_weight"`
	SentimentWeight  float64 `mapstructure:"sentiment_weight" yaml:"sentiment_weight"`
	BuyThreshold     float64 `mapstructure:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold    float64 `mapstructure:"sell_threshold" yaml:"sell_threshold"`
	BaseTradeSize    float64 `mapstructure:"base_trade_size" yaml:"base_trade_size"`
	// VoteSentimentWeight > 0 добавляет сентимент как ещё один голос.
	VoteSentimentWeight float64 `mapstructure:"vote_sentiment_weight" yaml:"vote_sentiment_weight"`
	VoteBuyThreshold    float64 `mapstructure:"vote_buy_threshold" yaml:"vote_buy_threshold"`
	VoteSellThreshold   float64 `mapstructure:"vote_sell_threshold" yaml:"vote_sell_threshold"`
}

type SourceConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url" yaml:"url"`
	Kind string `mapstructure:"kind" yaml:"kind"`
}

type SentimentConfig struct {
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources"`
	Timeout time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	// ScorerURL: внешний NLP-сервис для документов без оценки. Пусто: такие документы отбрасываются.
	ScorerURL   string             `mapstructure:"scorer_url" yaml:"scorer_url"`
	KindWeights map[string]float64 `mapstructure:"kind_weights" yaml:"kind_weights"`
}

// Config собирается один раз на старте и дальше передаётся по значению.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service" yaml:"service"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	DB        string          `mapstructure:"db_dsn" yaml:"db_dsn"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
	Exchange  ExchangeConfig  `mapstructure:"exchange" yaml:"exchange"`
	Trading   TradingConfig   `mapstructure:"trading" yaml:"trading"`
	Risk      RiskConfig      `mapstructure:"risk" yaml:"risk"`
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	Strategy  StrategyConfig  `mapstructure:"strategy" yaml:"strategy"`
	Sentiment SentimentConfig `mapstructure:"sentiment" yaml:"sentiment"`
}

func NewConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("[CONFIG] .env: %v", err)
	}

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	return Load("configs/" + configFileName)
}

// Load читает yaml-файл поверх дефолтов, затем применяет переменные окружения.
// Отсутствующий файл не ошибка: остаются дефолты и env.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrapf(err, "read config %s", path)
			}
		}
		logger.Warn("[CONFIG] %s not found, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	applySecrets(&cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "multisignal_bot")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.http_addr", ":8080")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("db_dsn", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("exchange.mode", "paper")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.secret_key", "")
	v.SetDefault("exchange.quote_asset", "USDT")
	v.SetDefault("exchange.paper_balance", 10000.0)

	v.SetDefault("trading.base_currency", "USD")
	v.SetDefault("trading.pairs", []string{"ADA/USD", "LTC/USD", "DOT/USD"})
	v.SetDefault("trading.interval", "1h")
	v.SetDefault("trading.history_bars", 200)
	v.SetDefault("trading.cycle_interval", "10s")
	v.SetDefault("trading.api_call_delay", "1s")

	v.SetDefault("risk.risk_per_trade", 0.02)
	v.SetDefault("risk.stop_loss", 0.05)
	v.SetDefault("risk.take_profit", 0.10)
	v.SetDefault("risk.trailing_stop", 0.0)
	v.SetDefault("risk.reserve", 0.10)
	v.SetDefault("risk.max_portfolio_exposure", 0.30)
	v.SetDefault("risk.max_daily_drawdown", 0.05)
	v.SetDefault("risk.max_concurrent_positions", 5)
	v.SetDefault("risk.leverage", map[string]int{"ADA": 4, "LTC": 3})
	v.SetDefault("risk.protective_stop", false)

	v.SetDefault("execution.order_type", string(models.OrderMarket))
	v.SetDefault("execution.retry_attempts", 3)
	v.SetDefault("execution.retry_delay", "1s")
	v.SetDefault("execution.volume_step", 0.0)
	v.SetDefault("execution.limit_offset", 0.001)
	v.SetDefault("execution.fill_timeout", "30s")
	v.SetDefault("execution.fill_poll", "1s")

	v.SetDefault("strategy.mode", string(models.StrategyVote))
	v.SetDefault("strategy.primary_indicator", "rsi")
	v.SetDefault("strategy.technical_weight", 0.6)
	v.SetDefault("strategy.sentiment_weight", 0.4)
	v.SetDefault("strategy.buy_threshold", 0.7)
	v.SetDefault("strategy.sell_threshold", -0.7)
	v.SetDefault("strategy.base_trade_size", 0.2)
	v.SetDefault("strategy.vote_sentiment_weight", 0.0)
	v.SetDefault("strategy.vote_buy_threshold", 1.0)
	v.SetDefault("strategy.vote_sell_threshold", -1.0)

	v.SetDefault("sentiment.sources", []map[string]string{})
	v.SetDefault("sentiment.timeout", "10s")
	v.SetDefault("sentiment.scorer_url", "")
	v.SetDefault("sentiment.kind_weights", map[string]float64{
		"news": 0.3, "social": 0.25, "expert": 0.45, "unknown": 0.1,
	})
}

func applySecrets(cfg *Config) {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	cfg.Telegram.ChatID = int64FromEnv(chatTelegramENV, cfg.Telegram.ChatID)
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB = dsn
	}
	cfg.Exchange.APIKey = getenvDefault(binanceKeyENV, cfg.Exchange.APIKey)
	cfg.Exchange.SecretKey = getenvDefault(binanceSecretENV, cfg.Exchange.SecretKey)
}

// viper приводит ключи map к нижнему регистру, активы храним в верхнем.
func (c *Config) normalize() {
	lev := make(map[string]int, len(c.Risk.Leverage))
	for k, v := range c.Risk.Leverage {
		lev[strings.ToUpper(k)] = v
	}
	c.Risk.Leverage = lev

	kw := make(map[string]float64, len(c.Sentiment.KindWeights))
	for k, v := range c.Sentiment.KindWeights {
		kw[strings.ToLower(k)] = v
	}
	c.Sentiment.KindWeights = kw

	for i, p := range c.Trading.Pairs {
		c.Trading.Pairs[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	c.Trading.BaseCurrency = strings.ToUpper(c.Trading.BaseCurrency)
	c.Exchange.Mode = strings.ToLower(c.Exchange.Mode)
	c.Strategy.Mode = strings.ToLower(c.Strategy.Mode)
	c.Strategy.PrimaryIndicator = strings.ToLower(strings.TrimSpace(c.Strategy.PrimaryIndicator))
}

func (c Config) Validate() error {
	const op = "config.Validate"

	fractions := map[string]float64{
		"risk.risk_per_trade":         c.Risk.RiskPerTrade,
		"risk.stop_loss":              c.Risk.StopLoss,
		"risk.take_profit":            c.Risk.TakeProfit,
		"risk.reserve":                c.Risk.Reserve,
		"risk.max_portfolio_exposure": c.Risk.MaxExposure,
		"risk.max_daily_drawdown":     c.Risk.MaxDailyDrawdown,
		"strategy.base_trade_size":    c.Strategy.BaseTradeSize,
	}
	for name, v := range fractions {
		if v <= 0 || v > 1 {
			return models.Errorf(models.KindValidation, op, "%s must be in (0,1], got %v", name, v)
		}
	}
	if c.Risk.TrailingStop < 0 || c.Risk.TrailingStop >= 1 {
		return models.Errorf(models.KindValidation, op, "risk.trailing_stop must be in [0,1), got %v", c.Risk.TrailingStop)
	}
	if c.Strategy.VoteSentimentWeight < 0 || c.Strategy.VoteSentimentWeight >= 1 {
		return models.Errorf(models.KindValidation, op, "strategy.vote_sentiment_weight must be in [0,1)")
	}
	if w := c.Strategy.TechnicalWeight + c.Strategy.SentimentWeight; w < 0.999 || w > 1.001 {
		return models.Errorf(models.KindValidation, op, "strategy weights must sum to 1, got %v", w)
	}
	if c.Execution.RetryAttempts < 1 {
		return models.Errorf(models.KindValidation, op, "execution.retry_attempts must be >= 1")
	}
	switch models.OrderType(c.Execution.OrderType) {
	case models.OrderMarket, models.OrderLimit:
	default:
		return models.Errorf(models.KindValidation, op, "execution.order_type %q is not supported for entries", c.Execution.OrderType)
	}
	switch models.StrategyMode(c.Strategy.Mode) {
	case models.StrategyBinary, models.StrategyVote:
	default:
		return models.Errorf(models.KindValidation, op, "strategy.mode %q is unknown", c.Strategy.Mode)
	}
	if !knownIndicator(c.Strategy.PrimaryIndicator) {
		return models.Errorf(models.KindValidation, op, "strategy.primary_indicator %q is not in the catalog", c.Strategy.PrimaryIndicator)
	}
	switch c.Exchange.Mode {
	case "paper", "live":
	default:
		return models.Errorf(models.KindValidation, op, "exchange.mode %q is unknown", c.Exchange.Mode)
	}
	if len(c.Trading.Pairs) == 0 {
		return models.Errorf(models.KindValidation, op, "trading.pairs is empty")
	}
	if c.Risk.MaxConcurrentPositions < 1 {
		return models.Errorf(models.KindValidation, op, "risk.max_concurrent_positions must be >= 1")
	}
	return nil
}

func knownIndicator(name string) bool {
	for _, e := range indicators.Catalog() {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Dump: yaml эффективного конфига для стартового лога, секреты замаскированы.
func (c Config) Dump() string {
	masked := c
	masked.Telegram.Token = mask(c.Telegram.Token)
	masked.Exchange.APIKey = mask(c.Exchange.APIKey)
	masked.Exchange.SecretKey = mask(c.Exchange.SecretKey)
	masked.DB = mask(c.DB)

	out, err := yaml.Marshal(masked)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(out)
}

func (c Config) Paper() bool { return c.Exchange.Mode == "paper" }

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
