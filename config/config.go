package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del copy trader.
type Config struct {
	Copier     CopierConfig        `yaml:"copier"`
	Risk       RiskConfig          `yaml:"risk"`
	Resolver   ResolverConfig      `yaml:"resolver"`
	API        APIConfig           `yaml:"api"`
	Storage    StorageConfig       `yaml:"storage"`
	Log        LogConfig           `yaml:"log"`
	Targets    []TargetConfig      `yaml:"targets"`
	Categories map[string][]string `yaml:"categories"` // categoría → patrones regex
}

// CopierConfig controla el loop de copia.
type CopierConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	TradeSizeUSD    float64 `yaml:"trade_size_usd"` // stake fijo por réplica
	FeedLimit       int     `yaml:"feed_limit"`
	PaperMode       *bool   `yaml:"paper_mode"`       // default true: dinero real solo opt-in
	PaperBalanceUSD float64 `yaml:"paper_balance_usd"`
}

// RiskConfig son los límites del risk gate, en USD.
type RiskConfig struct {
	MinWhaleSizeUSD      float64 `yaml:"min_whale_size_usd"`
	MaxPositionPerMarket float64 `yaml:"max_position_per_market"`
	MinBalanceToTrade    float64 `yaml:"min_balance_to_trade"`
	DailyLossLimit       float64 `yaml:"daily_loss_limit"`
}

// ResolverConfig controla el loop de resolución.
type ResolverConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	BatchSize       int `yaml:"batch_size"`
}

// TargetConfig es un whale a seguir.
type TargetConfig struct {
	Address    string   `yaml:"address"`
	Label      string   `yaml:"label"`
	Categories []string `yaml:"categories"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Credentials son las credenciales L2 del CLOB. Solo se leen del entorno
// (o del .env), nunca del YAML — no queremos secretos en el repo.
type Credentials struct {
	Address    string
	APIKey     string
	Secret     string
	Passphrase string
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// LoadCredentials lee las credenciales del CLOB desde el entorno.
func LoadCredentials() Credentials {
	return Credentials{
		Address:    os.Getenv("POLY_ADDRESS"),
		APIKey:     os.Getenv("POLY_API_KEY"),
		Secret:     os.Getenv("POLY_API_SECRET"),
		Passphrase: os.Getenv("POLY_PASSPHRASE"),
	}
}

// CopyInterval devuelve el intervalo del copier como time.Duration.
func (c *Config) CopyInterval() time.Duration {
	return time.Duration(c.Copier.IntervalSeconds) * time.Second
}

// ResolveInterval devuelve el intervalo del resolver como time.Duration.
func (c *Config) ResolveInterval() time.Duration {
	return time.Duration(c.Resolver.IntervalSeconds) * time.Second
}

// PaperMode devuelve true salvo que el YAML lo desactive explícitamente.
func (c *Config) PaperMode() bool {
	return c.Copier.PaperMode == nil || *c.Copier.PaperMode
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("COPYTRADER_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Copier.IntervalSeconds <= 0 {
		cfg.Copier.IntervalSeconds = 10
	}
	if cfg.Copier.TradeSizeUSD <= 0 {
		cfg.Copier.TradeSizeUSD = 1.50
	}
	if cfg.Copier.FeedLimit <= 0 {
		cfg.Copier.FeedLimit = 200
	}
	if cfg.Copier.PaperBalanceUSD <= 0 {
		cfg.Copier.PaperBalanceUSD = 100
	}
	if cfg.Risk.MinWhaleSizeUSD <= 0 {
		cfg.Risk.MinWhaleSizeUSD = 10
	}
	if cfg.Risk.MaxPositionPerMarket <= 0 {
		cfg.Risk.MaxPositionPerMarket = 5
	}
	if cfg.Risk.MinBalanceToTrade <= 0 {
		cfg.Risk.MinBalanceToTrade = 10
	}
	if cfg.Risk.DailyLossLimit <= 0 {
		cfg.Risk.DailyLossLimit = 15
	}
	if cfg.Resolver.IntervalSeconds <= 0 {
		cfg.Resolver.IntervalSeconds = 60
	}
	if cfg.Resolver.BatchSize <= 0 {
		cfg.Resolver.BatchSize = 50
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "copytrader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
