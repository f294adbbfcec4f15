// Package config loads the agent configuration from defaults, an optional
// file, SHOPAGENT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/petasbytes/shop-agent/internal/provider"
)

const EnvPrefix = "SHOPAGENT"

// DefaultSystemPrompt is the 小美 persona.
var DefaultSystemPrompt = heredoc.Doc(`
	你是小美，一個先進的早餐店 AI 客服機器人。
	* 你的任務是協助客人搜尋商品，然後加入購物車，最後完成結帳
	* 若客人要求查詢購物車內有什麼商品，請用表格條列商品、金額和總金額
	* 請總是用台灣繁體中文回答用戶，說話親切但是精準(Be Concise)
	* 有時候工具會回報錯誤，請根據錯誤訊息處理，可向使用者詢問更多資訊，或是跟客戶道歉
	* 不要跟用戶閒聊與點餐無關的事情
	* 若問題不在上述內容中，請回答不知道，請客人聯繫客服
`)

type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ProviderConfig struct {
	Name        string        `mapstructure:"name"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	APIVersion  string        `mapstructure:"api_version"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	SystemPrompt  string `mapstructure:"system_prompt"`
	MaxIterations int    `mapstructure:"max_iterations"`
	// HistoryBudget bounds retained history in heuristic tokens; 0 keeps all.
	HistoryBudget int    `mapstructure:"history_budget"`
	Apology       string `mapstructure:"apology"`
}

type StoreConfig struct {
	Driver       string `mapstructure:"driver"` // memory or sqlite
	CatalogCSV   string `mapstructure:"catalog_csv"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	OrdersPath   string `mapstructure:"orders_path"`
	WatchCatalog bool   `mapstructure:"watch_catalog"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	AuthToken string `mapstructure:"auth_token"`
	Pprof     bool   `mapstructure:"pprof"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", provider.NameOpenAI)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_version", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.temperature", 0.0)
	v.SetDefault("provider.max_tokens", provider.DefaultMaxTokens)
	v.SetDefault("provider.max_retries", 0)
	v.SetDefault("provider.timeout", 60*time.Second)

	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.history_budget", 0)
	v.SetDefault("agent.apology", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.catalog_csv", "data/catalog.csv")
	v.SetDefault("store.sqlite_path", "shop.db")
	v.SetDefault("store.orders_path", "orders.db")
	v.SetDefault("store.watch_catalog", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.pprof", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", ".agent")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers the flags that override configuration keys. Flag names
// are the keys themselves.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML, JSON or TOML config file.")
	fs.String("provider.name", provider.NameOpenAI, "Completion backend: openai, azure, anthropic or gemini.")
	fs.String("provider.model", "", "Model name, or deployment name for azure.")
	fs.String("provider.base_url", "", "Backend endpoint override.")
	fs.Int("agent.max_iterations", 10, "Maximum completion requests per interaction.")
	fs.String("store.driver", "memory", "Shop store: memory or sqlite.")
	fs.String("store.catalog_csv", "data/catalog.csv", "Catalog CSV with product_id,title,qty,price.")
	fs.String("server.addr", ":8080", "HTTP listen address.")
	fs.String("log.level", "info", "Log level: debug, info, warn or error.")
	fs.String("log.format", "text", "Log format: text or json.")
	fs.Bool("telemetry.enabled", false, "Append JSONL events under telemetry.dir.")
}

// Load resolves the configuration. fs may be nil; only flags the user set
// take precedence over file and environment values.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	file := v.GetString("config")
	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				if f.Changed {
					file = f.Value.String()
				}
				return
			}
			if f.Changed {
				_ = v.BindPFlag(f.Name, f)
			}
		})
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider.Name {
	case provider.NameOpenAI, provider.NameAnthropic, provider.NameGemini:
	case provider.NameAzure:
		if c.Provider.BaseURL == "" || c.Provider.APIVersion == "" || c.Provider.Model == "" {
			errs = append(errs, errors.New("provider azure requires base_url, api_version and model (deployment)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if c.Provider.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("provider.max_tokens must be positive, got %d", c.Provider.MaxTokens))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature must be within [0, 2], got %g", c.Provider.Temperature))
	}
	if c.Provider.MaxRetries < 0 {
		errs = append(errs, errors.New("provider.max_retries must not be negative"))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.HistoryBudget < 0 {
		errs = append(errs, errors.New("agent.history_budget must not be negative"))
	}
	switch c.Store.Driver {
	case "memory":
		if c.Store.CatalogCSV == "" {
			errs = append(errs, errors.New("store.catalog_csv is required for the memory store"))
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.OrdersPath == "" {
		errs = append(errs, errors.New("store.orders_path is required"))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ProviderConfig maps the provider section onto provider.Config.
func (c *Config) ProviderConfig() provider.Config {
	p := c.Provider
	return provider.Config{
		Name:        p.Name,
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		APIVersion:  p.APIVersion,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		MaxRetries:  p.MaxRetries,
		Timeout:     p.Timeout,
	}
}
