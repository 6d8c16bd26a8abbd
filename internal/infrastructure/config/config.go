package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Embedding   EmbeddingConfig `mapstructure:"embedding"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Inventory   InventoryConfig `mapstructure:"inventory"`
	Proposal    ProposalConfig  `mapstructure:"proposal"`
	Session     SessionConfig   `mapstructure:"session"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LLMConfig 生成系提案來源（OpenRouter 互換 API）配置
type LLMConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig 檢索用向量化服務配置
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 資料庫配置（調理履歷・檢索索引）
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis 配置（在庫快取）
type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// InventoryConfig 在庫服務配置
type InventoryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProposalConfig 提案引擎配置
type ProposalConfig struct {
	DefaultCount     int           `mapstructure:"default_count"`
	MaxCount         int           `mapstructure:"max_count"`
	MainWindowDays   int           `mapstructure:"main_window_days"`
	SubWindowDays    int           `mapstructure:"sub_window_days"`
	SoupWindowDays   int           `mapstructure:"soup_window_days"`
	SourceTimeout    time.Duration `mapstructure:"source_timeout"`
	BackfillRounds   int           `mapstructure:"backfill_rounds"`
	TaskTTL          time.Duration `mapstructure:"task_ttl"`
	ConfirmAmbiguous bool          `mapstructure:"confirm_ambiguous"`
}

// SessionConfig 會話設定
type SessionConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("llm.api_key", "LLM_API_KEY")
	viper.BindEnv("llm.model", "LLM_MODEL")
	viper.BindEnv("llm.max_tokens", "LLM_MAX_TOKENS")
	viper.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	viper.BindEnv("database.dsn", "DATABASE_DSN")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("inventory.base_url", "INVENTORY_BASE_URL")
	viper.BindEnv("proposal.confirm_ambiguous", "PROPOSAL_CONFIRM_AMBIGUOUS")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration", "llm_api_key:", maskAPIKey(viper.GetString("llm.api_key")), "llm_model:", viper.GetString("llm.model"))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "kondate-assistant")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "150s")
	viper.SetDefault("server.idle_timeout", "120s")

	// LLM 設定
	viper.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.model", "qwen/qwen2.5-vl-72b-instruct:free")
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.timeout", "60s")

	// 向量化設定
	viper.SetDefault("embedding.base_url", "http://localhost:11434")
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.timeout", "10s")

	// 資料庫設定
	viper.SetDefault("database.dsn", "host=localhost user=kondate password=kondate dbname=kondate port=5432 sslmode=disable")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "30m")

	// Redis 設定
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.ttl", "60s")

	// 在庫服務設定
	viper.SetDefault("inventory.base_url", "http://localhost:8081")
	viper.SetDefault("inventory.timeout", "5s")

	// 提案引擎設定
	viper.SetDefault("proposal.default_count", 5)
	viper.SetDefault("proposal.max_count", 10)
	viper.SetDefault("proposal.main_window_days", 14)
	viper.SetDefault("proposal.sub_window_days", 7)
	viper.SetDefault("proposal.soup_window_days", 7)
	viper.SetDefault("proposal.source_timeout", "20s")
	viper.SetDefault("proposal.backfill_rounds", 2)
	viper.SetDefault("proposal.task_ttl", "30m")
	viper.SetDefault("proposal.confirm_ambiguous", true)

	// 會話設定
	viper.SetDefault("session.idle_ttl", "30m")
	viper.SetDefault("session.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// dedup window 預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證提案引擎設定
	if config.Proposal.DefaultCount <= 0 {
		return fmt.Errorf("invalid proposal default count")
	}
	if config.Proposal.MaxCount < config.Proposal.DefaultCount {
		return fmt.Errorf("proposal max count must be >= default count")
	}
	if config.Proposal.MainWindowDays <= 0 || config.Proposal.SubWindowDays <= 0 || config.Proposal.SoupWindowDays <= 0 {
		return fmt.Errorf("invalid proposal exclusion window")
	}
	if config.Proposal.SourceTimeout <= 0 {
		return fmt.Errorf("invalid proposal source timeout")
	}
	if config.Proposal.BackfillRounds < 0 {
		return fmt.Errorf("invalid proposal backfill rounds")
	}
	if config.Proposal.TaskTTL <= 0 {
		return fmt.Errorf("invalid proposal task ttl")
	}

	// 驗證會話設定
	if config.Session.IdleTTL <= 0 {
		return fmt.Errorf("invalid session idle ttl")
	}
	if config.Session.CleanupInterval <= 0 {
		return fmt.Errorf("invalid session cleanup interval")
	}

	return nil
}
