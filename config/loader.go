// =============================================================================
// 📦 ResearchFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("researchflow.yaml").
//	    WithValidator((*config.Config).Validate).
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（RESEARCHFLOW_ 前缀）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 环境变量前缀，例如 RESEARCHFLOW_LLM_API_KEY
const DefaultEnvPrefix = "RESEARCHFLOW"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ResearchFlow 的完整配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Research  ResearchConfig  `yaml:"research" env:"RESEARCH"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Search    SearchConfig    `yaml:"search" env:"SEARCH"`
	Database  DatabaseConfig  `yaml:"database" env:"DATABASE"`
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Tenants 启动时写入数据库的租户，仅支持 YAML
	Tenants []TenantConfig `yaml:"tenants" env:"-"`
}

// ServerConfig serve 子命令的 HTTP 配置（健康检查与 /metrics）
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// ResearchConfig 研究管线参数
type ResearchConfig struct {
	// 每个后端重排序后保留的片段数
	TopTotal int `yaml:"top_total" env:"TOP_TOTAL"`
	// 每个查询请求的命中数
	TopEachQuery int `yaml:"top_each_query" env:"TOP_EACH_QUERY"`
	// 每个查询族生成的查询数
	NumberOfQueries int `yaml:"number_of_queries" env:"NUMBER_OF_QUERIES"`
	// 每次重排序调用的片段数
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// 并发的重排序调用数
	WaveSize int `yaml:"wave_size" env:"WAVE_SIZE"`
	// 合成的总尝试次数
	MaxSynthesisAttempts int `yaml:"max_synthesis_attempts" env:"MAX_SYNTHESIS_ATTEMPTS"`
	// 合成重试间隔，0 表示立即重试
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// 单次 LLM 调用超时
	LLMTimeout time.Duration `yaml:"llm_timeout" env:"LLM_TIMEOUT"`
	// 生成大纲时的章节数
	SectionCount int `yaml:"section_count" env:"SECTION_COUNT"`
	// 聊天消息最大字符数
	MaxMessageLength int `yaml:"max_message_length" env:"MAX_MESSAGE_LENGTH"`
	// 合成提示词的 token 预算，0 关闭
	MaxPromptTokens int `yaml:"max_prompt_tokens" env:"MAX_PROMPT_TOKENS"`
	// 自定义查询默认保留数
	CustomQueryTop int `yaml:"custom_query_top" env:"CUSTOM_QUERY_TOP"`
	// 本地文件索引根目录
	IndexRoot string `yaml:"index_root" env:"INDEX_ROOT"`
}

// LLMConfig OpenAI / Azure OpenAI 配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	// 非空时使用 Azure OpenAI 路由
	AzureAPIVersion string `yaml:"azure_api_version" env:"AZURE_API_VERSION"`
	// 查询生成、重排序、大纲与章节使用的模型
	FastModel string `yaml:"fast_model" env:"FAST_MODEL"`
	// 报告合成与聊天使用的模型
	SmartModel          string        `yaml:"smart_model" env:"SMART_MODEL"`
	EmbeddingModel      string        `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions" env:"EMBEDDING_DIMENSIONS"`
	Timeout             time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SearchConfig 检索后端配置
type SearchConfig struct {
	TavilyBaseURL string `yaml:"tavily_base_url" env:"TAVILY_BASE_URL"`
	TavilyAPIKey  string `yaml:"tavily_api_key" env:"TAVILY_API_KEY"`
	// basic 或 advanced
	TavilySearchDepth string `yaml:"tavily_search_depth" env:"TAVILY_SEARCH_DEPTH"`

	ExaBaseURL      string `yaml:"exa_base_url" env:"EXA_BASE_URL"`
	ExaAPIKey       string `yaml:"exa_api_key" env:"EXA_API_KEY"`
	ExaNumSentences int    `yaml:"exa_num_sentences" env:"EXA_NUM_SENTENCES"`

	AzureSearchAPIKey     string `yaml:"azure_search_api_key" env:"AZURE_SEARCH_API_KEY"`
	AzureSearchAPIVersion string `yaml:"azure_search_api_version" env:"AZURE_SEARCH_API_VERSION"`
	AzureSemanticConfig   string `yaml:"azure_semantic_config" env:"AZURE_SEMANTIC_CONFIG"`

	// 所有后端共享的传输参数
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RetryCount int           `yaml:"retry_count" env:"RETRY_COUNT"`
	RateLimit  float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst      int           `yaml:"burst" env:"BURST"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 时为文件路径
	Name            string `yaml:"name" env:"NAME"`
	SSLMode         string `yaml:"ssl_mode" env:"SSL_MODE"`
	MigrationsTable string `yaml:"migrations_table" env:"MIGRATIONS_TABLE"`
	// 连接池
	MaxOpenConns        int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns        int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// RedisConfig 检索结果缓存配置
type RedisConfig struct {
	// 关闭时不缓存检索结果
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	KeyPrefix    string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 检索结果缓存时长
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl" env:"SEARCH_CACHE_TTL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// TenantConfig 租户种子数据
type TenantConfig struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	OrgInfo       string `yaml:"org_info"`
	SearchService string `yaml:"search_service"`
	SearchIndex   string `yaml:"search_index"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithEnvLookup 替换环境变量来源，便于测试
func (l *Loader) WithEnvLookup(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置；文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验与辅助函数
// =============================================================================

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid server.http_port")
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "pg", "mysql", "mariadb", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns && c.Database.MaxOpenConns > 0 {
		errs = append(errs, "database.max_idle_conns exceeds max_open_conns")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}

	if c.LLM.FastModel == "" || c.LLM.SmartModel == "" {
		errs = append(errs, "llm.fast_model and llm.smart_model are required")
	}
	if c.Research.LLMTimeout <= 0 {
		errs = append(errs, "research.llm_timeout must be positive")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	seen := make(map[string]bool, len(c.Tenants))
	for _, t := range c.Tenants {
		if t.ID == "" {
			errs = append(errs, "tenant without id")
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate tenant %q", t.ID))
		}
		seen[t.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN 返回 gorm 使用的数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql", "pg":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql", "mariadb":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite", "sqlite3":
		return d.Name
	default:
		return ""
	}
}
