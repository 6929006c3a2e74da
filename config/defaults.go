// =============================================================================
// 📦 ResearchFlow 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Research:  DefaultResearchConfig(),
		LLM:       DefaultLLMConfig(),
		Search:    DefaultSearchConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultResearchConfig 返回默认研究管线参数
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		TopTotal:             5,
		TopEachQuery:         5,
		NumberOfQueries:      3,
		BatchSize:            10,
		WaveSize:             5,
		MaxSynthesisAttempts: 6,
		RetryDelay:           0,
		LLMTimeout:           45 * time.Second,
		SectionCount:         4,
		MaxMessageLength:     300,
		MaxPromptTokens:      0,
		CustomQueryTop:       10,
		IndexRoot:            "data/indexes",
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:             "https://api.openai.com",
		FastModel:           "gpt-4o-mini",
		SmartModel:          "gpt-4o",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		Timeout:             2 * time.Minute,
	}
}

// DefaultSearchConfig 返回默认检索后端配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TavilyBaseURL:         "https://api.tavily.com",
		TavilySearchDepth:     "advanced",
		ExaBaseURL:            "https://api.exa.ai",
		ExaNumSentences:       3,
		AzureSearchAPIVersion: "2024-05-01-preview",
		AzureSemanticConfig:   "my-semantic-config",
		Timeout:               30 * time.Second,
		RetryCount:            2,
		RateLimit:             10,
		Burst:                 10,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:              "postgres",
		Host:                "localhost",
		Port:                5432,
		User:                "researchflow",
		Name:                "researchflow",
		SSLMode:             "disable",
		MigrationsTable:     "schema_migrations",
		MaxOpenConns:        25,
		MaxIdleConns:        5,
		ConnMaxLifetime:     5 * time.Minute,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:        false,
		Addr:           "localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		KeyPrefix:      "researchflow:",
		SearchCacheTTL: 24 * time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "researchflow",
		SampleRate:   0.1,
	}
}
