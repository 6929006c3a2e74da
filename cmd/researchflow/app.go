package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/internal/cache"
	"github.com/BaSui01/researchflow/internal/database"
	"github.com/BaSui01/researchflow/internal/metrics"
	"github.com/BaSui01/researchflow/internal/telemetry"
	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/embedding"
	"github.com/BaSui01/researchflow/llm/observability"
	"github.com/BaSui01/researchflow/llm/providers/openaicompat"
	"github.com/BaSui01/researchflow/rag/sources"
	"github.com/BaSui01/researchflow/research"
	"github.com/BaSui01/researchflow/store"
	"github.com/BaSui01/researchflow/types"
)

// =============================================================================
// 🧩 应用装配
// =============================================================================

// app 持有一次命令运行所需的全部依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers
	pool      *database.PoolManager
	cache     *cache.Manager
	store     *store.Store
	provider  *observability.InstrumentedProvider
	service   *research.Service
}

// loadConfig 按 --config 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp 依次初始化遥测、指标、数据库、缓存与研究服务
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.telemetry, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		a.telemetry, err = nil, nil
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collector = metrics.NewCollector("researchflow", a.registry, logger)

	if err = a.openStore(ctx); err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		a.cache, err = cache.NewManager(cacheConfig(cfg.Redis), logger)
		if err != nil {
			return nil, err
		}
	}

	a.provider, err = instrumentedProvider(cfg.LLM, a.collector, logger)
	if err != nil {
		return nil, err
	}

	deps := research.Dependencies{
		Provider:  a.provider,
		Embedder:  embedding.NewOpenAIProvider(embeddingConfig(cfg.LLM)),
		Fragments: a.store.Fragments,
		Reports:   a.store.Reports,
		Messages:  a.store.Messages,
		Tenants:   a.store.Tenants,
		Observer:  a.collector,
	}
	client := clientConfig(cfg.Search)
	if cfg.Search.TavilyAPIKey != "" {
		deps.Web = sources.NewTavilySource(sources.TavilyConfig{
			BaseURL:     cfg.Search.TavilyBaseURL,
			APIKey:      cfg.Search.TavilyAPIKey,
			SearchDepth: cfg.Search.TavilySearchDepth,
			Client:      client,
		}, logger)
	}
	if cfg.Search.ExaAPIKey != "" {
		deps.Contents = sources.NewExaSource(sources.ExaConfig{
			BaseURL:      cfg.Search.ExaBaseURL,
			APIKey:       cfg.Search.ExaAPIKey,
			NumSentences: cfg.Search.ExaNumSentences,
			Client:       client,
		}, logger)
	}
	if cfg.Search.AzureSearchAPIKey != "" {
		deps.Index = sources.NewAzureSearchSource(sources.AzureSearchConfig{
			APIKey:         cfg.Search.AzureSearchAPIKey,
			APIVersion:     cfg.Search.AzureSearchAPIVersion,
			SemanticConfig: cfg.Search.AzureSemanticConfig,
			Client:         client,
		}, logger)
	}
	if a.cache != nil {
		deps.Cache = cache.NewSearchCache(a.cache, cfg.Redis.SearchCacheTTL)
	}

	a.service, err = research.NewService(researchConfig(cfg), deps, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore 打开数据库、应用连接池配置并写入配置中的租户
func (a *app) openStore(ctx context.Context) error {
	db, err := database.Open(a.cfg.Database, a.logger)
	if err != nil {
		return err
	}
	a.pool, err = database.NewPoolManager(db, a.cfg.Database.Name, database.PoolConfigFrom(a.cfg.Database), a.collector, a.logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return err
	}
	if err := database.Instrument(db, a.cfg.Database.Name, a.collector); err != nil {
		return err
	}

	a.store = store.New(db, a.logger)
	for _, t := range a.cfg.Tenants {
		tenant := types.Tenant{
			ID:            t.ID,
			Name:          t.Name,
			OrgInfo:       t.OrgInfo,
			SearchService: t.SearchService,
			SearchIndex:   t.SearchIndex,
		}
		if err := a.store.Tenants.Upsert(ctx, tenant); err != nil {
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
	}
	return nil
}

// close 按初始化的逆序释放资源
func (a *app) close(ctx context.Context) {
	if a.provider != nil {
		costs := a.provider.Costs()
		a.logger.Info("llm usage",
			zap.Int("requests", costs.RequestCount),
			zap.Int("tokens", costs.TotalTokens()),
			zap.Float64("cost_usd", costs.TotalCost))
	}
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown finished with errors", zap.Error(err))
	}
}

// =============================================================================
// 🔧 配置映射
// =============================================================================

func researchConfig(cfg *config.Config) research.Config {
	r := cfg.Research
	return research.Config{
		TopTotal:             r.TopTotal,
		TopEachQuery:         r.TopEachQuery,
		NumberOfQueries:      r.NumberOfQueries,
		BatchSize:            r.BatchSize,
		WaveSize:             r.WaveSize,
		MaxSynthesisAttempts: r.MaxSynthesisAttempts,
		RetryDelay:           r.RetryDelay,
		LLMTimeout:           r.LLMTimeout,
		SectionCount:         r.SectionCount,
		MaxMessageLength:     r.MaxMessageLength,
		MaxPromptTokens:      r.MaxPromptTokens,
		CustomQueryTop:       r.CustomQueryTop,
		IndexRoot:            r.IndexRoot,
		FastModel:            cfg.LLM.FastModel,
		SmartModel:           cfg.LLM.SmartModel,
	}
}

func clientConfig(s config.SearchConfig) sources.ClientConfig {
	c := sources.DefaultClientConfig()
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if s.RetryCount >= 0 {
		c.RetryCount = s.RetryCount
	}
	if s.RateLimit > 0 {
		c.RateLimit = s.RateLimit
	}
	if s.Burst > 0 {
		c.Burst = s.Burst
	}
	return c
}

func cacheConfig(r config.RedisConfig) cache.Config {
	c := cache.DefaultConfig()
	c.Addr = r.Addr
	c.Password = r.Password
	c.DB = r.DB
	if r.PoolSize > 0 {
		c.PoolSize = r.PoolSize
	}
	if r.MinIdleConns > 0 {
		c.MinIdleConns = r.MinIdleConns
	}
	if r.KeyPrefix != "" {
		c.KeyPrefix = r.KeyPrefix
	}
	if r.SearchCacheTTL > 0 {
		c.DefaultTTL = r.SearchCacheTTL
	}
	return c
}

func embeddingConfig(l config.LLMConfig) embedding.OpenAIConfig {
	c := embedding.DefaultOpenAIConfig()
	c.APIKey = l.APIKey
	c.AzureAPIVersion = l.AzureAPIVersion
	if l.BaseURL != "" {
		c.BaseURL = l.BaseURL
	}
	if l.EmbeddingModel != "" {
		c.Model = l.EmbeddingModel
	}
	if l.EmbeddingDimensions > 0 {
		c.Dimensions = l.EmbeddingDimensions
	}
	if l.Timeout > 0 {
		c.Timeout = l.Timeout
	}
	return c
}

// instrumentedProvider 创建 OpenAI 兼容 provider 并包上 span、指标与成本统计
func instrumentedProvider(l config.LLMConfig, rec observability.Recorder, logger *zap.Logger) (*observability.InstrumentedProvider, error) {
	name := "openai"
	if l.AzureAPIVersion != "" {
		name = "azure-openai"
	}
	var p llm.Provider = openaicompat.New(openaicompat.Config{
		ProviderName:    name,
		APIKey:          l.APIKey,
		BaseURL:         l.BaseURL,
		DefaultModel:    l.SmartModel,
		FallbackModel:   l.FastModel,
		Timeout:         l.Timeout,
		AzureAPIVersion: l.AzureAPIVersion,
	}, logger)

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("create llm metrics: %w", err)
	}
	return observability.Instrument(p, m, logger, observability.WithRecorder(rec)), nil
}
