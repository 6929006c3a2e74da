package observability

import (
	"strings"
	"sync"
)

// ModelPrice 模型价格，单位 USD / 1K tokens
type ModelPrice struct {
	Model       string  `json:"model" yaml:"model"`
	PriceInput  float64 `json:"price_input" yaml:"price_input"`
	PriceOutput float64 `json:"price_output" yaml:"price_output"`
}

// CostCalculator 按模型计算调用成本。
// Azure 部署名通常与模型同名，因此价格只按模型（小写、最长前缀）匹配。
type CostCalculator struct {
	mu     sync.RWMutex
	prices map[string]ModelPrice
}

// NewCostCalculator 创建带默认价格表的成本计算器
func NewCostCalculator() *CostCalculator {
	c := &CostCalculator{prices: make(map[string]ModelPrice)}
	c.UpdatePrices([]ModelPrice{
		{Model: "gpt-4o", PriceInput: 0.0025, PriceOutput: 0.01},
		{Model: "gpt-4o-mini", PriceInput: 0.00015, PriceOutput: 0.0006},
		{Model: "gpt-4.1", PriceInput: 0.002, PriceOutput: 0.008},
		{Model: "gpt-4.1-mini", PriceInput: 0.0004, PriceOutput: 0.0016},
		{Model: "gpt-4-turbo", PriceInput: 0.01, PriceOutput: 0.03},
		{Model: "gpt-35-turbo", PriceInput: 0.0005, PriceOutput: 0.0015},
		{Model: "gpt-3.5-turbo", PriceInput: 0.0005, PriceOutput: 0.0015},
	})
	return c
}

// UpdatePrices 批量设置价格（来自配置时覆盖默认值）
func (c *CostCalculator) UpdatePrices(prices []ModelPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range prices {
		c.prices[strings.ToLower(p.Model)] = p
	}
}

// Price 返回模型价格；带日期后缀的模型名（gpt-4o-2024-08-06）按最长前缀匹配
func (c *CostCalculator) Price(model string) (ModelPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	model = strings.ToLower(model)
	if p, ok := c.prices[model]; ok {
		return p, true
	}
	var best ModelPrice
	found := false
	for name, p := range c.prices {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best.Model) {
			best, found = p, true
		}
	}
	return best, found
}

// Calculate 计算一次调用的成本，未知模型返回 0
func (c *CostCalculator) Calculate(model string, tokensInput, tokensOutput int) float64 {
	price, ok := c.Price(model)
	if !ok {
		return 0
	}
	return float64(tokensInput)/1000*price.PriceInput + float64(tokensOutput)/1000*price.PriceOutput
}

// CostSummary 成本汇总
type CostSummary struct {
	TotalCost    float64 `json:"total_cost"`
	TokensInput  int     `json:"tokens_input"`
	TokensOutput int     `json:"tokens_output"`
	RequestCount int     `json:"request_count"`
}

// TotalTokens 返回输入与输出 token 之和
func (s CostSummary) TotalTokens() int { return s.TokensInput + s.TokensOutput }

// CostTracker 累计一次研究运行中所有 LLM 调用的成本
type CostTracker struct {
	calculator *CostCalculator
	mu         sync.Mutex
	summary    CostSummary
}

// NewCostTracker 创建成本追踪器；calculator 为 nil 时使用默认价格表
func NewCostTracker(calculator *CostCalculator) *CostTracker {
	if calculator == nil {
		calculator = NewCostCalculator()
	}
	return &CostTracker{calculator: calculator}
}

// Track 记录一次调用并返回其成本
func (t *CostTracker) Track(model string, tokensInput, tokensOutput int) float64 {
	cost := t.calculator.Calculate(model, tokensInput, tokensOutput)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.TotalCost += cost
	t.summary.TokensInput += tokensInput
	t.summary.TokensOutput += tokensOutput
	t.summary.RequestCount++
	return cost
}

// Summary 返回当前汇总
func (t *CostTracker) Summary() CostSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Reset 清零
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = CostSummary{}
}
