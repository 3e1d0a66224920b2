package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"hyperrecruit/internal/constants"

	"github.com/cloudwego/eino/components/embedding"
	"gorm.io/gorm"
)

// CacheStore 向量缓存的持久层。
// 条目以(model, text_sha256)为键且写入后不可变。
// 未命中时错误满足 errors.Is(err, gorm.ErrRecordNotFound)。
type CacheStore interface {
	GetCachedVector(ctx context.Context, model, textSHA string) ([]float64, error)
	PutCachedVector(ctx context.Context, model, textSHA string, vec []float64) error
}

// HotStore 向量缓存的热层，可选。未命中时返回任意错误即可。
type HotStore interface {
	GetHotVector(ctx context.Context, model, textSHA string) ([]float64, error)
	SetHotVector(ctx context.Context, model, textSHA string, vector []float64) error
}

// Cache 内容寻址的向量缓存。
// 文本先截断到固定长度再取SHA-256，命中则直接返回缓存向量，
// 未命中时调用一次Provider并把(model, hash, vector)持久化。
// 前7000字符相同的两段文本会命中同一条目，这是已接受的近似。
type Cache struct {
	provider embedding.Embedder
	store    CacheStore
	hot      HotStore
	model    string
	enabled  bool
	logger   *log.Logger
}

// NewCache 创建向量缓存。
// provider为nil或enabled为false时缓存处于关闭状态，
// GetOrCompute返回(nil, nil)，上层按"无向量"处理。
// hot可以为nil，此时只走持久层。
func NewCache(provider embedding.Embedder, store CacheStore, hot HotStore, model string, enabled bool, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{
		provider: provider,
		store:    store,
		hot:      hot,
		model:    model,
		enabled:  enabled,
		logger:   logger,
	}
}

// Enabled 返回缓存是否处于工作状态
func (c *Cache) Enabled() bool {
	return c.enabled && c.provider != nil
}

// Model 返回缓存绑定的模型名
func (c *Cache) Model() string {
	return c.model
}

// TruncateText 截断送入Embedding的文本，哈希同样基于截断后的文本。
// 按字符数截断，多字节文本不会被从rune中间切开。
func TruncateText(text string) string {
	if utf8.RuneCountInString(text) <= constants.EmbeddingMaxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:constants.EmbeddingMaxChars])
}

// HashText 对截断后的文本取SHA-256十六进制摘要
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute 查缓存，未命中时调用Provider计算并持久化。
// 关闭状态或空文本返回(nil, nil)；Provider出错同样按"无向量"返回(nil, nil)
// 且不写缓存，下次未命中会重新计算。持久层查询出错时错误向上传播。
func (c *Cache) GetOrCompute(ctx context.Context, text string) ([]float64, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if text == "" {
		return nil, nil
	}

	truncated := TruncateText(text)
	textSHA := HashText(truncated)

	// 先查热层
	if c.hot != nil {
		if vec, err := c.hot.GetHotVector(ctx, c.model, textSHA); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	// 再查持久层
	if c.store != nil {
		vec, err := c.store.GetCachedVector(ctx, c.model, textSHA)
		if err == nil {
			c.backfillHot(ctx, textSHA, vec)
			return vec, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询向量缓存失败: %w", err)
		}
	}

	// 未命中，调用一次Provider。
	// 无向量是合法状态：Provider失败不向上传播，文档以无向量入库
	vectors, err := c.provider.EmbedStrings(ctx, []string{truncated})
	if err != nil {
		c.logger.Printf("计算向量失败, 按无向量处理: model=%s sha=%s err=%v", c.model, textSHA, err)
		return nil, nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		c.logger.Printf("Provider返回了空向量, 按无向量处理: model=%s sha=%s", c.model, textSHA)
		return nil, nil
	}
	vec := vectors[0]

	// 持久化失败不影响本次返回，下次未命中会重新计算
	if c.store != nil {
		if err := c.store.PutCachedVector(ctx, c.model, textSHA, vec); err != nil {
			c.logger.Printf("写入向量缓存失败: model=%s sha=%s err=%v", c.model, textSHA, err)
		}
	}
	c.backfillHot(ctx, textSHA, vec)

	return vec, nil
}

// backfillHot 回填热层，失败仅记录日志
func (c *Cache) backfillHot(ctx context.Context, textSHA string, vec []float64) {
	if c.hot == nil {
		return
	}
	if err := c.hot.SetHotVector(ctx, c.model, textSHA, vec); err != nil {
		c.logger.Printf("写入向量热层缓存失败: sha=%s err=%v", textSHA, err)
	}
}
