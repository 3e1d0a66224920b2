package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider 记录调用次数的假Provider，向量由文本长度决定
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeProvider) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	return out, nil
}

// memStore 内存版持久层，模仿MySQL实现的未命中语义
type memStore struct {
	mu      sync.Mutex
	entries map[string][]float64
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]float64)}
}

func (m *memStore) GetCachedVector(ctx context.Context, model, textSHA string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.entries[model+":"+textSHA]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vec, nil
}

func (m *memStore) PutCachedVector(ctx context.Context, model, textSHA string, vec []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model + ":" + textSHA
	// 条目不可变，先写入的向量保留
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = vec
	}
	return nil
}

// memHot 内存版热层
type memHot struct {
	mu      sync.Mutex
	entries map[string][]float64
	sets    int
}

func newMemHot() *memHot {
	return &memHot{entries: make(map[string][]float64)}
}

func (m *memHot) GetHotVector(ctx context.Context, model, textSHA string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.entries[model+":"+textSHA]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return vec, nil
}

func (m *memHot) SetHotVector(ctx context.Context, model, textSHA string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[model+":"+textSHA] = vector
	m.sets++
	return nil
}

func TestGetOrComputeHitsCacheOnSecondCall(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	cache := NewCache(provider, store, nil, "test-model", true, nil)

	ctx := context.Background()
	first, err := cache.GetOrCompute(ctx, "golang kubernetes")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := cache.GetOrCompute(ctx, "golang kubernetes")
	require.NoError(t, err)

	// 相同文本第二次必须命中缓存：向量一致且Provider只被调用一次
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestGetOrComputeDifferentTextsComputeSeparately(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, newMemStore(), nil, "test-model", true, nil)

	ctx := context.Background()
	_, err := cache.GetOrCompute(ctx, "text one")
	require.NoError(t, err)
	_, err = cache.GetOrCompute(ctx, "text two longer")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestGetOrComputeDisabled(t *testing.T) {
	// Provider为nil（未配置API Key）时返回(nil, nil)，不是错误
	cache := NewCache(nil, newMemStore(), nil, "test-model", true, nil)
	vec, err := cache.GetOrCompute(context.Background(), "any text")
	assert.NoError(t, err)
	assert.Nil(t, vec)

	// 显式关闭时同样
	provider := &fakeProvider{}
	cache = NewCache(provider, newMemStore(), nil, "test-model", false, nil)
	vec, err = cache.GetOrCompute(context.Background(), "any text")
	assert.NoError(t, err)
	assert.Nil(t, vec)
	assert.Equal(t, 0, provider.calls)
}

func TestGetOrComputeEmptyText(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, newMemStore(), nil, "test-model", true, nil)

	vec, err := cache.GetOrCompute(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, vec)
	assert.Equal(t, 0, provider.calls)
}

func TestGetOrComputeProviderFailureMeansNoVector(t *testing.T) {
	provider := &fakeProvider{fail: true}
	store := newMemStore()
	cache := NewCache(provider, store, nil, "test-model", true, nil)

	// Provider失败按"无向量"处理：不报错、不写缓存，文档以无向量状态入库
	vec, err := cache.GetOrCompute(context.Background(), "some text")
	assert.NoError(t, err)
	assert.Nil(t, vec)
	assert.Equal(t, 1, provider.calls)
	assert.Empty(t, store.entries, "Provider失败时不应写入缓存")

	// 失败结果未被缓存，恢复后重试会重新调用Provider并正常返回
	provider.fail = false
	vec, err = cache.GetOrCompute(context.Background(), "some text")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 2, provider.calls)
}

func TestGetOrComputeHotTierInterplay(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	hot := newMemHot()
	cache := NewCache(provider, store, hot, "test-model", true, nil)
	ctx := context.Background()

	// 首次计算后热层和持久层都已写入
	first, err := cache.GetOrCompute(ctx, "golang")
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, hot.sets)
	assert.Len(t, store.entries, 1)

	// 第二次直接命中热层，不再回填
	second, err := cache.GetOrCompute(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, hot.sets)

	// 热层失效后从持久层命中并回填热层，Provider仍不被调用
	hot.entries = make(map[string][]float64)
	third, err := cache.GetOrCompute(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 2, hot.sets)
}

func TestTruncationCollision(t *testing.T) {
	// 前7000字符相同的两段文本命中同一缓存条目，这是已接受的近似
	provider := &fakeProvider{}
	cache := NewCache(provider, newMemStore(), nil, "test-model", true, nil)

	base := strings.Repeat("a", 7000)
	textA := base + "tail-one"
	textB := base + "tail-two"

	ctx := context.Background()
	vecA, err := cache.GetOrCompute(ctx, textA)
	require.NoError(t, err)
	vecB, err := cache.GetOrCompute(ctx, textB)
	require.NoError(t, err)

	assert.Equal(t, vecA, vecB)
	assert.Equal(t, 1, provider.calls)
}

func TestTruncateText(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TruncateText(short))

	long := strings.Repeat("x", 9000)
	assert.Len(t, TruncateText(long), 7000)

	// 多字节文本按字符数截断，不能把rune从中间切开
	cjk := strings.Repeat("测", 7001)
	got := TruncateText(cjk)
	assert.Equal(t, 7000, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("测", 7000), got)

	exact := strings.Repeat("测", 7000)
	assert.Equal(t, exact, TruncateText(exact))
}

func TestHashTextDeterministic(t *testing.T) {
	assert.Equal(t, HashText("abc"), HashText("abc"))
	assert.NotEqual(t, HashText("abc"), HashText("abd"))
	// SHA-256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashText("abc"))
}
