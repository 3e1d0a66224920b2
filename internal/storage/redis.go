package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hyperrecruit/internal/config"
	"hyperrecruit/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键在Redis中不存在时返回，包装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis 包装Redis客户端，提供向量缓存的热层
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis客户端连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// SetHotVector 将向量写入热层缓存并设置过期时间。
// 持久层在MySQL中不过期，这里仅加速近期重复文本的命中。
func (r *Redis) SetHotVector(ctx context.Context, model, textSHA string, vector []float64) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	cacheKey := fmt.Sprintf(constants.KeyEmbeddingVector, model, textSHA)

	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}

	if err := r.Client.Set(ctx, cacheKey, vectorJSON, constants.HotVectorCacheTTL).Err(); err != nil {
		return fmt.Errorf("设置向量热层缓存失败: %w", err)
	}
	return nil
}

// GetHotVector 从热层缓存读取向量，未命中返回ErrNotFound
func (r *Redis) GetHotVector(ctx context.Context, model, textSHA string) ([]float64, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}

	cacheKey := fmt.Sprintf(constants.KeyEmbeddingVector, model, textSHA)

	vectorJSON, err := r.Client.Get(ctx, cacheKey).Result()
	if err != nil {
		return nil, err
	}

	var vector []float64
	if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
		return nil, fmt.Errorf("反序列化向量失败: %w", err)
	}
	return vector, nil
}
