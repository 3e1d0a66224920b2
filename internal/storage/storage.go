package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"hyperrecruit/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库：规范化文档、去重键、评分记录、向量缓存持久层
	MySQL *MySQL

	// 键值存储：向量缓存热层
	Redis *Redis

	// 对象存储：文档快照归档
	MinIO *MinIO

	// 消息队列：评分触发事件
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器。
// MySQL是硬依赖；其余组件初始化失败时降级运行并记录警告。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	// 初始化MySQL
	if cfg.MySQL.Host == "" {
		return nil, fmt.Errorf("MySQL未配置")
	}
	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}

	// 初始化Redis（如果配置了）
	if cfg.Redis.Address != "" {
		log.Printf("初始化Redis at %s...", cfg.Redis.Address)
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("警告: 初始化Redis失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		log.Printf("Redis未配置, 跳过初始化.")
	}

	// 初始化MinIO（如果配置了）
	if cfg.MinIO.Endpoint != "" {
		var minioLogger *log.Logger
		if cfg.Logger.Level == "debug" {
			minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
		} else {
			minioLogger = log.New(io.Discard, "", 0)
		}
		storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
		if err != nil {
			log.Printf("警告: 初始化MinIO失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		log.Printf("初始化RabbitMQ...")
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("警告: 初始化RabbitMQ失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := storage.RabbitMQ.SetupScoringTopology(); err != nil {
			log.Printf("警告: 声明评分事件拓扑失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ拓扑: %v", err))
		}
	}

	if len(initErrors) > 0 {
		log.Printf("警告: 以下存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("关闭MySQL连接失败: %v", err)
		}
	}
}
