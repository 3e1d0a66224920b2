package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"hyperrecruit/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// MinIO 规范化文档快照归档。
// 每次upsert把最终写库的JSON文档存一份对象快照，
// 实体文档是整体替换式更新，历史版本只能从这里回看。
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	documentsBucket string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.DocumentsBucket
	if bucket == "" {
		bucket = "canonical-documents"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		documentsBucket: bucket,
		logger:          logger,
	}

	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保文档存储桶 %s 存在失败: %w", bucket, err)
	}

	if cfg.DocumentExpireDays > 0 {
		if err := m.setupLifecycleRule(context.Background(), cfg.DocumentExpireDays); err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rule: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized for endpoint: %s, bucket: %s", cfg.Endpoint, bucket)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created.", bucketName)
	}
	return nil
}

// setupLifecycleRule 为文档快照设置过期天数
func (m *MinIO) setupLifecycleRule(ctx context.Context, expireDays int) error {
	lcCfg := lifecycle.NewConfiguration()
	lcCfg.Rules = []lifecycle.Rule{
		{
			ID:     "expire-document-snapshots",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expireDays),
			},
		},
	}
	if err := m.client.SetBucketLifecycle(ctx, m.documentsBucket, lcCfg); err != nil {
		return fmt.Errorf("设置存储桶 %s 生命周期规则失败: %w", m.documentsBucket, err)
	}
	return nil
}

// UploadDocumentSnapshot 上传一份规范化文档快照，返回对象键。
// 对象键按 {kind}/{entityID}/{时间戳}.json 组织，同一实体的快照天然按时间排列。
func (m *MinIO) UploadDocumentSnapshot(ctx context.Context, kind, entityID string, doc []byte) (string, error) {
	if kind == "" || entityID == "" {
		return "", fmt.Errorf("kind和entityID不能为空")
	}

	objectName := fmt.Sprintf("%s/%s/%s.json", kind, entityID, time.Now().UTC().Format("20060102T150405.000000000Z"))

	_, err := m.client.PutObject(ctx, m.documentsBucket, objectName,
		bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传文档快照失败: %w", err)
	}

	return objectName, nil
}

// GetDocumentSnapshot 下载一份文档快照
func (m *MinIO) GetDocumentSnapshot(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.documentsBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取文档快照失败: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取文档快照失败: %w", err)
	}
	return data, nil
}

// GetPresignedURL 获取文档快照的预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.documentsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("获取预签名URL失败: %w", err)
	}
	return u.String(), nil
}
