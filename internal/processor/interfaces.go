package processor

import (
	"context"

	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/storage"
)

// CandidateStore 候选人文档的原子upsert原语。
// 去重键解析与文档写入在同一个事务内完成。
type CandidateStore interface {
	UpsertCanonicalCandidate(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, fullName string) (string, bool, error)
}

// JobStore 岗位文档的原子upsert原语
type JobStore interface {
	UpsertCanonicalJob(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, companyName, jobTitle string) (string, bool, error)
}

// VectorCache 内容寻址的向量缓存。
// 关闭状态或Provider失败时返回(nil, nil)，文档以无向量状态入库。
type VectorCache interface {
	GetOrCompute(ctx context.Context, text string) ([]float64, error)
}

// SnapshotArchive 文档快照归档，可选依赖
type SnapshotArchive interface {
	UploadDocumentSnapshot(ctx context.Context, kind, entityID string, doc []byte) (string, error)
}

// ScoreEventPublisher 评分触发事件发布，可选依赖
type ScoreEventPublisher interface {
	PublishScoreNeeded(ctx context.Context, msg *storage.ScoreNeededMessage) error
}
