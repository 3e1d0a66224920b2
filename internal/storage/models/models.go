package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CanonicalCandidate 候选人规范化文档表。
// 文档整体以JSON存储（全量替换式更新），少量字段抽出便于检索。
type CanonicalCandidate struct {
	CandidateID string         `gorm:"type:char(36);primaryKey"`
	FullName    string         `gorm:"type:varchar(255);index:idx_cc_full_name"`
	Doc         datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CanonicalCandidate) TableName() string {
	return "candidates_canonical"
}

// CanonicalJob 岗位规范化文档表
type CanonicalJob struct {
	JobID       string         `gorm:"type:char(36);primaryKey"`
	CompanyName string         `gorm:"type:varchar(255);index:idx_cj_company_name"`
	JobTitle    string         `gorm:"type:varchar(255)"`
	Doc         datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CanonicalJob) TableName() string {
	return "jobs_canonical"
}

// DedupeKey 归一化去重键表。
// (entity_kind, key_value) 上的唯一索引保证任一键同一时刻至多归属一个实体，
// 配合 ON CONFLICT 写入消除"查找后插入"的并发重复。
type DedupeKey struct {
	KeyDBID    uint64    `gorm:"primaryKey;autoIncrement"`
	EntityKind string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_dk_kind_key,priority:1"`
	KeyValue   string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_dk_kind_key,priority:2"`
	Tier       int       `gorm:"not null"` // 优先级层: 1=phone/company_title 2=email/company 3=hash
	EntityID   string    `gorm:"type:char(36);not null;index:idx_dk_entity_id"`
	CreatedAt  time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt  time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (DedupeKey) TableName() string {
	return "dedupe_keys"
}

// MatchScore 候选人-岗位评分记录表。
// (job_id, candidate_id) 唯一，重评以upsert覆盖旧记录。
type MatchScore struct {
	ScoreDBID     uint64    `gorm:"primaryKey;autoIncrement"`
	JobID         string    `gorm:"type:char(36);not null;uniqueIndex:idx_ms_job_candidate,priority:1;index:idx_ms_job_final,priority:1"`
	CandidateID   string    `gorm:"type:char(36);not null;uniqueIndex:idx_ms_job_candidate,priority:2"`
	FinalScore    float64   `gorm:"type:double;not null;index:idx_ms_job_final,priority:2"`
	SkillScore    float64   `gorm:"type:double;not null"`
	SemanticScore float64   `gorm:"type:double;not null"`
	Version       string    `gorm:"type:varchar(20);not null"`
	ScoredAt      time.Time `gorm:"type:datetime(6);not null"`
	CreatedAt     time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt     time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (MatchScore) TableName() string {
	return "match_scores"
}

// EmbeddingCacheEntry 内容寻址向量缓存持久层。
// (model, text_sha256) 唯一且写入后不可变：相同键永远映射到相同向量。
type EmbeddingCacheEntry struct {
	EntryDBID  uint64         `gorm:"primaryKey;autoIncrement"`
	Model      string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_ece_model_sha,priority:1"`
	TextSHA256 string         `gorm:"type:char(64);not null;uniqueIndex:idx_ece_model_sha,priority:2"`
	Vector     datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (EmbeddingCacheEntry) TableName() string {
	return "embedding_cache_entries"
}

// VectorToJSON 将向量序列化为JSON列值
func VectorToJSON(vec []float64) (datatypes.JSON, error) {
	bytes, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// VectorFromJSON 从JSON列值反序列化向量
func VectorFromJSON(data datatypes.JSON) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
