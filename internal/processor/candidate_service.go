package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/storage"
	"hyperrecruit/internal/types"

	"github.com/gofrs/uuid/v5"
)

// UpsertResult 一次文档upsert的结果
type UpsertResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"` // true表示新建实体，false表示替换已有实体
}

// CandidateService 候选人文档的完整入库流程：
// 解码、补齐向量、派生去重键、原子upsert、快照归档、触发评分。
type CandidateService struct {
	store   CandidateStore
	vectors VectorCache
	archive SnapshotArchive
	events  ScoreEventPublisher
	logger  *log.Logger
}

// NewCandidateService 创建候选人入库服务。archive和events可以为nil。
func NewCandidateService(store CandidateStore, vectors VectorCache, archive SnapshotArchive, events ScoreEventPublisher, logger *log.Logger) *CandidateService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CandidateService{
		store:   store,
		vectors: vectors,
		archive: archive,
		events:  events,
		logger:  logger,
	}
}

// UpsertCandidate 入库一份规范化候选人文档。
// 命中已有候选人（电话/邮箱/哈希任一键）时整体替换其文档，
// 向量总是基于本次内容重新计算，不沿用旧文档的向量。
func (s *CandidateService) UpsertCandidate(ctx context.Context, raw []byte) (*UpsertResult, error) {
	doc, err := types.DecodeCandidate(raw)
	if err != nil {
		return nil, fmt.Errorf("解码候选人文档失败: %w", err)
	}

	if doc.Meta.HashSHA256 == "" {
		doc.Meta.HashSHA256 = dedup.ContentHash(raw)
	}

	s.attachEmbeddings(ctx, doc)

	ks := dedup.CandidateKeys(doc, doc.Meta.HashSHA256)
	doc.Dedupe.Keys = ks.StoredValues()

	finalDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("序列化候选人文档失败: %w", err)
	}

	newID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成候选人ID失败: %w", err)
	}

	id, created, err := s.store.UpsertCanonicalCandidate(ctx, newID.String(), ks, finalDoc, doc.Identity.Name)
	if err != nil {
		return nil, fmt.Errorf("写入候选人失败: %w", err)
	}

	// 归档与事件都是尽力而为，失败不影响upsert结果
	if s.archive != nil {
		if _, err := s.archive.UploadDocumentSnapshot(ctx, dedup.KindCandidate, id, finalDoc); err != nil {
			s.logger.Printf("归档候选人快照失败: id=%s err=%v", id, err)
		}
	}
	if s.events != nil {
		msg := storage.NewScoreNeededMessage(dedup.KindCandidate, id, "upsert")
		if err := s.events.PublishScoreNeeded(ctx, msg); err != nil {
			s.logger.Printf("发布评分事件失败: id=%s err=%v", id, err)
		}
	}

	return &UpsertResult{ID: id, Created: created}, nil
}

// attachEmbeddings 基于本次文档内容计算向量。
// skills_vec 来自空格连接的技能名，summary_vec 来自概述全文。
// 计算失败记日志后以无向量状态继续，语义分退化为0。
func (s *CandidateService) attachEmbeddings(ctx context.Context, doc *types.CanonicalCandidate) {
	doc.Emb = types.EmbeddingSet{}
	if s.vectors == nil {
		return
	}

	skillsText := strings.Join(doc.SkillNames(), " ")
	if skillsText != "" {
		vec, err := s.vectors.GetOrCompute(ctx, skillsText)
		if err != nil {
			s.logger.Printf("计算候选人技能向量失败: %v", err)
		} else {
			doc.Emb.SkillsVec = vec
		}
	}

	if doc.Summary != "" {
		vec, err := s.vectors.GetOrCompute(ctx, doc.Summary)
		if err != nil {
			s.logger.Printf("计算候选人概述向量失败: %v", err)
		} else {
			doc.Emb.SummaryVec = vec
		}
	}
}
