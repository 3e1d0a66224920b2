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

// JobService 岗位文档的入库流程，与CandidateService对称
type JobService struct {
	store   JobStore
	vectors VectorCache
	archive SnapshotArchive
	events  ScoreEventPublisher
	logger  *log.Logger
}

// NewJobService 创建岗位入库服务。archive和events可以为nil。
func NewJobService(store JobStore, vectors VectorCache, archive SnapshotArchive, events ScoreEventPublisher, logger *log.Logger) *JobService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &JobService{
		store:   store,
		vectors: vectors,
		archive: archive,
		events:  events,
		logger:  logger,
	}
}

// UpsertJob 入库一份规范化岗位文档。
// 命中已有岗位（公司+岗位名/公司/哈希任一键）时整体替换其文档。
func (s *JobService) UpsertJob(ctx context.Context, raw []byte) (*UpsertResult, error) {
	doc, err := types.DecodeJob(raw)
	if err != nil {
		return nil, fmt.Errorf("解码岗位文档失败: %w", err)
	}

	if doc.Meta.HashSHA256 == "" {
		doc.Meta.HashSHA256 = dedup.ContentHash(raw)
	}
	if doc.Details.TitleNorm == "" {
		doc.Details.TitleNorm = doc.TitleNormalized()
	}

	s.attachEmbeddings(ctx, doc)

	ks := dedup.JobKeys(doc, doc.Meta.HashSHA256)
	doc.Dedupe.Keys = ks.StoredValues()

	finalDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("序列化岗位文档失败: %w", err)
	}

	newID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成岗位ID失败: %w", err)
	}

	id, created, err := s.store.UpsertCanonicalJob(ctx, newID.String(), ks, finalDoc, doc.Company.Name, doc.Details.Title)
	if err != nil {
		return nil, fmt.Errorf("写入岗位失败: %w", err)
	}

	if s.archive != nil {
		if _, err := s.archive.UploadDocumentSnapshot(ctx, dedup.KindJob, id, finalDoc); err != nil {
			s.logger.Printf("归档岗位快照失败: id=%s err=%v", id, err)
		}
	}
	if s.events != nil {
		msg := storage.NewScoreNeededMessage(dedup.KindJob, id, "upsert")
		if err := s.events.PublishScoreNeeded(ctx, msg); err != nil {
			s.logger.Printf("发布评分事件失败: id=%s err=%v", id, err)
		}
	}

	return &UpsertResult{ID: id, Created: created}, nil
}

// attachEmbeddings 基于本次文档内容计算岗位向量。
// skills_vec 来自必备+加分技能的空格连接，jd_vec 来自归一化岗位名加描述。
func (s *JobService) attachEmbeddings(ctx context.Context, doc *types.CanonicalJob) {
	doc.Emb = types.EmbeddingSet{}
	if s.vectors == nil {
		return
	}

	allSkills := append([]string{}, doc.RequiredSkillList()...)
	allSkills = append(allSkills, doc.PreferredSkillList()...)
	skillsText := strings.Join(allSkills, " ")
	if skillsText != "" {
		vec, err := s.vectors.GetOrCompute(ctx, skillsText)
		if err != nil {
			s.logger.Printf("计算岗位技能向量失败: %v", err)
		} else {
			doc.Emb.SkillsVec = vec
		}
	}

	jdText := strings.TrimSpace(doc.Details.TitleNorm + " " + doc.Description)
	if jdText != "" {
		vec, err := s.vectors.GetOrCompute(ctx, jdText)
		if err != nil {
			s.logger.Printf("计算岗位描述向量失败: %v", err)
		} else {
			doc.Emb.JDVec = vec
		}
	}
}
