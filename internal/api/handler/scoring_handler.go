package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"hyperrecruit/internal/config"
	"hyperrecruit/internal/logger"
	"hyperrecruit/internal/scoring"
	"hyperrecruit/internal/types"
)

// ScoreReader 评分接口需要的只读存储能力
type ScoreReader interface {
	GetCandidate(ctx context.Context, candidateID string) (*types.CanonicalCandidate, error)
	GetJob(ctx context.Context, jobID string) (*types.CanonicalJob, error)
	ListScoresByJob(ctx context.Context, jobID string, limit int) ([]types.ScoreRecordView, error)
}

// ScoringHandler 评分处理器，承接单对计算、批量触发和榜单查询
type ScoringHandler struct {
	cfg      *config.Config
	store    ScoreReader
	pipeline *scoring.Pipeline
}

// NewScoringHandler 创建评分处理器
func NewScoringHandler(cfg *config.Config, store ScoreReader, pipeline *scoring.Pipeline) *ScoringHandler {
	return &ScoringHandler{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
	}
}

// ComputeScoreRequest 单对评分请求。
// 候选人与岗位各自支持按存储ID引用或直接内联文档，ID优先。
type ComputeScoreRequest struct {
	CandidateID string          `json:"candidate_id,omitempty"`
	JobID       string          `json:"job_id,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
	Job         json.RawMessage `json:"job,omitempty"`
}

// HandleComputeScore 计算一对候选人-岗位的评分，不落库
func (h *ScoringHandler) HandleComputeScore(ctx context.Context, req *ComputeScoreRequest) (*types.ScoreBreakdown, error) {
	c, err := h.resolveCandidate(ctx, req)
	if err != nil {
		return nil, err
	}
	j, err := h.resolveJob(ctx, req)
	if err != nil {
		return nil, err
	}
	return scoring.ComputeScore(c, j), nil
}

func (h *ScoringHandler) resolveCandidate(ctx context.Context, req *ComputeScoreRequest) (*types.CanonicalCandidate, error) {
	if req.CandidateID != "" {
		return h.store.GetCandidate(ctx, req.CandidateID)
	}
	if len(req.Candidate) > 0 {
		c, err := types.DecodeCandidate(req.Candidate)
		if err != nil {
			return nil, fmt.Errorf("解码内联候选人文档失败: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("缺少candidate_id或内联candidate文档")
}

func (h *ScoringHandler) resolveJob(ctx context.Context, req *ComputeScoreRequest) (*types.CanonicalJob, error) {
	if req.JobID != "" {
		return h.store.GetJob(ctx, req.JobID)
	}
	if len(req.Job) > 0 {
		j, err := types.DecodeJob(req.Job)
		if err != nil {
			return nil, fmt.Errorf("解码内联岗位文档失败: %w", err)
		}
		return j, nil
	}
	return nil, fmt.Errorf("缺少job_id或内联job文档")
}

// BatchScoreResponse 批量评分响应
type BatchScoreResponse struct {
	Scored int `json:"scored"` // 成功写入的评分条数
}

// HandleScoreCandidate 把一个候选人对全部岗位批量评分
func (h *ScoringHandler) HandleScoreCandidate(ctx context.Context, candidateID string) (*BatchScoreResponse, error) {
	count, err := h.pipeline.ScoreCandidateAgainstAllJobs(ctx, candidateID)
	if err != nil {
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("候选人批量评分失败")
		return nil, err
	}
	return &BatchScoreResponse{Scored: count}, nil
}

// HandleScoreJob 把一个岗位对全部候选人批量评分
func (h *ScoringHandler) HandleScoreJob(ctx context.Context, jobID string) (*BatchScoreResponse, error) {
	count, err := h.pipeline.ScoreJobAgainstAllCandidates(ctx, jobID)
	if err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("岗位批量评分失败")
		return nil, err
	}
	return &BatchScoreResponse{Scored: count}, nil
}

// HandleListJobScores 查询某岗位的评分榜单，按最终分降序
func (h *ScoringHandler) HandleListJobScores(ctx context.Context, jobID string, limit int) ([]types.ScoreRecordView, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job_id不能为空")
	}
	return h.store.ListScoresByJob(ctx, jobID, limit)
}
