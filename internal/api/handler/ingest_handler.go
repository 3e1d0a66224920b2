package handler

import (
	"context"
	"fmt"

	"hyperrecruit/internal/config"
	"hyperrecruit/internal/logger"
	"hyperrecruit/internal/processor"
)

// IngestHandler 文档入库处理器，协调候选人与岗位的upsert流程
type IngestHandler struct {
	cfg        *config.Config
	candidates *processor.CandidateService
	jobs       *processor.JobService
}

// NewIngestHandler 创建文档入库处理器
func NewIngestHandler(cfg *config.Config, candidates *processor.CandidateService, jobs *processor.JobService) *IngestHandler {
	return &IngestHandler{
		cfg:        cfg,
		candidates: candidates,
		jobs:       jobs,
	}
}

// HandleUpsertCandidate 处理候选人文档入库请求
func (h *IngestHandler) HandleUpsertCandidate(ctx context.Context, raw []byte) (*processor.UpsertResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("请求体为空")
	}

	result, err := h.candidates.UpsertCandidate(ctx, raw)
	if err != nil {
		logger.Error().Err(err).Msg("候选人入库失败")
		return nil, err
	}

	logger.Info().
		Str("candidate_id", result.ID).
		Bool("created", result.Created).
		Msg("候选人入库完成")
	return result, nil
}

// HandleUpsertJob 处理岗位文档入库请求
func (h *IngestHandler) HandleUpsertJob(ctx context.Context, raw []byte) (*processor.UpsertResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("请求体为空")
	}

	result, err := h.jobs.UpsertJob(ctx, raw)
	if err != nil {
		logger.Error().Err(err).Msg("岗位入库失败")
		return nil, err
	}

	logger.Info().
		Str("job_id", result.ID).
		Bool("created", result.Created).
		Msg("岗位入库完成")
	return result, nil
}
