package scoring

import (
	"context"

	"hyperrecruit/internal/types"
)

// Store 批量评分管道的存储依赖。
// GetCandidate/GetJob 未找到记录时错误满足 errors.Is(err, gorm.ErrRecordNotFound)。
// UpsertMatchScore 以 (job_id, candidate_id) 为键幂等覆盖。
type Store interface {
	GetCandidate(ctx context.Context, candidateID string) (*types.CanonicalCandidate, error)
	GetJob(ctx context.Context, jobID string) (*types.CanonicalJob, error)
	ListCandidates(ctx context.Context) ([]types.StoredCandidate, error)
	ListJobs(ctx context.Context) ([]types.StoredJob, error)
	UpsertMatchScore(ctx context.Context, rec *types.ScoreRecordView) error
}
