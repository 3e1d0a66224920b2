package scoring

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"hyperrecruit/internal/constants"
	"hyperrecruit/internal/types"
)

// Pipeline 批量评分管道。
// 以单个实体为锚点，对另一侧的全部实体重新评分并落库。
type Pipeline struct {
	store  Store
	logger *log.Logger
}

// NewPipeline 创建批量评分管道
func NewPipeline(store Store, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		store:  store,
		logger: logger,
	}
}

// ScoreCandidateAgainstAllJobs 把一个候选人对全部岗位重新评分。
// 锚点候选人不存在是硬错误；单个岗位评分或落库失败记日志后跳过，
// 不中断批次。返回成功写入的评分条数。
func (p *Pipeline) ScoreCandidateAgainstAllJobs(ctx context.Context, candidateID string) (int, error) {
	c, err := p.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return 0, fmt.Errorf("加载锚点候选人失败: %w", err)
	}

	jobs, err := p.store.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("列出岗位失败: %w", err)
	}

	count := 0
	for _, job := range jobs {
		if err := p.scoreOne(ctx, job.ID, candidateID, c, job.Doc); err != nil {
			p.logger.Printf("评分失败, 跳过: job=%s candidate=%s err=%v", job.ID, candidateID, err)
			continue
		}
		count++
	}

	p.logger.Printf("候选人批量评分完成: candidate=%s scored=%d/%d", candidateID, count, len(jobs))
	return count, nil
}

// ScoreJobAgainstAllCandidates 把一个岗位对全部候选人重新评分。
// 语义与 ScoreCandidateAgainstAllJobs 对称。
func (p *Pipeline) ScoreJobAgainstAllCandidates(ctx context.Context, jobID string) (int, error) {
	j, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("加载锚点岗位失败: %w", err)
	}

	candidates, err := p.store.ListCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("列出候选人失败: %w", err)
	}

	count := 0
	for _, cand := range candidates {
		if err := p.scoreOne(ctx, jobID, cand.ID, cand.Doc, j); err != nil {
			p.logger.Printf("评分失败, 跳过: job=%s candidate=%s err=%v", jobID, cand.ID, err)
			continue
		}
		count++
	}

	p.logger.Printf("岗位批量评分完成: job=%s scored=%d/%d", jobID, count, len(candidates))
	return count, nil
}

// scoreOne 评一对并落库。单对评分中的panic被兜住转为错误，
// 保证批次内其余配对不受脏数据影响。
func (p *Pipeline) scoreOne(ctx context.Context, jobID, candidateID string, c *types.CanonicalCandidate, j *types.CanonicalJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("评分过程panic: %v", r)
		}
	}()

	breakdown := ComputeScore(c, j)
	rec := &types.ScoreRecordView{
		JobID:       jobID,
		CandidateID: candidateID,
		FinalScore:  breakdown.FinalScore,
		Components:  breakdown.Components,
		Version:     constants.ScoringVersion,
		ScoredAt:    time.Now(),
	}
	return p.store.UpsertMatchScore(ctx, rec)
}
