package scoring

import (
	"math"

	"hyperrecruit/internal/embedding"
	"hyperrecruit/internal/types"
)

// ComputeScore 计算一对候选人-岗位的混合匹配分（0-100）。
// 权重: 技能重合90% + 语义相似10%。
// 经验/学历/地点规则单独提供，当前版本不计入总分。
// 向量缺失时语义分记0，总分退化为纯规则分。
func ComputeScore(c *types.CanonicalCandidate, j *types.CanonicalJob) *types.ScoreBreakdown {
	sSkill := SkillOverlap(j.RequiredSkillList(), j.PreferredSkillList(), c.SkillNames())

	// 语义相似: 候选人 summary_vec 优先、skills_vec 兜底，
	// 岗位 jd_vec 优先、skills_vec 兜底
	sSem := 0.0
	cvec := c.Emb.SummaryVec
	if len(cvec) == 0 {
		cvec = c.Emb.SkillsVec
	}
	jvec := j.Emb.JDVec
	if len(jvec) == 0 {
		jvec = j.Emb.SkillsVec
	}
	if len(cvec) > 0 && len(jvec) > 0 {
		// 余弦从 -1..1 线性映射到 0..1
		sSem = (embedding.Cosine(cvec, jvec) + 1) / 2.0
	}

	final := (0.9*sSkill + 0.1*sSem) * 100.0
	return &types.ScoreBreakdown{
		FinalScore: round2(final),
		Components: types.ScoreComponents{
			Skill:    round1(100 * sSkill),
			Semantic: round1(100 * sSem),
		},
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
