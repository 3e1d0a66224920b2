package scoring

import "strings"

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[norm(item)] = struct{}{}
	}
	return set
}

func intersectCount(a, b map[string]struct{}) int {
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}

// SkillOverlap 技能重合度，0到1。
// 必备技能权重2，优先技能权重1；岗位没有必备技能时直接返回0。
// 比较前技能名做小写去空白归一化。
func SkillOverlap(required, preferred, candidate []string) float64 {
	req := normSet(required)
	pref := normSet(preferred)
	cand := normSet(candidate)

	if len(req) == 0 {
		return 0.0
	}

	reqHits := float64(intersectCount(req, cand)) / float64(max(1, len(req)))
	prefHits := 0.0
	denom := 2.0
	if len(pref) > 0 {
		prefHits = float64(intersectCount(pref, cand)) / float64(max(1, len(pref)))
		denom = 3.0
	}
	return (2.0*reqHits + 1.0*prefHits) / denom
}

// epsilon 防除零
const epsilon = 1e-9

// ExperienceFit 工作年限匹配度，0到1。
// 岗位没有年限要求时满分；候选人年限未知时零分；
// 达标时从0.7起按超出比例加成，封顶1.0；未达标时按比例给分。
func ExperienceFit(candYears, minYears *float64) float64 {
	if minYears == nil {
		return 1.0
	}
	if candYears == nil {
		return 0.0
	}
	m := max(epsilon, *minYears)
	if *candYears >= *minYears {
		return min(1.0, 0.7+0.3*min(1.0, (*candYears-*minYears)/m))
	}
	return max(0.0, *candYears/m)
}

// EducationFit 学历匹配度：要求串是候选人最高学历的子串（忽略大小写）即满分
func EducationFit(candHighest, required string) float64 {
	if required == "" {
		return 1.0
	}
	if candHighest == "" {
		return 0.0
	}
	if strings.Contains(strings.ToLower(candHighest), strings.ToLower(required)) {
		return 1.0
	}
	return 0.0
}

// LocationFit 地点匹配度。
// 岗位没有地点要求时满分；候选人地点未知时0.5；
// 岗位地点是候选人地点的子串时满分，否则0.7。
func LocationFit(candLoc, jobLoc string) float64 {
	if jobLoc == "" {
		return 1.0
	}
	if candLoc == "" {
		return 0.5
	}
	if strings.Contains(strings.ToLower(candLoc), strings.ToLower(jobLoc)) {
		return 1.0
	}
	return 0.7
}
