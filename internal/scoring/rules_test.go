package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestSkillOverlapCaseInsensitive(t *testing.T) {
	// 技能名比较忽略大小写和首尾空白
	got := SkillOverlap([]string{"Python"}, nil, []string{"python"})
	assert.InDelta(t, 1.0, got, 1e-9)

	got = SkillOverlap([]string{" Go "}, nil, []string{"go"})
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestSkillOverlapNoRequiredSkills(t *testing.T) {
	// 岗位没有必备技能时直接0分，而不是满分
	assert.Equal(t, 0.0, SkillOverlap(nil, []string{"Docker"}, []string{"Docker"}))
	assert.Equal(t, 0.0, SkillOverlap([]string{}, nil, []string{"Go"}))
}

func TestSkillOverlapWeighting(t *testing.T) {
	// 无加分技能: (2*req_hits)/2
	got := SkillOverlap([]string{"a", "b", "c"}, nil, []string{"a"})
	assert.InDelta(t, (2.0*(1.0/3.0))/2.0, got, 1e-9)

	// 有加分技能: (2*req_hits + pref_hits)/3
	got = SkillOverlap([]string{"a", "b"}, []string{"x", "y"}, []string{"a", "x"})
	assert.InDelta(t, (2.0*0.5+0.5)/3.0, got, 1e-9)

	// 必备加分全中 → 1.0
	got = SkillOverlap([]string{"a"}, []string{"x"}, []string{"a", "x"})
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestExperienceFitNoRequirement(t *testing.T) {
	assert.Equal(t, 1.0, ExperienceFit(f(3), nil))
	assert.Equal(t, 1.0, ExperienceFit(nil, nil))
}

func TestExperienceFitUnknownCandidate(t *testing.T) {
	assert.Equal(t, 0.0, ExperienceFit(nil, f(5)))
}

func TestExperienceFitMeetsRequirement(t *testing.T) {
	// 刚好达标从0.7起步
	assert.InDelta(t, 0.7, ExperienceFit(f(5), f(5)), 1e-9)
	// 超出一倍封顶1.0
	assert.InDelta(t, 1.0, ExperienceFit(f(10), f(5)), 1e-9)
	// 超出一半: 0.7 + 0.3*0.5
	assert.InDelta(t, 0.85, ExperienceFit(f(7.5), f(5)), 1e-9)
}

func TestExperienceFitBelowRequirement(t *testing.T) {
	assert.InDelta(t, 0.4, ExperienceFit(f(2), f(5)), 1e-9)
	assert.InDelta(t, 0.0, ExperienceFit(f(0), f(5)), 1e-9)
}

func TestEducationFitSubstring(t *testing.T) {
	assert.Equal(t, 1.0, EducationFit("Master of Science", "master"))
	assert.Equal(t, 0.0, EducationFit("Bachelor of Arts", "master"))
	// 没有学历要求时满分
	assert.Equal(t, 1.0, EducationFit("", ""))
	assert.Equal(t, 1.0, EducationFit("PhD", ""))
	// 候选人学历未知时零分
	assert.Equal(t, 0.0, EducationFit("", "bachelor"))
}

func TestLocationFit(t *testing.T) {
	// 岗位没有地点要求时满分
	assert.Equal(t, 1.0, LocationFit("Berlin", ""))
	// 候选人地点未知时折半
	assert.Equal(t, 0.5, LocationFit("", "Berlin"))
	// 岗位地点是候选人地点的子串（忽略大小写）时满分
	assert.Equal(t, 1.0, LocationFit("Greater Berlin Area", "berlin"))
	// 不匹配时0.7而不是0
	assert.Equal(t, 0.7, LocationFit("Munich", "Berlin"))
}
