package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCandidateStrict(t *testing.T) {
	raw := []byte(`{
		"identity": {"name": "李四", "emails": ["li@example.com"], "phones": ["13800001111"]},
		"summary": "资深后端",
		"skills": [{"name": "Go", "proficiency": "expert", "years": 5}],
		"total_experience_years": 8.5,
		"highest_education": "Master of Science"
	}`)

	c, err := DecodeCandidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "李四", c.Identity.Name)
	assert.Equal(t, []string{"Go"}, c.SkillNames())
	require.NotNil(t, c.TotalExperienceYears)
	assert.Equal(t, 8.5, *c.TotalExperienceYears)
}

func TestDecodeCandidateLenientBadField(t *testing.T) {
	// skills给成了字符串：该字段归零，其余字段照常解码
	raw := []byte(`{
		"identity": {"name": "王五"},
		"summary": "运维工程师",
		"skills": "Go, Docker"
	}`)

	c, err := DecodeCandidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "王五", c.Identity.Name)
	assert.Equal(t, "运维工程师", c.Summary)
	assert.Empty(t, c.Skills)
}

func TestDecodeCandidateLocationAsString(t *testing.T) {
	// 上游把地点给成字符串时按city处理
	raw := []byte(`{"identity": {"name": "赵六", "location": "上海"}}`)

	c, err := DecodeCandidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "上海", c.Identity.Location.City)
	assert.Equal(t, "上海", c.Identity.Location.Best())
}

func TestDecodeCandidateRejectsNonObject(t *testing.T) {
	_, err := DecodeCandidate([]byte(`["not", "an", "object"]`))
	assert.Error(t, err)

	_, err = DecodeCandidate([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestDecodeJobStrict(t *testing.T) {
	raw := []byte(`{
		"company": {"name": "Acme"},
		"details": {"title": "Go Developer", "min_experience_years": 3},
		"requirements": {"required_skills": ["Go"], "preferred_skills": ["Redis"]},
		"description": "后端开发岗位"
	}`)

	j, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", j.Company.Name)
	assert.Equal(t, []string{"Go"}, j.RequiredSkillList())
	assert.Equal(t, []string{"Redis"}, j.PreferredSkillList())
	require.NotNil(t, j.MinExperience())
	assert.Equal(t, 3.0, *j.MinExperience())
}

func TestDecodeJobQualificationsAsArray(t *testing.T) {
	// 上游有时把qualifications给成字符串数组：按空对象处理，不影响其余字段
	raw := []byte(`{
		"company": {"name": "Acme"},
		"details": {"title": "Go Developer"},
		"qualifications": ["Bachelor degree", "3 years experience"]
	}`)

	j, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", j.Company.Name)
	assert.Empty(t, j.Qualifications.EducationRequired)
}

func TestDecodeJobFlatFieldsPreferred(t *testing.T) {
	// 扁平键与嵌套键并存时访问器取扁平键
	raw := []byte(`{
		"company": {"name": "Acme"},
		"skills_required": ["Rust"],
		"requirements": {"required_skills": ["COBOL"], "education_level": "bachelor"},
		"education_required": "master"
	}`)

	j, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, j.RequiredSkillList())
	assert.Equal(t, "master", j.RequiredEducation())
}

func TestDecodeJobLocationObject(t *testing.T) {
	raw := []byte(`{
		"company": {"name": "Acme"},
		"location": {"city": "Berlin", "country": "Germany"}
	}`)

	j, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", j.Location.Best())
}

func TestTitleNormalized(t *testing.T) {
	j := &CanonicalJob{Details: JobDetails{Title: "  Senior Engineer "}}
	assert.Equal(t, "senior engineer", j.TitleNormalized())
}
