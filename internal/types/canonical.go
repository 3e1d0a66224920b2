package types

import (
	"encoding/json"
	"strings"
	"time"
)

// 本包定义规范化文档模型（canonical document）。
// 上游抽取服务（LLM解析）产出的JSON在进入核心前由 DecodeCandidate/DecodeJob
// 做一次宽松解码，转换为强类型结构；核心内部不再重复做形状检查。

// Location 地点信息。上游可能给出字符串或 {city, region, country} 对象，
// 解码时统一兼容两种形式。
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// UnmarshalJSON 兼容字符串形式的地点（直接作为city处理）
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.City = s
		return nil
	}
	type plain Location
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		// 形状不符时退化为空地点，而不是让整个文档解码失败
		*l = Location{}
		return nil
	}
	*l = Location(p)
	return nil
}

// Best 返回最具体的非空地点字段
func (l Location) Best() string {
	if l.City != "" {
		return l.City
	}
	if l.Region != "" {
		return l.Region
	}
	return l.Country
}

// CandidateIdentity 候选人身份信息
type CandidateIdentity struct {
	Name     string   `json:"name,omitempty"`
	Emails   []string `json:"emails,omitempty"`
	Phones   []string `json:"phones,omitempty"`
	Location Location `json:"location,omitempty"`
}

// CandidateSkill 候选人技能条目
type CandidateSkill struct {
	Name        string   `json:"name"`
	Proficiency string   `json:"proficiency,omitempty"` // beginner/intermediate/advanced/expert
	Years       *float64 `json:"years,omitempty"`
}

// ExperienceEntry 工作经历条目
type ExperienceEntry struct {
	Company     string   `json:"company,omitempty"`
	Title       string   `json:"title,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Years       *float64 `json:"years,omitempty"`
	Description string   `json:"description,omitempty"`
}

// EducationEntry 教育经历条目
type EducationEntry struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Major       string `json:"major,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// EmbeddingSet 文档携带的向量。候选人使用 skills_vec/summary_vec，
// 岗位使用 jd_vec/skills_vec。向量缺失是合法状态（provider未配置等）。
type EmbeddingSet struct {
	SkillsVec  []float64 `json:"skills_vec,omitempty"`
	SummaryVec []float64 `json:"summary_vec,omitempty"`
	JDVec      []float64 `json:"jd_vec,omitempty"`
}

// DedupeInfo 去重键集合，持久化在文档上以便按任意键反查
type DedupeInfo struct {
	Keys []string `json:"keys"`
}

// DocumentMeta 文档元信息
type DocumentMeta struct {
	SourceFile        string  `json:"source_file,omitempty"`
	SourceMime        string  `json:"source_mime,omitempty"`
	ParsingConfidence float64 `json:"parsing_confidence,omitempty"`
	HashSHA256        string  `json:"hash_sha256,omitempty"`
}

// CanonicalCandidate 规范化候选人文档
type CanonicalCandidate struct {
	Identity             CandidateIdentity `json:"identity"`
	Summary              string            `json:"summary,omitempty"`
	Skills               []CandidateSkill  `json:"skills,omitempty"`
	Experience           []ExperienceEntry `json:"experience,omitempty"`
	Education            []EducationEntry  `json:"education,omitempty"`
	TotalExperienceYears *float64          `json:"total_experience_years,omitempty"`
	HighestEducation     string            `json:"highest_education,omitempty"`
	Emb                  EmbeddingSet      `json:"emb"`
	Dedupe               DedupeInfo        `json:"dedupe"`
	Meta                 DocumentMeta      `json:"meta"`
}

// SkillNames 返回候选人技能名称列表（跳过空名）
func (c *CanonicalCandidate) SkillNames() []string {
	names := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// JobCompany 岗位所属公司
type JobCompany struct {
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty"`
}

// JobDetails 岗位详情
type JobDetails struct {
	Title              string   `json:"title,omitempty"`
	TitleNorm          string   `json:"title_norm,omitempty"`
	EmploymentType     string   `json:"employment_type,omitempty"`
	MinExperienceYears *float64 `json:"min_experience_years,omitempty"`
}

// JobRequirements 岗位要求
type JobRequirements struct {
	RequiredSkills  []string `json:"required_skills,omitempty"`
	PreferredSkills []string `json:"preferred_skills,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	EducationLevel  string   `json:"education_level,omitempty"`
}

// JobQualifications 岗位资质要求
type JobQualifications struct {
	EducationRequired string `json:"education_required,omitempty"`
}

// UnmarshalJSON 上游有时会把qualifications给成字符串数组，此时按空对象处理
func (q *JobQualifications) UnmarshalJSON(data []byte) error {
	type plain JobQualifications
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*q = JobQualifications{}
		return nil
	}
	*q = JobQualifications(p)
	return nil
}

// CanonicalJob 规范化岗位文档。同一字段可能出现在扁平键或嵌套结构中
// （取决于上游抽取版本），访问器按 扁平 > 嵌套 的顺序取值。
type CanonicalJob struct {
	Company          JobCompany        `json:"company"`
	Details          JobDetails        `json:"details"`
	Location         Location          `json:"location,omitempty"`
	Description      string            `json:"description,omitempty"`
	Requirements     JobRequirements   `json:"requirements"`
	Responsibilities []string          `json:"responsibilities,omitempty"`
	Qualifications   JobQualifications `json:"qualifications,omitempty"`

	// 扁平形式的兼容字段
	SkillsRequired    []string `json:"skills_required,omitempty"`
	SkillsPreferred   []string `json:"skills_preferred,omitempty"`
	ExperienceMin     *float64 `json:"experience_min,omitempty"`
	EducationRequired string   `json:"education_required,omitempty"`

	Emb    EmbeddingSet `json:"emb"`
	Dedupe DedupeInfo   `json:"dedupe"`
	Meta   DocumentMeta `json:"meta"`
}

// RequiredSkillList 必备技能（扁平键优先）
func (j *CanonicalJob) RequiredSkillList() []string {
	if len(j.SkillsRequired) > 0 {
		return j.SkillsRequired
	}
	return j.Requirements.RequiredSkills
}

// PreferredSkillList 加分技能（扁平键优先）
func (j *CanonicalJob) PreferredSkillList() []string {
	if len(j.SkillsPreferred) > 0 {
		return j.SkillsPreferred
	}
	return j.Requirements.PreferredSkills
}

// MinExperience 最低经验年限要求，nil表示未指定
func (j *CanonicalJob) MinExperience() *float64 {
	if j.ExperienceMin != nil {
		return j.ExperienceMin
	}
	if j.Details.MinExperienceYears != nil {
		return j.Details.MinExperienceYears
	}
	return j.Requirements.ExperienceYears
}

// RequiredEducation 学历要求，空字符串表示未指定
func (j *CanonicalJob) RequiredEducation() string {
	if j.EducationRequired != "" {
		return j.EducationRequired
	}
	if j.Qualifications.EducationRequired != "" {
		return j.Qualifications.EducationRequired
	}
	return j.Requirements.EducationLevel
}

// CompanyNameNorm 小写去空格后的公司名
func (j *CanonicalJob) CompanyNameNorm() string {
	return strings.ToLower(strings.TrimSpace(j.Company.Name))
}

// TitleNormalized 小写去空格后的岗位名
func (j *CanonicalJob) TitleNormalized() string {
	return strings.ToLower(strings.TrimSpace(j.Details.Title))
}

// ScoreComponents 分项得分（0-100）
type ScoreComponents struct {
	Skill    float64 `json:"skill"`
	Semantic float64 `json:"semantic"`
}

// ScoreBreakdown 一对候选人-岗位的评分结果
type ScoreBreakdown struct {
	FinalScore float64         `json:"final_score"`
	Components ScoreComponents `json:"components"`
}

// ScoreRecordView 对外暴露的评分记录视图
type ScoreRecordView struct {
	JobID       string          `json:"job_id"`
	CandidateID string          `json:"candidate_id"`
	FinalScore  float64         `json:"final_score"`
	Components  ScoreComponents `json:"components"`
	Version     string          `json:"version"`
	ScoredAt    time.Time       `json:"scored_at"`
}
