package types

// StoredCandidate 存储层返回的候选人记录：存储ID加解码后的规范化文档
type StoredCandidate struct {
	ID  string
	Doc *CanonicalCandidate
}

// StoredJob 存储层返回的岗位记录
type StoredJob struct {
	ID  string
	Doc *CanonicalJob
}
