package constants

import "time"

const (
	// ScoringVersion 评分算法版本标签，写入每条评分记录；
	// 重评会覆盖同一(job_id, candidate_id)对的旧记录
	ScoringVersion = "v1.0"

	// EmbeddingMaxChars 送入Embedding前的文本截断长度。
	// 哈希同样基于截断后的文本，前7000字符相同的两段文本命中同一缓存条目
	EmbeddingMaxChars = 7000

	// HotVectorCacheTTL Redis热层向量缓存的过期时间。
	// 持久层（MySQL）不设过期，(model, hash)到向量的映射是纯函数
	HotVectorCacheTTL = 24 * time.Hour
)
