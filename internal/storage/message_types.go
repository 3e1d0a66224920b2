package storage

import (
	"time"

	"github.com/google/uuid"
)

// ScoreNeededMessage 评分触发事件。
// 候选人或岗位文档upsert后发布，消费端对该实体重新批量评分。
type ScoreNeededMessage struct {
	MessageID   string    `json:"message_id"`       // 消息唯一ID
	EntityKind  string    `json:"entity_kind"`      // "candidate" 或 "job"
	EntityID    string    `json:"entity_id"`        // 实体的存储ID
	RequestedAt time.Time `json:"requested_at"`     // 事件产生时间
	Reason      string    `json:"reason,omitempty"`  // 触发原因，如 "upsert"
	Attempt     int       `json:"attempt,omitempty"` // 重试次数
}

// NewScoreNeededMessage 构造一条评分触发事件
func NewScoreNeededMessage(entityKind, entityID, reason string) *ScoreNeededMessage {
	return &ScoreNeededMessage{
		MessageID:   uuid.NewString(),
		EntityKind:  entityKind,
		EntityID:    entityID,
		RequestedAt: time.Now(),
		Reason:      reason,
	}
}
