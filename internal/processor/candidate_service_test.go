package processor

import (
	"context"
	"encoding/json"
	"testing"

	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/storage"
	"hyperrecruit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCandidateStore 内存实现的候选人存储，
// 键解析复用生产路径的 dedup.ResolveOwner
type fakeCandidateStore struct {
	keys map[string]string // 键值 -> 实体ID
	docs map[string][]byte
}

func newFakeCandidateStore() *fakeCandidateStore {
	return &fakeCandidateStore{
		keys: make(map[string]string),
		docs: make(map[string][]byte),
	}
}

func (s *fakeCandidateStore) UpsertCanonicalCandidate(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, fullName string) (string, bool, error) {
	lookup := func(ctx context.Context, key string) (string, error) {
		return s.keys[key], nil
	}
	owner, err := dedup.ResolveOwner(ctx, ks.Tiers, lookup)
	if err != nil {
		return "", false, err
	}
	id, created := owner, false
	if owner == "" {
		id, created = newID, true
	}
	for _, k := range ks.Stored {
		s.keys[k.Value] = id
	}
	s.docs[id] = doc
	return id, created, nil
}

// countingVectorCache 记录调用文本的假向量缓存
type countingVectorCache struct {
	texts []string
}

func (c *countingVectorCache) GetOrCompute(ctx context.Context, text string) ([]float64, error) {
	c.texts = append(c.texts, text)
	return []float64{float64(len(text))}, nil
}

// recordingPublisher 记录发布的评分事件
type recordingPublisher struct {
	msgs []*storage.ScoreNeededMessage
}

func (p *recordingPublisher) PublishScoreNeeded(ctx context.Context, msg *storage.ScoreNeededMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestUpsertCandidateCreatesThenReplaces(t *testing.T) {
	store := newFakeCandidateStore()
	svc := NewCandidateService(store, nil, nil, nil, nil)
	ctx := context.Background()

	// 同一电话、不同邮箱：第二次按电话键命中，替换而不是新建
	first, err := svc.UpsertCandidate(ctx, []byte(`{
		"identity": {"name": "张三", "phones": ["+86 138-0000-1111"], "emails": ["a@example.com"]}
	}`))
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.UpsertCandidate(ctx, []byte(`{
		"identity": {"name": "张三", "phones": ["8613800001111"], "emails": ["b@example.com"]}
	}`))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	// 存储的是第二份文档，且新邮箱键已指向同一实体
	require.Len(t, store.docs, 1)
	var doc types.CanonicalCandidate
	require.NoError(t, json.Unmarshal(store.docs[first.ID], &doc))
	assert.Equal(t, []string{"b@example.com"}, doc.Identity.Emails)
	assert.Equal(t, first.ID, store.keys["email:b@example.com"])
}

func TestUpsertCandidateHashFallback(t *testing.T) {
	// 无电话无邮箱时只剩内容哈希键，同一份内容两次入库命中同一实体
	store := newFakeCandidateStore()
	svc := NewCandidateService(store, nil, nil, nil, nil)
	ctx := context.Background()

	raw := []byte(`{"identity": {"name": "匿名候选人"}, "summary": "后端工程师"}`)
	first, err := svc.UpsertCandidate(ctx, raw)
	require.NoError(t, err)
	second, err := svc.UpsertCandidate(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Created)
}

func TestUpsertCandidateStoresDedupeKeys(t *testing.T) {
	store := newFakeCandidateStore()
	svc := NewCandidateService(store, nil, nil, nil, nil)

	res, err := svc.UpsertCandidate(context.Background(), []byte(`{
		"identity": {"phones": ["13800001111"], "emails": ["A@Example.COM"]}
	}`))
	require.NoError(t, err)

	var doc types.CanonicalCandidate
	require.NoError(t, json.Unmarshal(store.docs[res.ID], &doc))
	// 身份键写回文档：电话归一化为纯数字，邮箱小写；有身份键时不存哈希键
	assert.Contains(t, doc.Dedupe.Keys, "phone:13800001111")
	assert.Contains(t, doc.Dedupe.Keys, "email:a@example.com")
	for _, k := range doc.Dedupe.Keys {
		assert.NotContains(t, k, "hash:")
	}
	assert.NotEmpty(t, doc.Meta.HashSHA256)
}

func TestUpsertCandidateAttachesEmbeddings(t *testing.T) {
	store := newFakeCandidateStore()
	vectors := &countingVectorCache{}
	svc := NewCandidateService(store, vectors, nil, nil, nil)

	res, err := svc.UpsertCandidate(context.Background(), []byte(`{
		"identity": {"emails": ["a@example.com"]},
		"summary": "五年Go开发经验",
		"skills": [{"name": "Go"}, {"name": "Kubernetes"}]
	}`))
	require.NoError(t, err)

	// 技能文本与概述各计算一次
	require.Len(t, vectors.texts, 2)
	assert.Equal(t, "Go Kubernetes", vectors.texts[0])
	assert.Equal(t, "五年Go开发经验", vectors.texts[1])

	var doc types.CanonicalCandidate
	require.NoError(t, json.Unmarshal(store.docs[res.ID], &doc))
	assert.NotEmpty(t, doc.Emb.SkillsVec)
	assert.NotEmpty(t, doc.Emb.SummaryVec)
}

func TestUpsertCandidatePublishesScoreEvent(t *testing.T) {
	store := newFakeCandidateStore()
	events := &recordingPublisher{}
	svc := NewCandidateService(store, nil, nil, events, nil)

	res, err := svc.UpsertCandidate(context.Background(), []byte(`{
		"identity": {"emails": ["a@example.com"]}
	}`))
	require.NoError(t, err)

	require.Len(t, events.msgs, 1)
	msg := events.msgs[0]
	assert.Equal(t, dedup.KindCandidate, msg.EntityKind)
	assert.Equal(t, res.ID, msg.EntityID)
	assert.Equal(t, "upsert", msg.Reason)
	assert.NotEmpty(t, msg.MessageID)
}

func TestUpsertCandidateRejectsNonObject(t *testing.T) {
	svc := NewCandidateService(newFakeCandidateStore(), nil, nil, nil, nil)
	_, err := svc.UpsertCandidate(context.Background(), []byte(`[1, 2, 3]`))
	assert.Error(t, err)
}
