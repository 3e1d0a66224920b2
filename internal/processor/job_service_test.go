package processor

import (
	"context"
	"encoding/json"
	"testing"

	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobStore 与 fakeCandidateStore 对称的岗位存储
type fakeJobStore struct {
	keys map[string]string
	docs map[string][]byte
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		keys: make(map[string]string),
		docs: make(map[string][]byte),
	}
}

func (s *fakeJobStore) UpsertCanonicalJob(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, companyName, jobTitle string) (string, bool, error) {
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

func TestUpsertJobDedupesByCompanyAndTitle(t *testing.T) {
	store := newFakeJobStore()
	svc := NewJobService(store, nil, nil, nil, nil)
	ctx := context.Background()

	// 公司+岗位名相同（大小写与空白不同）的两次投递命中同一实体
	first, err := svc.UpsertJob(ctx, []byte(`{
		"company": {"name": "Acme Corp"},
		"details": {"title": "Backend Engineer"},
		"description": "初版描述"
	}`))
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.UpsertJob(ctx, []byte(`{
		"company": {"name": "  ACME CORP "},
		"details": {"title": "backend engineer"},
		"description": "更新后的描述"
	}`))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	require.Len(t, store.docs, 1)
	var doc types.CanonicalJob
	require.NoError(t, json.Unmarshal(store.docs[first.ID], &doc))
	assert.Equal(t, "更新后的描述", doc.Description)
}

func TestUpsertJobDefaultsTitleNorm(t *testing.T) {
	store := newFakeJobStore()
	svc := NewJobService(store, nil, nil, nil, nil)

	res, err := svc.UpsertJob(context.Background(), []byte(`{
		"company": {"name": "Acme"},
		"details": {"title": "  Senior Go Developer "}
	}`))
	require.NoError(t, err)

	var doc types.CanonicalJob
	require.NoError(t, json.Unmarshal(store.docs[res.ID], &doc))
	assert.Equal(t, "senior go developer", doc.Details.TitleNorm)
}

func TestUpsertJobAttachesEmbeddings(t *testing.T) {
	store := newFakeJobStore()
	vectors := &countingVectorCache{}
	svc := NewJobService(store, vectors, nil, nil, nil)

	res, err := svc.UpsertJob(context.Background(), []byte(`{
		"company": {"name": "Acme"},
		"details": {"title": "Go Developer"},
		"description": "负责后端服务开发",
		"requirements": {"required_skills": ["Go"], "preferred_skills": ["Redis"]}
	}`))
	require.NoError(t, err)

	// 技能向量来自必备+加分技能，描述向量来自归一化岗位名+描述
	require.Len(t, vectors.texts, 2)
	assert.Equal(t, "Go Redis", vectors.texts[0])
	assert.Equal(t, "go developer 负责后端服务开发", vectors.texts[1])

	var doc types.CanonicalJob
	require.NoError(t, json.Unmarshal(store.docs[res.ID], &doc))
	assert.NotEmpty(t, doc.Emb.SkillsVec)
	assert.NotEmpty(t, doc.Emb.JDVec)
}

func TestUpsertJobPublishesScoreEvent(t *testing.T) {
	store := newFakeJobStore()
	events := &recordingPublisher{}
	svc := NewJobService(store, nil, nil, events, nil)

	res, err := svc.UpsertJob(context.Background(), []byte(`{
		"company": {"name": "Acme"},
		"details": {"title": "Go Developer"}
	}`))
	require.NoError(t, err)

	require.Len(t, events.msgs, 1)
	assert.Equal(t, dedup.KindJob, events.msgs[0].EntityKind)
	assert.Equal(t, res.ID, events.msgs[0].EntityID)
}

func TestUpsertJobStoresDedupeKeys(t *testing.T) {
	store := newFakeJobStore()
	svc := NewJobService(store, nil, nil, nil, nil)

	res, err := svc.UpsertJob(context.Background(), []byte(`{
		"company": {"name": "Acme Corp"},
		"details": {"title": "Backend Engineer"}
	}`))
	require.NoError(t, err)

	var doc types.CanonicalJob
	require.NoError(t, json.Unmarshal(store.docs[res.ID], &doc))
	assert.Contains(t, doc.Dedupe.Keys, "company_title:acme corp_backend engineer")
	assert.Contains(t, doc.Dedupe.Keys, "company:acme corp")
}
