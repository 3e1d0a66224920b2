package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"hyperrecruit/internal/types"
)

// 去重键优先级层级。数字越小优先级越高，
// 解析时按层级顺序查询，某一层命中后不再查询后续层级。
const (
	TierPrimary     = 1 // 候选人: phone；岗位: company+title
	TierSecondary   = 2 // 候选人: email；岗位: company
	TierContentHash = 3 // 内容哈希兜底
)

// 实体类别，写入dedupe_keys表的entity_kind列
const (
	KindCandidate = "candidate"
	KindJob       = "job"
)

// Key 一个归一化的去重键及其优先级层
type Key struct {
	Value string
	Tier  int
}

// KeySet 一个实体的全部去重键。
// Stored 是随文档持久化的键（写入dedupe_keys表和文档dedupe.keys字段）；
// Tiers 是解析归属时按优先级逐层查询的键，层内按原始顺序逐个查找。
// 两者不完全一致：哈希键仅在没有任何身份键时才持久化，
// 但解析时哈希层总是作为最后一层参与查询。
type KeySet struct {
	Stored []Key
	Tiers  [][]string
}

// StoredValues 返回持久化键的字符串形式，写入文档的dedupe.keys
func (ks KeySet) StoredValues() []string {
	values := make([]string, 0, len(ks.Stored))
	for _, k := range ks.Stored {
		values = append(values, k.Value)
	}
	return values
}

// NormalizePhone 电话归一化：仅保留数字字符
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContentHash 对原始文档内容取SHA-256十六进制摘要，兜底键使用
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CandidateKeys 派生候选人的去重键。
// 优先级: phone(数字归一化) > email(小写) > hash。
// 所有电话键和邮箱键都会持久化；哈希键仅在两者皆空时持久化。
// contentHash 取文档meta中的哈希，缺失时由调用方传入原始内容的哈希。
func CandidateKeys(c *types.CanonicalCandidate, contentHash string) KeySet {
	var ks KeySet

	var phoneKeys []string
	for _, phone := range c.Identity.Phones {
		digits := NormalizePhone(phone)
		if digits == "" {
			continue
		}
		key := "phone:" + digits
		if containsKey(phoneKeys, key) {
			continue
		}
		phoneKeys = append(phoneKeys, key)
		ks.Stored = append(ks.Stored, Key{Value: key, Tier: TierPrimary})
	}

	var emailKeys []string
	for _, email := range c.Identity.Emails {
		addr := strings.ToLower(strings.TrimSpace(email))
		if addr == "" {
			continue
		}
		key := "email:" + addr
		if containsKey(emailKeys, key) {
			continue
		}
		emailKeys = append(emailKeys, key)
		ks.Stored = append(ks.Stored, Key{Value: key, Tier: TierSecondary})
	}

	hashKey := "hash:" + contentHash
	if len(ks.Stored) == 0 {
		ks.Stored = append(ks.Stored, Key{Value: hashKey, Tier: TierContentHash})
	}

	if len(phoneKeys) > 0 {
		ks.Tiers = append(ks.Tiers, phoneKeys)
	}
	if len(emailKeys) > 0 {
		ks.Tiers = append(ks.Tiers, emailKeys)
	}
	// 哈希层始终参与解析，即使未持久化
	ks.Tiers = append(ks.Tiers, []string{hashKey})
	return ks
}

// JobKeys 派生岗位的去重键。
// 优先级: company+title > company > hash，公司名与标题小写去空白。
func JobKeys(j *types.CanonicalJob, contentHash string) KeySet {
	var ks KeySet

	companyName := strings.ToLower(strings.TrimSpace(j.Company.Name))
	jobTitle := strings.ToLower(strings.TrimSpace(j.Details.Title))

	var primary, secondary []string
	if companyName != "" && jobTitle != "" {
		key := "company_title:" + companyName + "_" + jobTitle
		primary = append(primary, key)
		ks.Stored = append(ks.Stored, Key{Value: key, Tier: TierPrimary})
	}
	if companyName != "" {
		key := "company:" + companyName
		secondary = append(secondary, key)
		ks.Stored = append(ks.Stored, Key{Value: key, Tier: TierSecondary})
	}

	hashKey := "hash:" + contentHash
	if len(ks.Stored) == 0 {
		ks.Stored = append(ks.Stored, Key{Value: hashKey, Tier: TierContentHash})
	}

	if len(primary) > 0 {
		ks.Tiers = append(ks.Tiers, primary)
	}
	if len(secondary) > 0 {
		ks.Tiers = append(ks.Tiers, secondary)
	}
	ks.Tiers = append(ks.Tiers, []string{hashKey})
	return ks
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
