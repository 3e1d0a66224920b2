package dedup

import "context"

// LookupFunc 查询单个去重键当前归属的实体ID，未命中返回空字符串。
// 由调用方提供，存储层在事务内用数据库查询实现，测试中用内存map实现。
type LookupFunc func(ctx context.Context, key string) (string, error)

// ResolveOwner 按优先级逐层查询已有归属。
// 层内按顺序逐键查找，取第一个命中；某层命中后不再查询后续层级。
// 全部层级未命中时返回空字符串。
//
// 同一个电话被两个真实的人共用时会命中同一实体并静默合并，
// 这是已接受的启发式近似，调用方不做歧义检测。
func ResolveOwner(ctx context.Context, tiers [][]string, lookup LookupFunc) (string, error) {
	for _, tier := range tiers {
		for _, key := range tier {
			owner, err := lookup(ctx, key)
			if err != nil {
				return "", err
			}
			if owner != "" {
				return owner, nil
			}
		}
	}
	return "", nil
}
