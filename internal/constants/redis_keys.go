package constants

// Redis Key 前缀和格式常量
// 统一命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// EmbeddingModulePrefix 向量模块
	EmbeddingModulePrefix = "emb"

	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyEmbeddingVector 内容寻址向量热层缓存 (HASH: vector + model)
	// 格式: app:emb:vector:{model}:{text_sha256}
	KeyEmbeddingVector = AppPrefix + ":" + EmbeddingModulePrefix + ":" + EntityVector + ":%s:%s"
)
