package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hyperrecruit/internal/config"
	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/storage/models"
	"hyperrecruit/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("hyperrecruit/storage/mysql")

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.CanonicalCandidate{},
		&models.CanonicalJob{},
		&models.DedupeKey{},
		&models.MatchScore{},
		&models.EmbeddingCacheEntry{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// upsertEntityByKeys 在单个事务内完成去重键解析与文档写入。
// 解析按键优先级逐层查询；未命中时以新ID插入全部键，
// (entity_kind, key_value) 上的唯一索引使并发写入在键表上串行化：
// 竞争失败方的 ON CONFLICT DO NOTHING 插入零行生效，
// 转而查出胜出方的实体ID并改走替换路径，不会产生重复实体。
// write 回调负责写入实体行本身，created 表示本次是否新建实体。
func (m *MySQL) upsertEntityByKeys(ctx context.Context, kind, newID string, ks dedup.KeySet, write func(tx *gorm.DB, id string, created bool) error) (string, bool, error) {
	ctx, span := mysqlTracer.Start(ctx, "UpsertEntityByKeys", trace.WithAttributes(
		attribute.String("dedupe.entity_kind", kind),
	))
	defer span.End()

	var (
		entityID string
		created  bool
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := func(ctx context.Context, key string) (string, error) {
			var rec models.DedupeKey
			e := tx.Where("entity_kind = ? AND key_value = ?", kind, key).First(&rec).Error
			if errors.Is(e, gorm.ErrRecordNotFound) {
				return "", nil
			}
			if e != nil {
				return "", e
			}
			return rec.EntityID, nil
		}

		owner, err := dedup.ResolveOwner(ctx, ks.Tiers, lookup)
		if err != nil {
			return fmt.Errorf("查询去重键失败: %w", err)
		}

		if owner == "" {
			// 未命中已有实体，尝试以新ID占有全部身份键
			for _, k := range ks.Stored {
				rec := models.DedupeKey{
					EntityKind: kind,
					KeyValue:   k.Value,
					Tier:       k.Tier,
					EntityID:   newID,
				}
				res := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "key_value"}},
					DoNothing: true,
				}).Create(&rec)
				if res.Error != nil {
					return fmt.Errorf("写入去重键失败: %w", res.Error)
				}
				if res.RowsAffected == 0 {
					// 键已被占有：并发写入方先到一步
					cur, err := lookup(ctx, k.Value)
					if err != nil {
						return err
					}
					if cur != "" && cur != newID {
						owner = cur
						break
					}
				}
			}
			if owner != "" {
				// 输掉竞争，把已占有的键让渡给胜出方
				if err := tx.Model(&models.DedupeKey{}).
					Where("entity_kind = ? AND entity_id = ?", kind, newID).
					Update("entity_id", owner).Error; err != nil {
					return fmt.Errorf("迁移去重键失败: %w", err)
				}
			}
		}

		entityID = newID
		created = owner == ""
		if owner != "" {
			entityID = owner
			// 把本次文档的键全部指向已有实体，邮箱变更等场景下补充新键
			for _, k := range ks.Stored {
				rec := models.DedupeKey{
					EntityKind: kind,
					KeyValue:   k.Value,
					Tier:       k.Tier,
					EntityID:   entityID,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "key_value"}},
					DoUpdates: clause.AssignmentColumns([]string{"entity_id", "tier"}),
				}).Create(&rec).Error; err != nil {
					return fmt.Errorf("更新去重键失败: %w", err)
				}
			}
		}

		return write(tx, entityID, created)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, err
	}

	span.SetAttributes(
		attribute.String("dedupe.entity_id", entityID),
		attribute.Bool("dedupe.created", created),
	)
	return entityID, created, nil
}

// UpsertCanonicalCandidate 解析候选人归属并写入规范化文档。
// 命中已有候选人时整体替换文档，否则以newID新建。
// 返回最终的存储ID以及本次是否新建。
func (m *MySQL) UpsertCanonicalCandidate(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, fullName string) (string, bool, error) {
	return m.upsertEntityByKeys(ctx, dedup.KindCandidate, newID, ks, func(tx *gorm.DB, id string, created bool) error {
		rec := models.CanonicalCandidate{
			CandidateID: id,
			FullName:    fullName,
			Doc:         doc,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "doc", "updated_at"}),
		}).Create(&rec).Error; err != nil {
			return fmt.Errorf("写入候选人文档失败: %w", err)
		}
		return nil
	})
}

// UpsertCanonicalJob 解析岗位归属并写入规范化文档
func (m *MySQL) UpsertCanonicalJob(ctx context.Context, newID string, ks dedup.KeySet, doc []byte, companyName, jobTitle string) (string, bool, error) {
	return m.upsertEntityByKeys(ctx, dedup.KindJob, newID, ks, func(tx *gorm.DB, id string, created bool) error {
		rec := models.CanonicalJob{
			JobID:       id,
			CompanyName: companyName,
			JobTitle:    jobTitle,
			Doc:         doc,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"company_name", "job_title", "doc", "updated_at"}),
		}).Create(&rec).Error; err != nil {
			return fmt.Errorf("写入岗位文档失败: %w", err)
		}
		return nil
	})
}

// GetCandidate 按存储ID读取候选人文档，未找到时错误满足 errors.Is(err, gorm.ErrRecordNotFound)
func (m *MySQL) GetCandidate(ctx context.Context, candidateID string) (*types.CanonicalCandidate, error) {
	var rec models.CanonicalCandidate
	if err := m.db.WithContext(ctx).First(&rec, "candidate_id = ?", candidateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("候选人 %s 不存在: %w", candidateID, err)
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	doc, err := types.DecodeCandidate(rec.Doc)
	if err != nil {
		return nil, fmt.Errorf("解码候选人文档失败: %w", err)
	}
	return doc, nil
}

// GetJob 按存储ID读取岗位文档，未找到时错误满足 errors.Is(err, gorm.ErrRecordNotFound)
func (m *MySQL) GetJob(ctx context.Context, jobID string) (*types.CanonicalJob, error) {
	var rec models.CanonicalJob
	if err := m.db.WithContext(ctx).First(&rec, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("岗位 %s 不存在: %w", jobID, err)
		}
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}
	doc, err := types.DecodeJob(rec.Doc)
	if err != nil {
		return nil, fmt.Errorf("解码岗位文档失败: %w", err)
	}
	return doc, nil
}

// ListCandidates 列出全部候选人。
// 解码失败的记录跳过并返回其余记录，批量评分不因单条脏数据中断。
func (m *MySQL) ListCandidates(ctx context.Context) ([]types.StoredCandidate, error) {
	var recs []models.CanonicalCandidate
	if err := m.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("列出候选人失败: %w", err)
	}
	out := make([]types.StoredCandidate, 0, len(recs))
	for _, rec := range recs {
		doc, err := types.DecodeCandidate(rec.Doc)
		if err != nil {
			log.Printf("跳过无法解码的候选人文档: id=%s err=%v", rec.CandidateID, err)
			continue
		}
		out = append(out, types.StoredCandidate{ID: rec.CandidateID, Doc: doc})
	}
	return out, nil
}

// ListJobs 列出全部岗位
func (m *MySQL) ListJobs(ctx context.Context) ([]types.StoredJob, error) {
	var recs []models.CanonicalJob
	if err := m.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("列出岗位失败: %w", err)
	}
	out := make([]types.StoredJob, 0, len(recs))
	for _, rec := range recs {
		doc, err := types.DecodeJob(rec.Doc)
		if err != nil {
			log.Printf("跳过无法解码的岗位文档: id=%s err=%v", rec.JobID, err)
			continue
		}
		out = append(out, types.StoredJob{ID: rec.JobID, Doc: doc})
	}
	return out, nil
}

// UpsertMatchScore 写入或覆盖一条评分记录，(job_id, candidate_id) 上幂等
func (m *MySQL) UpsertMatchScore(ctx context.Context, rec *types.ScoreRecordView) error {
	row := models.MatchScore{
		JobID:         rec.JobID,
		CandidateID:   rec.CandidateID,
		FinalScore:    rec.FinalScore,
		SkillScore:    rec.Components.Skill,
		SemanticScore: rec.Components.Semantic,
		Version:       rec.Version,
		ScoredAt:      rec.ScoredAt,
	}
	if err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"final_score", "skill_score", "semantic_score", "version", "scored_at", "updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("写入评分记录失败: %w", err)
	}
	return nil
}

// ListScoresByJob 列出某岗位的评分记录，按最终分降序
func (m *MySQL) ListScoresByJob(ctx context.Context, jobID string, limit int) ([]types.ScoreRecordView, error) {
	query := m.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("final_score DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.MatchScore
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询评分记录失败: %w", err)
	}

	out := make([]types.ScoreRecordView, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.ScoreRecordView{
			JobID:       row.JobID,
			CandidateID: row.CandidateID,
			FinalScore:  row.FinalScore,
			Components: types.ScoreComponents{
				Skill:    row.SkillScore,
				Semantic: row.SemanticScore,
			},
			Version:  row.Version,
			ScoredAt: row.ScoredAt,
		})
	}
	return out, nil
}

// GetCachedVector 读取持久层向量缓存，未命中时错误满足 errors.Is(err, gorm.ErrRecordNotFound)
func (m *MySQL) GetCachedVector(ctx context.Context, model, textSHA string) ([]float64, error) {
	var rec models.EmbeddingCacheEntry
	err := m.db.WithContext(ctx).
		Where("model = ? AND text_sha256 = ?", model, textSHA).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询向量缓存失败: %w", err)
	}
	vec, err := models.VectorFromJSON(rec.Vector)
	if err != nil {
		return nil, fmt.Errorf("反序列化缓存向量失败: %w", err)
	}
	return vec, nil
}

// PutCachedVector 写入持久层向量缓存。
// 条目不可变，并发写入同一(model, hash)时保留先写入的向量。
func (m *MySQL) PutCachedVector(ctx context.Context, model, textSHA string, vec []float64) error {
	vectorJSON, err := models.VectorToJSON(vec)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}
	rec := models.EmbeddingCacheEntry{
		Model:      model,
		TextSHA256: textSHA,
		Vector:     vectorJSON,
	}
	if err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model"}, {Name: "text_sha256"}},
		DoNothing: true,
	}).Create(&rec).Error; err != nil {
		return fmt.Errorf("写入向量缓存失败: %w", err)
	}
	return nil
}
