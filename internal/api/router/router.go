package router

import (
	"context"
	"errors"
	"strconv"

	"hyperrecruit/internal/api/handler"
	"hyperrecruit/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"gorm.io/gorm"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config, ingest *handler.IngestHandler, scores *handler.ScoringHandler) {
	// 健康检查不走鉴权
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")

	// 配置了API Key时启用keyauth鉴权
	if cfg.Server.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == cfg.Server.APIKey, nil
			}),
		))
	}

	api.POST("/candidates", func(c context.Context, ctx *app.RequestContext) {
		resp, err := ingest.HandleUpsertCandidate(c, ctx.Request.Body())
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/jobs", func(c context.Context, ctx *app.RequestContext) {
		resp, err := ingest.HandleUpsertJob(c, ctx.Request.Body())
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/scores/compute", func(c context.Context, ctx *app.RequestContext) {
		var req handler.ComputeScoreRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误: " + err.Error()})
			return
		}
		resp, err := scores.HandleComputeScore(c, &req)
		if err != nil {
			ctx.JSON(statusFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/scores/candidates/:candidate_id/jobs", func(c context.Context, ctx *app.RequestContext) {
		candidateID := ctx.Param("candidate_id")
		resp, err := scores.HandleScoreCandidate(c, candidateID)
		if err != nil {
			ctx.JSON(statusFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/scores/jobs/:job_id/candidates", func(c context.Context, ctx *app.RequestContext) {
		jobID := ctx.Param("job_id")
		resp, err := scores.HandleScoreJob(c, jobID)
		if err != nil {
			ctx.JSON(statusFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/scores/jobs/:job_id", func(c context.Context, ctx *app.RequestContext) {
		jobID := ctx.Param("job_id")
		limit, _ := strconv.Atoi(ctx.Query("limit"))
		resp, err := scores.HandleListJobScores(c, jobID, limit)
		if err != nil {
			ctx.JSON(statusFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"job_id": jobID, "scores": resp})
	})
}

// statusFor 把存储层的未找到错误映射为404，其余按500处理
func statusFor(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return consts.StatusNotFound
	}
	return consts.StatusInternalServerError
}
