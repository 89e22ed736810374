package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DoLong3304/TikiWebScraping/internal/controller"
	"github.com/DoLong3304/TikiWebScraping/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	pipelineCtl *controller.PipelineController,
	transformCtl *controller.TransformController,
	statsCtl *controller.StatsController) {

	api := r.Group("/api")
	{
		// pipeline 抓取运行控制
		pipeline := api.Group("/pipeline")
		{
			// POST /api/pipeline/run
			pipeline.POST("/run", middleware.TriggerCooldown(30*time.Second), pipelineCtl.Run)
			pipeline.POST("/stop", pipelineCtl.Stop)
			pipeline.GET("/status", pipelineCtl.Status)
			pipeline.POST("/retry-reviews", middleware.TriggerCooldown(30*time.Second), pipelineCtl.RetryReviews)
		}
		// transform 清洗
		transform := api.Group("/transform")
		{
			// POST /api/transform/run
			transform.POST("/run", transformCtl.Run)
		}
		// stats 统计与健康
		api.GET("/stats", statsCtl.Get)
		api.GET("/health", statsCtl.Health)
	}
}
