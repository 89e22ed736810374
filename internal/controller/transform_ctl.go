package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DoLong3304/TikiWebScraping/internal/service"
)

// ==================== TransformController 清洗控制面 ====================

// TransformController 清洗接口：同步执行，传阶段别名子集，不传等于全量
type TransformController struct {
	pipeline *service.PipelineService
}

// NewTransformController 创建控制器
func NewTransformController(pipeline *service.PipelineService) *TransformController {
	return &TransformController{pipeline: pipeline}
}

// Run 执行清洗
func (h *TransformController) Run(c *gin.Context) {
	var req struct {
		Stages []string `json:"stages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan := service.TransformPlanFromAliases(req.Stages)
	result, err := h.pipeline.RunTransform(c.Request.Context(), plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "partial": result})
		return
	}
	c.JSON(http.StatusOK, result)
}
