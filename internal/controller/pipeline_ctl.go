package controller

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/DoLong3304/TikiWebScraping/internal/service"
)

// ==================== PipelineController 抓取控制面 ====================

// PipelineController 把编排服务暴露成 HTTP 控制面：
// 异步起跑（同时只允许一个运行）、协作式停止、状态查询、失败评论重试
type PipelineController struct {
	pipeline *service.PipelineService

	parentCategoryID int64

	mu         sync.Mutex
	running    bool
	cancelRun  context.CancelFunc
	lastResult *service.RunResult
	lastErr    string
}

// NewPipelineController 创建控制器
func NewPipelineController(pipeline *service.PipelineService, parentCategoryID int64) *PipelineController {
	return &PipelineController{
		pipeline:         pipeline,
		parentCategoryID: parentCategoryID,
	}
}

// Run 异步启动一次抓取，已有运行在跑时返回 409
func (h *PipelineController) Run(c *gin.Context) {
	plan := service.DefaultRunPlan(h.parentCategoryID)
	if err := c.ShouldBindJSON(&plan); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if plan.ParentCategoryID == 0 {
		plan.ParentCategoryID = h.parentCategoryID
	}
	if err := plan.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "已有抓取运行在进行中"})
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancelRun = cancel
	h.mu.Unlock()

	go h.execute(ctx, cancel, plan)
	c.JSON(http.StatusOK, gin.H{"message": "运行已启动"})
}

// Stop 协作式停止当前运行：只是不再发起新工作，在途请求自然结束
func (h *PipelineController) Stop(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running || h.cancelRun == nil {
		c.JSON(http.StatusOK, gin.H{"message": "当前没有运行"})
		return
	}
	h.cancelRun()
	c.JSON(http.StatusOK, gin.H{"message": "停止请求已发出"})
}

// Status 当前运行状态和最近一次结果
func (h *PipelineController) Status(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := gin.H{"running": h.running}
	if h.lastResult != nil {
		resp["last_result"] = h.lastResult
		resp["issue_count"] = h.lastResult.IssueCount()
	}
	if h.lastErr != "" {
		resp["last_error"] = h.lastErr
	}
	c.JSON(http.StatusOK, resp)
}

// RetryReviews 重抓上次失败的评论商品；请求体可覆盖 ID 列表
func (h *PipelineController) RetryReviews(c *gin.Context) {
	var req struct {
		ProductIDs []int64 `json:"product_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	ids := req.ProductIDs
	if len(ids) == 0 && h.lastResult != nil {
		ids = h.lastResult.FailedReviewIDs
	}
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "已有抓取运行在进行中"})
		return
	}
	if len(ids) == 0 {
		h.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有可重试的失败评论商品 ID"})
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancelRun = cancel
	h.mu.Unlock()

	plan := service.RunPlan{
		Reviews:            true,
		Mode:               service.ModeUpdate,
		ProductIDsOverride: ids,
		ParentCategoryID:   h.parentCategoryID,
	}
	go h.execute(ctx, cancel, plan)
	c.JSON(http.StatusOK, gin.H{"message": "失败评论重试已启动", "product_ids": ids})
}

func (h *PipelineController) execute(ctx context.Context, cancel context.CancelFunc, plan service.RunPlan) {
	defer cancel()
	result, err := h.pipeline.ExecutePlan(ctx, plan)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	h.cancelRun = nil
	if err != nil {
		h.lastErr = err.Error()
		log.Printf("[PipelineCtl] 运行失败: %v", err)
		return
	}
	h.lastErr = ""
	h.lastResult = result
}
