package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DoLong3304/TikiWebScraping/internal/service"
)

// ==================== StatsController 统计面 ====================

// StatsController 库内计数、远端估算、连通性探测
type StatsController struct {
	stats            *service.StatsService
	parentCategoryID int64
}

// NewStatsController 创建控制器
func NewStatsController(stats *service.StatsService, parentCategoryID int64) *StatsController {
	return &StatsController{stats: stats, parentCategoryID: parentCategoryID}
}

// Get 四张原始表的精确行数，estimate=true 时附带远端估算
func (h *StatsController) Get(c *gin.Context) {
	counts, err := h.stats.StorageCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"storage": counts}

	if estimate, _ := strconv.ParseBool(c.Query("estimate")); estimate {
		remote, err := h.stats.EstimateRemote(c.Request.Context())
		if err != nil {
			resp["remote_error"] = err.Error()
		} else {
			resp["remote"] = remote
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Health 数据库与 Tiki 接口的连通性探测
func (h *StatsController) Health(c *gin.Context) {
	resp := gin.H{"database": "ok", "tiki": "ok"}
	status := http.StatusOK
	if err := h.stats.PingDatabase(c.Request.Context()); err != nil {
		resp["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.stats.PingTiki(c.Request.Context(), h.parentCategoryID); err != nil {
		resp["tiki"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
