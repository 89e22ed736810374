package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 触发冷却中间件 ====================

// TriggerCooldown 抓取触发冷却中间件
// 抓取一轮要跑很久，HTTP 触发口按路由加冷却间隔，防止误连点把运行队列打爆
//
// 使用示例:
//
//	pipeline.POST("/run", middleware.TriggerCooldown(30*time.Second), pipelineCtl.Run)
func TriggerCooldown(interval time.Duration) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		lastFired time.Time
	)

	return func(c *gin.Context) {
		mu.Lock()
		now := time.Now()
		if elapsed := now.Sub(lastFired); elapsed < interval {
			remaining := interval - elapsed
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":        429,
				"message":     "触发过于频繁，请稍后再试",
				"retry_after": int(remaining.Seconds()) + 1,
			})
			c.Abort()
			return
		}
		lastFired = now
		mu.Unlock()

		c.Next()
	}
}
