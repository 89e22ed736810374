package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DoLong3304/TikiWebScraping/internal/service"
)

// ==================== CrawlTask 定时抓取任务 ====================

// CrawlTask 定时抓取任务
// 同步策略：
//   - 全量 scrape：每日凌晨 2 点，抓完接清洗
//   - update 刷新：每 6 小时，只刷已有商品
//
// 同一时刻最多一个运行在跑，撞上直接跳过本轮
type CrawlTask struct {
	pipeline *service.PipelineService
	cron     *cron.Cron

	parentCategoryID int64

	mu      sync.Mutex
	running bool
}

// NewCrawlTask 创建抓取任务
func NewCrawlTask(pipeline *service.PipelineService, parentCategoryID int64) *CrawlTask {
	return &CrawlTask{
		pipeline:         pipeline,
		cron:             cron.New(cron.WithSeconds()),
		parentCategoryID: parentCategoryID,
	}
}

// Start 启动定时任务
func (t *CrawlTask) Start() {
	// 全量 scrape：每日凌晨 2 点
	_, _ = t.cron.AddFunc("0 0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Hour)
		defer cancel()
		log.Println("[CrawlTask] 开始每日全量抓取...")
		t.runPlan(ctx, service.DefaultRunPlan(t.parentCategoryID), true)
	})

	// update 刷新：每 6 小时
	_, _ = t.cron.AddFunc("0 0 */6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
		defer cancel()
		plan := service.DefaultRunPlan(t.parentCategoryID)
		plan.Mode = service.ModeUpdate
		plan.Sellers = false
		t.runPlan(ctx, plan, false)
	})

	t.cron.Start()
	log.Println("[CrawlTask] 已启动 (全量每日2点/update每6小时)")
}

// Stop 停止任务，等在跑的 cron 回调退出
func (t *CrawlTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CrawlTask] 已停止")
}

// RunNow 手动触发一次完整抓取 + 清洗
func (t *CrawlTask) RunNow(ctx context.Context) {
	t.runPlan(ctx, service.DefaultRunPlan(t.parentCategoryID), true)
}

// runPlan 执行一次计划，runTransform 为真时抓完接全量清洗
func (t *CrawlTask) runPlan(ctx context.Context, plan service.RunPlan, runTransform bool) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		log.Println("[CrawlTask] 上一轮还没跑完，本轮跳过")
		return
	}
	t.running = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	start := time.Now()
	result, err := t.pipeline.ExecutePlan(ctx, plan)
	if err != nil {
		log.Printf("[CrawlTask] 计划校验失败: %v", err)
		return
	}
	log.Printf("[CrawlTask] 抓取完成，耗时 %v，问题 %d 个", time.Since(start), result.IssueCount())

	if !runTransform {
		return
	}
	transformResult, err := t.pipeline.RunTransform(ctx, service.FullTransformPlan())
	if err != nil {
		log.Printf("[CrawlTask] 清洗失败: %v", err)
		return
	}
	log.Printf("[CrawlTask] 清洗完成: dim_category=%d, dim_seller=%d, dim_product=%d, ingredients=%d, product_daily=%d, seller_daily=%d, review_clean=%d, review_daily=%d, review_summary=%d",
		transformResult.DimCategoryRows,
		transformResult.DimSellerRows,
		transformResult.DimProductRows,
		transformResult.ProductIngredientRows,
		transformResult.FactProductDailyRows,
		transformResult.FactSellerDailyRows,
		transformResult.ReviewCleanRows,
		transformResult.ReviewDailyRows,
		transformResult.ReviewSummaryRows)
}
