package service

import (
	"context"
	"errors"
	"log"

	"github.com/DoLong3304/TikiWebScraping/internal/repository"
)

// ==================== 运行计划 ====================

// 每段错误桶的固定键
const (
	StageCategories     = "categories"
	StageListings       = "listings"
	StageProductsEnrich = "products_enrich"
	StageReviews        = "reviews"
	StageSellers        = "sellers"
)

// RunPlan 声明式运行计划，CLI / HTTP / 定时任务共用的唯一入参
type RunPlan struct {
	CategoriesListings bool   `json:"categories_listings"`
	Products           bool   `json:"products"`
	Reviews            bool   `json:"reviews"`
	Sellers            bool   `json:"sellers"`
	Mode               string `json:"mode"` // scrape | update

	ProductIDsOverride []int64 `json:"product_ids_override,omitempty"` // 指定则跳过发现，直接用这批 ID
	StartIndexReviews  int     `json:"start_index_reviews"`
	ParentCategoryID   int64   `json:"parent_category_id"`
}

// DefaultRunPlan 四段全开的 scrape 计划
func DefaultRunPlan(parentCategoryID int64) RunPlan {
	return RunPlan{
		CategoriesListings: true,
		Products:           true,
		Reviews:            true,
		Sellers:            true,
		Mode:               ModeScrape,
		ParentCategoryID:   parentCategoryID,
	}
}

// Validate 计划校验，任何网络调用之前同步失败
func (p RunPlan) Validate() error {
	if p.Mode != ModeScrape && p.Mode != ModeUpdate {
		return errors.New("mode 只能是 scrape 或 update")
	}
	if !p.CategoriesListings && !p.Products && !p.Reviews && !p.Sellers {
		return errors.New("至少要选一个抓取段")
	}
	if p.ParentCategoryID <= 0 {
		return errors.New("parent_category_id 必须是正的类目 ID")
	}
	requiresSource := p.Mode == ModeScrape && (p.Products || p.Reviews || p.Sellers)
	if requiresSource && !p.CategoriesListings && len(p.ProductIDsOverride) == 0 {
		return errors.New("scrape 模式需要选中 categories_listings 或显式给出 product_ids_override 才能发现新商品")
	}
	if p.StartIndexReviews < 0 {
		return errors.New("start_index_reviews 不能为负")
	}
	return nil
}

// RunResult 一次运行的汇总结果
type RunResult struct {
	Errors              map[string][]string `json:"errors"`
	FailedProductIDs    []int64             `json:"failed_product_ids"`
	FailedReviewIDs     []int64             `json:"failed_review_ids"`
	ProcessedProductIDs []int64             `json:"processed_product_ids"`
}

// IssueCount 所有段的问题总数
func (r *RunResult) IssueCount() int {
	total := 0
	for _, errs := range r.Errors {
		total += len(errs)
	}
	return total
}

// ==================== 编排服务 ====================

// PipelineService 抓取编排：校验计划 -> 按计划跑段 -> 汇总日志。
// 校验错误同步返回，其余问题都进错误桶，运行总会跑完
type PipelineService struct {
	extract     *ExtractService
	transform   *TransformService
	productRepo repository.ProductRepository
}

// NewPipelineService 创建编排服务
func NewPipelineService(extract *ExtractService, transform *TransformService, productRepo repository.ProductRepository) *PipelineService {
	return &PipelineService{
		extract:     extract,
		transform:   transform,
		productRepo: productRepo,
	}
}

// ExecutePlan 单一入口：校验并执行整个计划。
// 返回的 error 只会是计划校验错误；抓取途中的问题全部落在结果里
func (s *PipelineService) ExecutePlan(ctx context.Context, plan RunPlan) (*RunResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	result := &RunResult{
		Errors: map[string][]string{
			StageCategories:     {},
			StageListings:       {},
			StageProductsEnrich: {},
			StageReviews:        {},
			StageSellers:        {},
		},
	}

	if stopped(ctx) {
		log.Printf("[Pipeline] 开跑前就收到停止请求")
		return result, nil
	}

	existingIDs := map[int64]bool{}
	existingLoaded := false
	var productIDs []int64

	if plan.CategoriesListings {
		leafIDs, errs := s.extract.SyncCategories(ctx, plan.ParentCategoryID)
		result.Errors[StageCategories] = append(result.Errors[StageCategories], errs...)
		if len(leafIDs) == 0 {
			result.Errors[StageCategories] = append(result.Errors[StageCategories], "类目段没有返回任何叶子类目")
		}
		if stopped(ctx) {
			s.logSummary(result)
			return result, nil
		}

		// 新旧判定必须基于 listing 入库前的快照，否则本轮刚发现的
		// 商品会被误判成已有商品，scrape 模式的详情段就一个都不处理了
		existingIDs = s.loadExistingProductIDs(ctx, result, StageListings)
		existingLoaded = true
		var listingErrs []string
		productIDs, listingErrs = s.extract.SyncListings(ctx, leafIDs, plan.Mode == ModeUpdate, existingIDs)
		result.Errors[StageListings] = append(result.Errors[StageListings], listingErrs...)
		if plan.Mode == ModeUpdate && len(productIDs) == 0 {
			result.Errors[StageListings] = append(result.Errors[StageListings], "update 模式下 listing 段没有命中任何已有商品")
		}
		if stopped(ctx) {
			s.logSummary(result)
			return result, nil
		}
	} else if len(plan.ProductIDsOverride) > 0 {
		seen := make(map[int64]bool, len(plan.ProductIDsOverride))
		for _, pid := range plan.ProductIDsOverride {
			if !seen[pid] {
				seen[pid] = true
				productIDs = append(productIDs, pid)
			}
		}
	} else {
		productIDs = s.listStoredProductIDs(ctx, result, StageProductsEnrich)
	}

	if !existingLoaded {
		existingIDs = s.loadExistingProductIDs(ctx, result, StageProductsEnrich)
	}

	if plan.Products {
		enrich := s.extract.EnrichProducts(ctx, productIDs, plan.Mode, existingIDs)
		result.Errors[StageProductsEnrich] = append(result.Errors[StageProductsEnrich], enrich.Errors...)
		result.FailedProductIDs = enrich.FailedIDs
		if stopped(ctx) {
			s.logSummary(result)
			return result, nil
		}
	} else {
		log.Printf("[Pipeline] 按计划跳过详情补全段")
	}

	if plan.Reviews {
		failed, errs := s.extract.SyncReviews(ctx, productIDs, plan.StartIndexReviews)
		result.Errors[StageReviews] = append(result.Errors[StageReviews], errs...)
		result.FailedReviewIDs = failed
		if stopped(ctx) {
			s.logSummary(result)
			return result, nil
		}
	} else {
		log.Printf("[Pipeline] 按计划跳过评论段")
	}

	if plan.Sellers {
		errs := s.extract.RefreshSellers(ctx)
		result.Errors[StageSellers] = append(result.Errors[StageSellers], errs...)
	} else {
		log.Printf("[Pipeline] 按计划跳过卖家刷新段")
	}

	result.ProcessedProductIDs = productIDs
	s.logSummary(result)
	return result, nil
}

// RetryFailedReviews 只重抓失败过的评论商品：update 模式、仅评论段、ID 直给
func (s *PipelineService) RetryFailedReviews(ctx context.Context, failedIDs []int64, parentCategoryID int64) (*RunResult, error) {
	if len(failedIDs) == 0 {
		return nil, errors.New("没有可重试的失败评论商品 ID")
	}
	plan := RunPlan{
		Reviews:            true,
		Mode:               ModeUpdate,
		ProductIDsOverride: failedIDs,
		ParentCategoryID:   parentCategoryID,
	}
	return s.ExecutePlan(ctx, plan)
}

// RunTransform 清洗入口，空计划等于全量
func (s *PipelineService) RunTransform(ctx context.Context, plan TransformPlan) (*TransformResult, error) {
	return s.transform.RunWithPlan(ctx, plan)
}

func (s *PipelineService) loadExistingProductIDs(ctx context.Context, result *RunResult, stage string) map[int64]bool {
	ids, err := s.productRepo.ListIDs(ctx)
	if err != nil {
		result.Errors[stage] = append(result.Errors[stage], "读取已有商品 ID 失败: "+err.Error())
		return map[int64]bool{}
	}
	existing := make(map[int64]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}
	return existing
}

func (s *PipelineService) listStoredProductIDs(ctx context.Context, result *RunResult, stage string) []int64 {
	ids, err := s.productRepo.ListIDs(ctx)
	if err != nil {
		result.Errors[stage] = append(result.Errors[stage], "读取已有商品 ID 失败: "+err.Error())
		return nil
	}
	return ids
}

// logSummary 运行结束时每段一行的问题概览，只看日志也能知道哪段出了事
func (s *PipelineService) logSummary(result *RunResult) {
	if result.IssueCount() == 0 {
		log.Printf("[SUMMARY] 本次运行各段均无记录在案的问题")
		return
	}
	log.Printf("[SUMMARY] 本次运行有问题，分段概览：")
	for _, stage := range []string{StageCategories, StageListings, StageProductsEnrich, StageReviews, StageSellers} {
		errs := result.Errors[stage]
		if len(errs) == 0 {
			log.Printf("[SUMMARY] %s: OK", stage)
			continue
		}
		log.Printf("[SUMMARY] %s: %d 个问题", stage, len(errs))
		for i, msg := range errs {
			if i >= 5 {
				break
			}
			log.Printf("[SUMMARY]   (%d) %s", i+1, msg)
		}
	}
}
