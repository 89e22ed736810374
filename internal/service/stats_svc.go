package service

import (
	"context"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/DoLong3304/TikiWebScraping/internal/repository"
	"github.com/DoLong3304/TikiWebScraping/internal/tiki"
)

// probeConcurrency 远端估算的并发探测上限
const probeConcurrency = 4

// ==================== 统计服务 ====================

// StorageStats 原始表精确行数
type StorageStats struct {
	Categories int64 `json:"categories"`
	Products   int64 `json:"products"`
	Sellers    int64 `json:"sellers"`
	Reviews    int64 `json:"reviews"`
}

// RemoteEstimate 远端商品量估算（按叶子类目 listing 首页的 paging.total 求和）
type RemoteEstimate struct {
	CategoriesProbed int  `json:"categories_probed"`
	EstimatedTotal   int  `json:"estimated_total"`
	FailedProbes     int  `json:"failed_probes"`
	Truncated        bool `json:"truncated"` // 叶子类目多于探测上限时为真
}

// StatsService 库内计数 + 远端估算 + 连通性探测
type StatsService struct {
	fetcher      tiki.Fetcher
	db           *gorm.DB
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	sellerRepo   repository.SellerRepository
	reviewRepo   repository.ReviewRepository

	categoryLimit int
}

// NewStatsService 创建统计服务。categoryLimit 限制远端估算探测的叶子类目数
func NewStatsService(
	fetcher tiki.Fetcher,
	db *gorm.DB,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	sellerRepo repository.SellerRepository,
	reviewRepo repository.ReviewRepository,
	categoryLimit int,
) *StatsService {
	return &StatsService{
		fetcher:       fetcher,
		db:            db,
		categoryRepo:  categoryRepo,
		productRepo:   productRepo,
		sellerRepo:    sellerRepo,
		reviewRepo:    reviewRepo,
		categoryLimit: categoryLimit,
	}
}

// StorageCounts 四张原始表的精确行数
func (s *StatsService) StorageCounts(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}
	var err error
	if stats.Categories, err = s.categoryRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Products, err = s.productRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Sellers, err = s.sellerRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Reviews, err = s.reviewRepo.Count(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// EstimateRemote 对一批叶子类目并发探测 listing 首页（并发上限 4），
// 把 paging.total 加总作为远端商品量的粗估。抓取主链路之外的尽力而为
func (s *StatsService) EstimateRemote(ctx context.Context) (*RemoteEstimate, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var leafIDs []int64
	for _, c := range categories {
		if c.IsLeaf {
			leafIDs = append(leafIDs, c.ID)
		}
	}
	estimate := &RemoteEstimate{}
	if s.categoryLimit > 0 && len(leafIDs) > s.categoryLimit {
		leafIDs = leafIDs[:s.categoryLimit]
		estimate.Truncated = true
	}
	estimate.CategoriesProbed = len(leafIDs)
	if len(leafIDs) == 0 {
		return estimate, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, probeConcurrency)

	for _, cid := range leafIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(cid int64) {
			defer wg.Done()
			defer func() { <-sem }()
			page, err := s.fetcher.FetchListingPage(ctx, cid, 1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[Stats] 类目 %d 探测失败: %v", cid, err)
				estimate.FailedProbes++
				return
			}
			if page != nil && page.Paging != nil {
				estimate.EstimatedTotal += page.Paging.Total
			}
		}(cid)
	}
	wg.Wait()
	return estimate, nil
}

// PingDatabase 数据库连通性探测
func (s *StatsService) PingDatabase(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingTiki Tiki 接口连通性探测（拉一次根类目）
func (s *StatsService) PingTiki(ctx context.Context, parentCategoryID int64) error {
	_, err := s.fetcher.FetchCategories(ctx, parentCategoryID)
	return err
}
