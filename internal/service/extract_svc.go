package service

import (
	"context"
	"fmt"
	"log"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
	"github.com/DoLong3304/TikiWebScraping/internal/repository"
	"github.com/DoLong3304/TikiWebScraping/internal/tiki"
)

// 运行模式
const (
	ModeScrape = "scrape" // 允许新建实体
	ModeUpdate = "update" // 只刷新已知实体
)

// ==================== 抓取引擎 ====================

// ExtractService 四段式抓取引擎：类目 -> listing 发现 -> 详情补全 -> 评论，
// 另有独立的卖家刷新段。段内严格串行，单条失败记录后继续，
// 取消靠轮询 ctx，在段与段之间、条目与条目之间检查
type ExtractService struct {
	fetcher      tiki.Fetcher
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	sellerRepo   repository.SellerRepository
	reviewRepo   repository.ReviewRepository
}

// NewExtractService 创建抓取引擎
func NewExtractService(
	fetcher tiki.Fetcher,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	sellerRepo repository.SellerRepository,
	reviewRepo repository.ReviewRepository,
) *ExtractService {
	return &ExtractService{
		fetcher:      fetcher,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		sellerRepo:   sellerRepo,
		reviewRepo:   reviewRepo,
	}
}

// stopped 协作式取消：只探测，不阻塞
func stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// ---------- [1/4] 类目 ----------

// SyncCategories 抓整棵类目树并入库，返回叶子类目 ID（只有叶子做 listing 入口）。
// 抓取或入库失败时返回空列表 + 错误串，不往外抛
func (s *ExtractService) SyncCategories(ctx context.Context, parentID int64) ([]int64, []string) {
	log.Printf("[1/4] 抓取类目树 parent_id=%d", parentID)
	var errs []string

	nodes, err := s.fetcher.FetchCategories(ctx, parentID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("抓取类目失败 parent_id=%d: %v", parentID, err))
		return nil, errs
	}

	rows := tiki.ToCategoryRows(nodes)
	if err := s.categoryRepo.Upsert(ctx, rows); err != nil {
		errs = append(errs, fmt.Sprintf("类目入库失败: %v", err))
		return nil, errs
	}

	var leafIDs []int64
	for _, r := range rows {
		if r.IsLeaf {
			leafIDs = append(leafIDs, r.ID)
		}
	}
	log.Printf("[1/4] 已入库 %d 个类目（%d 个叶子）", len(rows), len(leafIDs))
	return leafIDs, errs
}

// ---------- [2/4] listing 发现 ----------

// SyncListings 逐个叶子类目翻 listing，入库商品/卖家候选行，
// 返回跨类目去重后的商品 ID 并集。update 模式下过滤掉库里没有的新商品。
// 卖家先于商品入库（商品行引用卖家 ID）
func (s *ExtractService) SyncListings(ctx context.Context, categoryIDs []int64, updateOnlyExisting bool, existingProductIDs map[int64]bool) ([]int64, []string) {
	var errs []string
	seen := make(map[int64]bool)
	var productIDs []int64

	for idx, cid := range categoryIDs {
		if stopped(ctx) {
			log.Printf("[2/4] 收到停止请求，listing 段提前结束")
			break
		}
		log.Printf("[2/4] 类目 %d/%d: 抓取 listing (id=%d)", idx+1, len(categoryIDs), cid)

		items, err := s.fetcher.FetchListings(ctx, cid)
		if err != nil {
			errs = append(errs, fmt.Sprintf("类目 %d listing 抓取失败: %v", cid, err))
			continue
		}

		products, sellers := tiki.ToProductAndSellerRows(items, cid)
		if updateOnlyExisting {
			filtered := products[:0]
			for _, p := range products {
				if existingProductIDs[p.ID] {
					filtered = append(filtered, p)
				}
			}
			products = filtered
		}
		log.Printf("[2/4] 类目 %d: %d 条 listing -> %d 商品, %d 卖家", cid, len(items), len(products), len(sellers))

		if len(sellers) > 0 {
			if err := s.sellerRepo.UpsertCoarse(ctx, sellers); err != nil {
				errs = append(errs, fmt.Sprintf("类目 %d 卖家入库失败: %v", cid, err))
				continue
			}
		}
		if len(products) > 0 {
			if err := s.productRepo.Upsert(ctx, products); err != nil {
				errs = append(errs, fmt.Sprintf("类目 %d 商品入库失败: %v", cid, err))
				continue
			}
		}
		for _, p := range products {
			if !seen[p.ID] {
				seen[p.ID] = true
				productIDs = append(productIDs, p.ID)
			}
		}
	}

	log.Printf("[2/4] listing 段结束，发现去重商品 %d 个", len(productIDs))
	return productIDs, errs
}

// ---------- [3/4] 详情补全 ----------

// EnrichResult 详情补全段的结果
type EnrichResult struct {
	ProcessedIDs []int64
	FailedIDs    []int64
	Errors       []string
}

// EnrichProducts 逐个商品调详情接口补全字段。
// scrape 只处理库里没有的新商品（整行 upsert，category_id 来自 listing）；
// update 只处理已有商品，走窄列允许名单更新，category_id 永不触碰。
// 商品算"已处理"的口径是行已持久化成功；入库失败的 ID 进失败列表
func (s *ExtractService) EnrichProducts(ctx context.Context, productIDs []int64, mode string, existingProductIDs map[int64]bool) EnrichResult {
	var result EnrichResult

	var targetIDs []int64
	seen := make(map[int64]bool)
	for _, pid := range productIDs {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		exists := existingProductIDs[pid]
		if (mode == ModeScrape && !exists) || (mode == ModeUpdate && exists) {
			targetIDs = append(targetIDs, pid)
		}
	}

	log.Printf("[3/4] 详情补全 %d 个商品 (mode=%s)", len(targetIDs), mode)
	seenSellers := make(map[int64]bool)

	for idx, pid := range targetIDs {
		if stopped(ctx) {
			log.Printf("[3/4] 收到停止请求，详情段提前结束")
			break
		}
		log.Printf("[3/4] (%d/%d) 抓取商品详情 id=%d", idx+1, len(targetIDs), pid)

		detail, err := s.fetcher.FetchProduct(ctx, pid)
		if err != nil {
			if tiki.IsTimeout(err) {
				log.Printf("[3/4] 商品 %d 详情超时，跳过", pid)
			} else {
				log.Printf("[3/4] 商品 %d 详情抓取失败: %v", pid, err)
			}
			result.FailedIDs = append(result.FailedIDs, pid)
			result.Errors = append(result.Errors, fmt.Sprintf("商品 %d 详情抓取失败: %v", pid, err))
			continue
		}

		productRow := tiki.ToProductRow(detail)
		if productRow == nil {
			log.Printf("[3/4] 商品 %d 详情报文缺少 id，按失败处理", pid)
			result.FailedIDs = append(result.FailedIDs, pid)
			result.Errors = append(result.Errors, fmt.Sprintf("商品 %d 详情报文缺少 id", pid))
			continue
		}
		if sellerRow := tiki.ToSellerRow(detail); sellerRow != nil {
			s.enrichSeller(ctx, sellerRow, seenSellers)
		}

		if mode == ModeScrape {
			err = s.productRepo.UpsertDetails(ctx, productRow)
		} else {
			err = s.productRepo.UpdateDetailFields(ctx, productRow)
		}
		if err != nil {
			log.Printf("[3/4] 商品 %d 持久化失败: %v", pid, err)
			result.FailedIDs = append(result.FailedIDs, pid)
			result.Errors = append(result.Errors, fmt.Sprintf("商品 %d 持久化失败: %v", pid, err))
			continue
		}
		result.ProcessedIDs = append(result.ProcessedIDs, pid)
	}

	log.Printf("[3/4] 详情补全结束，成功 %d，失败 %d", len(result.ProcessedIDs), len(result.FailedIDs))
	return result
}

// enrichSeller 卖家补全链：详情里的 current_seller 先落基础行（补名字），
// 每个卖家 ID 本段只调一次挂件接口做深度补全。全程尽力而为，失败只记日志
func (s *ExtractService) enrichSeller(ctx context.Context, row *model.Seller, seenSellers map[int64]bool) {
	if err := s.sellerRepo.UpsertBasic(ctx, []model.Seller{*row}); err != nil {
		log.Printf("[3/4] 卖家 %d 基础行入库失败: %v", row.ID, err)
	}
	if seenSellers[row.ID] {
		return
	}
	widget, err := s.fetcher.FetchSeller(ctx, row.ID)
	if err != nil {
		log.Printf("[3/4] 卖家 %d 挂件抓取失败: %v", row.ID, err)
		return
	}
	enriched := tiki.ToSellerRowFromWidget(widget)
	if enriched == nil {
		return
	}
	if err := s.sellerRepo.UpsertEnriched(ctx, enriched); err != nil {
		log.Printf("[3/4] 卖家 %d 补全行入库失败: %v", row.ID, err)
		return
	}
	seenSellers[row.ID] = true
	log.Printf("[3/4] 卖家 %d 已从挂件接口补全", row.ID)
}

// ---------- [4/4] 评论 ----------

// SyncReviews 逐个商品抓全量评论页。startIndex 跳过列表前缀用于断点续抓；
// 同批次内按评论 ID 去重（后出现的赢）再入库，避免同批冲突键行为未定义
func (s *ExtractService) SyncReviews(ctx context.Context, productIDs []int64, startIndex int) ([]int64, []string) {
	if startIndex > 0 && startIndex < len(productIDs) {
		productIDs = productIDs[startIndex:]
	} else if startIndex >= len(productIDs) {
		productIDs = nil
	}
	log.Printf("[4/4] 抓取 %d 个商品的评论", len(productIDs))

	var failedIDs []int64
	var errs []string
	for idx, pid := range productIDs {
		if stopped(ctx) {
			log.Printf("[4/4] 收到停止请求，评论段提前结束")
			break
		}
		log.Printf("[4/4] (%d/%d) 抓取评论 product_id=%d", idx+1, len(productIDs), pid)

		bundle, err := s.fetcher.FetchReviews(ctx, pid)
		if err != nil {
			if tiki.IsTimeout(err) {
				log.Printf("[4/4] 商品 %d 评论超时，跳过", pid)
			} else {
				log.Printf("[4/4] 商品 %d 评论抓取失败: %v", pid, err)
			}
			failedIDs = append(failedIDs, pid)
			errs = append(errs, fmt.Sprintf("商品 %d 评论抓取失败: %v", pid, err))
			continue
		}

		reviewRows, sellerRows := tiki.ToReviewRows(bundle)
		if len(sellerRows) > 0 {
			if err := s.sellerRepo.UpsertCoarse(ctx, sellerRows); err != nil {
				log.Printf("[4/4] 商品 %d 评论卖家入库失败: %v", pid, err)
				errs = append(errs, fmt.Sprintf("商品 %d 评论卖家入库失败: %v", pid, err))
			}
		}
		if len(reviewRows) > 0 {
			deduped := dedupeReviewsByID(reviewRows)
			if err := s.reviewRepo.Upsert(ctx, deduped); err != nil {
				log.Printf("[4/4] 商品 %d 评论入库失败: %v", pid, err)
				failedIDs = append(failedIDs, pid)
				errs = append(errs, fmt.Sprintf("商品 %d 评论入库失败: %v", pid, err))
				continue
			}
		}
		log.Printf("[4/4] 商品 %d: 入库 %d 条评论", pid, len(reviewRows))
	}

	if len(failedIDs) > 0 {
		log.Printf("[4/4] 评论段结束，%d 个商品失败: %v", len(failedIDs), failedIDs)
	} else {
		log.Printf("[4/4] 评论段结束，无失败")
	}
	return failedIDs, errs
}

// dedupeReviewsByID 同批次内按评论 ID 去重，后出现的覆盖先出现的
func dedupeReviewsByID(rows []model.Review) []model.Review {
	index := make(map[int64]int, len(rows))
	deduped := make([]model.Review, 0, len(rows))
	for _, r := range rows {
		if pos, ok := index[r.ID]; ok {
			deduped[pos] = r
			continue
		}
		index[r.ID] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped
}

// ---------- [S] 卖家刷新 ----------

// RefreshSellers 独立段：对库里所有卖家 ID 重调挂件接口刷新，不碰商品和评论
func (s *ExtractService) RefreshSellers(ctx context.Context) []string {
	var errs []string
	sellerIDs, err := s.sellerRepo.ListIDs(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("读取卖家 ID 列表失败: %v", err))
		return errs
	}
	log.Printf("[S] 卖家刷新：共 %d 个卖家", len(sellerIDs))

	for idx, sid := range sellerIDs {
		if stopped(ctx) {
			log.Printf("[S] 收到停止请求，卖家刷新提前结束")
			break
		}
		log.Printf("[S] (%d/%d) 抓取卖家挂件 id=%d", idx+1, len(sellerIDs), sid)
		widget, err := s.fetcher.FetchSeller(ctx, sid)
		if err != nil {
			log.Printf("[S] 卖家 %d 刷新失败: %v", sid, err)
			errs = append(errs, fmt.Sprintf("卖家 %d 刷新失败: %v", sid, err))
			continue
		}
		enriched := tiki.ToSellerRowFromWidget(widget)
		if enriched == nil {
			continue
		}
		if err := s.sellerRepo.UpsertEnriched(ctx, enriched); err != nil {
			log.Printf("[S] 卖家 %d 入库失败: %v", sid, err)
			errs = append(errs, fmt.Sprintf("卖家 %d 入库失败: %v", sid, err))
		}
	}
	log.Printf("[S] 卖家刷新结束")
	return errs
}
