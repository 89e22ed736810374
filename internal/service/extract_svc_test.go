package service

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
	"github.com/DoLong3304/TikiWebScraping/internal/repository"
	"github.com/DoLong3304/TikiWebScraping/internal/tiki"
)

// ==================== 假数据源 ====================

// fakeFetcher 内存假数据源，逐方法可替换
type fakeFetcher struct {
	categories   []tiki.CategoryNode
	listings     map[int64][]tiki.ListingItem
	products     map[int64]*tiki.ProductDetail
	reviews      map[int64]*tiki.ReviewBundle
	sellers      map[int64]*tiki.SellerWidget
	failProducts map[int64]bool
	failReviews  map[int64]bool

	productCalls []int64
	reviewCalls  []int64
}

func (f *fakeFetcher) FetchCategories(ctx context.Context, parentID int64) ([]tiki.CategoryNode, error) {
	return f.categories, nil
}

func (f *fakeFetcher) FetchListingPage(ctx context.Context, categoryID int64, page int) (*tiki.ListingPage, error) {
	items := f.listings[categoryID]
	return &tiki.ListingPage{Data: items, Paging: &tiki.Paging{CurrentPage: 1, LastPage: 1, Total: len(items)}}, nil
}

func (f *fakeFetcher) FetchListings(ctx context.Context, categoryID int64) ([]tiki.ListingItem, error) {
	return f.listings[categoryID], nil
}

func (f *fakeFetcher) FetchProduct(ctx context.Context, productID int64) (*tiki.ProductDetail, error) {
	f.productCalls = append(f.productCalls, productID)
	if f.failProducts[productID] {
		return nil, fmt.Errorf("接口 500")
	}
	if d, ok := f.products[productID]; ok {
		return d, nil
	}
	return &tiki.ProductDetail{ID: productID, Name: fmt.Sprintf("sp %d", productID)}, nil
}

func (f *fakeFetcher) FetchReviews(ctx context.Context, productID int64) (*tiki.ReviewBundle, error) {
	f.reviewCalls = append(f.reviewCalls, productID)
	if f.failReviews[productID] {
		return nil, fmt.Errorf("接口 500")
	}
	if b, ok := f.reviews[productID]; ok {
		return b, nil
	}
	return &tiki.ReviewBundle{}, nil
}

func (f *fakeFetcher) FetchSeller(ctx context.Context, sellerID int64) (*tiki.SellerWidget, error) {
	if w, ok := f.sellers[sellerID]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("挂件不存在")
}

func newTestExtractService(t *testing.T, fetcher tiki.Fetcher) (*ExtractService, *gorm.DB) {
	db := setupTransformTestDB(t)
	svc := NewExtractService(
		fetcher,
		repository.NewCategoryRepository(db),
		repository.NewProductRepository(db),
		repository.NewSellerRepository(db),
		repository.NewReviewRepository(db),
	)
	return svc, db
}

func listingItem(id int64, sellerID int64) tiki.ListingItem {
	item := tiki.ListingItem{ID: id, Name: fmt.Sprintf("sp %d", id)}
	if sellerID != 0 {
		item.SellerID = &sellerID
	}
	return item
}

// ==================== [1/4] 类目 ====================

func TestSyncCategories_ReturnsLeafIDs(t *testing.T) {
	fetcher := &fakeFetcher{
		categories: []tiki.CategoryNode{
			{ID: 1, Name: "Sữa", IsLeaf: false},
			{ID: 2, Name: "Sữa bột", IsLeaf: true},
			{ID: 3, Name: "Sữa tươi", IsLeaf: true},
		},
	}
	svc, db := newTestExtractService(t, fetcher)

	leafIDs, errs := svc.SyncCategories(context.Background(), 8273)
	if len(errs) != 0 {
		t.Fatalf("不应有错误: %v", errs)
	}
	if len(leafIDs) != 2 || leafIDs[0] != 2 || leafIDs[1] != 3 {
		t.Fatalf("叶子 ID 应为 [2 3]，实际 %v", leafIDs)
	}
	var count int64
	db.Model(&model.Category{}).Count(&count)
	if count != 3 {
		t.Fatalf("应入库 3 个类目，实际 %d", count)
	}
}

// ==================== [2/4] listing ====================

func TestSyncListings_UpdateModeFiltersNewProducts(t *testing.T) {
	fetcher := &fakeFetcher{
		listings: map[int64][]tiki.ListingItem{
			10: {listingItem(1, 0), listingItem(2, 0), listingItem(3, 0)},
		},
	}
	svc, db := newTestExtractService(t, fetcher)
	existing := map[int64]bool{1: true, 2: true}

	ids, errs := svc.SyncListings(context.Background(), []int64{10}, true, existing)
	if len(errs) != 0 {
		t.Fatalf("不应有错误: %v", errs)
	}
	if len(ids) != 2 {
		t.Fatalf("update 模式应只保留已有商品 {1,2}，实际 %v", ids)
	}
	var count int64
	db.Model(&model.Product{}).Count(&count)
	if count != 2 {
		t.Fatalf("新商品 3 不应入库，实际 %d 行", count)
	}
}

func TestSyncListings_DedupesAcrossCategories(t *testing.T) {
	// 商品 1 同时出现在两个类目
	fetcher := &fakeFetcher{
		listings: map[int64][]tiki.ListingItem{
			10: {listingItem(1, 0), listingItem(2, 0)},
			11: {listingItem(1, 0), listingItem(3, 0)},
		},
	}
	svc, _ := newTestExtractService(t, fetcher)

	ids, _ := svc.SyncListings(context.Background(), []int64{10, 11}, false, nil)
	if len(ids) != 3 {
		t.Fatalf("跨类目并集应去重成 3 个，实际 %v", ids)
	}
}

// ==================== [3/4] 详情补全 ====================

func TestEnrichProducts_ModeFiltering(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, _ := newTestExtractService(t, fetcher)
	discovered := []int64{1, 2, 3}
	existing := map[int64]bool{1: true, 2: true}

	// scrape 只碰新商品
	fetcher.productCalls = nil
	result := svc.EnrichProducts(context.Background(), discovered, ModeScrape, existing)
	if len(fetcher.productCalls) != 1 || fetcher.productCalls[0] != 3 {
		t.Fatalf("scrape 模式应只抓新商品 [3]，实际 %v", fetcher.productCalls)
	}
	if len(result.ProcessedIDs) != 1 || result.ProcessedIDs[0] != 3 {
		t.Fatalf("scrape 处理集应为 [3]，实际 %v", result.ProcessedIDs)
	}

	// update 只碰已有商品
	fetcher.productCalls = nil
	result = svc.EnrichProducts(context.Background(), discovered, ModeUpdate, existing)
	if len(fetcher.productCalls) != 2 {
		t.Fatalf("update 模式应只抓已有商品 [1 2]，实际 %v", fetcher.productCalls)
	}
}

func TestEnrichProducts_PartialFailureContinues(t *testing.T) {
	fetcher := &fakeFetcher{failProducts: map[int64]bool{7: true}}
	svc, _ := newTestExtractService(t, fetcher)

	var ids []int64
	for i := int64(1); i <= 10; i++ {
		ids = append(ids, i)
	}
	result := svc.EnrichProducts(context.Background(), ids, ModeScrape, map[int64]bool{})

	if len(fetcher.productCalls) != 10 {
		t.Fatalf("失败不应中断后续商品，应抓满 10 个，实际 %d", len(fetcher.productCalls))
	}
	if len(result.FailedIDs) != 1 || result.FailedIDs[0] != 7 {
		t.Fatalf("失败列表应为 [7]，实际 %v", result.FailedIDs)
	}
	if len(result.ProcessedIDs) != 9 {
		t.Fatalf("成功数应为 9，实际 %d", len(result.ProcessedIDs))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("应有 1 条错误，实际 %v", result.Errors)
	}
}

func TestEnrichProducts_EmptyDetailPayloadIsFailure(t *testing.T) {
	// id=0 的详情报文映射不出商品行，没有行可持久化就不能算已处理
	fetcher := &fakeFetcher{
		products: map[int64]*tiki.ProductDetail{5: {ID: 0}},
	}
	svc, db := newTestExtractService(t, fetcher)

	result := svc.EnrichProducts(context.Background(), []int64{5, 6}, ModeScrape, map[int64]bool{})
	if len(result.FailedIDs) != 1 || result.FailedIDs[0] != 5 {
		t.Fatalf("空报文商品应进失败列表，实际 %v", result.FailedIDs)
	}
	if len(result.ProcessedIDs) != 1 || result.ProcessedIDs[0] != 6 {
		t.Fatalf("处理集应只有 6，实际 %v", result.ProcessedIDs)
	}
	var count int64
	db.Model(&model.Product{}).Count(&count)
	if count != 1 {
		t.Fatalf("空报文不应落任何行，实际 %d 行", count)
	}
}

func TestEnrichProducts_SkipsDuplicateInput(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, _ := newTestExtractService(t, fetcher)

	svc.EnrichProducts(context.Background(), []int64{5, 5, 5}, ModeScrape, map[int64]bool{})
	if len(fetcher.productCalls) != 1 {
		t.Fatalf("重复输入应只抓一次，实际 %d 次", len(fetcher.productCalls))
	}
}

// ==================== [4/4] 评论 ====================

func TestSyncReviews_DedupesWithinBatch(t *testing.T) {
	rating1, rating2 := 3, 5
	fetcher := &fakeFetcher{
		reviews: map[int64]*tiki.ReviewBundle{
			9: {Reviews: []tiki.ReviewItem{
				{ID: 100, ProductID: 9, Content: "bản cũ", Rating: &rating1},
				{ID: 100, ProductID: 9, Content: "bản mới", Rating: &rating2},
			}},
		},
	}
	svc, db := newTestExtractService(t, fetcher)

	failed, errs := svc.SyncReviews(context.Background(), []int64{9}, 0)
	if len(failed) != 0 || len(errs) != 0 {
		t.Fatalf("不应有失败: failed=%v errs=%v", failed, errs)
	}

	var rows []model.Review
	db.Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("同批重复 ID 应去重成 1 行，实际 %d", len(rows))
	}
	if rows[0].Content != "bản mới" {
		t.Fatalf("后出现的应覆盖先出现的，实际 %q", rows[0].Content)
	}
}

func TestSyncReviews_StartIndexSkipsPrefix(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, _ := newTestExtractService(t, fetcher)

	svc.SyncReviews(context.Background(), []int64{1, 2, 3, 4}, 2)
	if len(fetcher.reviewCalls) != 2 || fetcher.reviewCalls[0] != 3 {
		t.Fatalf("start_index=2 应从第 3 个商品开始，实际 %v", fetcher.reviewCalls)
	}

	// 越界等同空列表
	fetcher.reviewCalls = nil
	svc.SyncReviews(context.Background(), []int64{1, 2}, 5)
	if len(fetcher.reviewCalls) != 0 {
		t.Fatalf("start_index 越界不应抓任何商品，实际 %v", fetcher.reviewCalls)
	}
}

func TestSyncReviews_FailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{failReviews: map[int64]bool{2: true}}
	svc, _ := newTestExtractService(t, fetcher)

	failed, errs := svc.SyncReviews(context.Background(), []int64{1, 2, 3}, 0)
	if len(fetcher.reviewCalls) != 3 {
		t.Fatalf("失败不应中断后续商品，实际抓了 %v", fetcher.reviewCalls)
	}
	if len(failed) != 1 || failed[0] != 2 {
		t.Fatalf("失败列表应为 [2]，实际 %v", failed)
	}
	if len(errs) != 1 {
		t.Fatalf("应有 1 条错误，实际 %v", errs)
	}
}

func TestSyncReviews_CancelStopsEarly(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, _ := newTestExtractService(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.SyncReviews(ctx, []int64{1, 2, 3}, 0)
	if len(fetcher.reviewCalls) != 0 {
		t.Fatalf("已取消的 ctx 不应再抓任何商品，实际 %v", fetcher.reviewCalls)
	}
}

// ==================== [S] 卖家刷新 ====================

func TestRefreshSellers_UpdatesFromWidget(t *testing.T) {
	follower := 9000
	rating := 4.9
	fetcher := &fakeFetcher{
		sellers: map[int64]*tiki.SellerWidget{
			77: widgetFor(77, "Shop A", &rating, &follower),
		},
	}
	svc, db := newTestExtractService(t, fetcher)
	db.Create(&model.Seller{ID: 77, Name: "cũ"})

	errs := svc.RefreshSellers(context.Background())
	if len(errs) != 0 {
		t.Fatalf("不应有错误: %v", errs)
	}

	var row model.Seller
	db.First(&row, 77)
	if row.Name != "Shop A" {
		t.Fatalf("名字应被挂件覆盖，实际 %q", row.Name)
	}
	if row.TotalFollower == nil || *row.TotalFollower != 9000 {
		t.Fatalf("total_follower 应为 9000，实际 %v", row.TotalFollower)
	}
}

func widgetFor(id int64, name string, rating *float64, follower *int) *tiki.SellerWidget {
	w := &tiki.SellerWidget{}
	w.Data.Seller = &tiki.SellerNode{
		ID:             id,
		Name:           name,
		AvgRatingPoint: rating,
		TotalFollower:  follower,
	}
	return w
}
