package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
	"github.com/DoLong3304/TikiWebScraping/internal/repository"
)

// ==================== 测试辅助 ====================

func setupTransformTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Seller{},
		&model.Review{},
		&model.DimCategory{},
		&model.DimSeller{},
		&model.DimProduct{},
		&model.ProductIngredient{},
		&model.DimDate{},
		&model.FactProductDaily{},
		&model.FactSellerDaily{},
		&model.ReviewClean{},
		&model.FactProductReviewAggDaily{},
		&model.FactProductReviewSummary{},
	); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}
	return db
}

func newTestTransformService(t *testing.T, db *gorm.DB) *TransformService {
	svc := NewTransformService(
		repository.NewCategoryRepository(db),
		repository.NewProductRepository(db),
		repository.NewSellerRepository(db),
		repository.NewReviewRepository(db),
		repository.NewWarehouseRepository(db),
	)
	// 固定快照时间，日期相关断言才稳定
	svc.now = func() time.Time {
		return time.Date(2024, 3, 7, 10, 30, 0, 0, time.UTC)
	}
	return svc
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

// ==================== 键打包 ====================

func TestDateSKPacking(t *testing.T) {
	d := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	if got := dateSK(d); got != 20240307 {
		t.Fatalf("2024-03-07 的 date_sk 应为 20240307，实际 %d", got)
	}
	if got := dailySK(5, 20240307); got != 500020240307 {
		t.Fatalf("product_sk=5 当日代理键应为 500020240307，实际 %d", got)
	}
}

func TestPriceVsListPercent(t *testing.T) {
	if got := priceVsListPercent(f64(80), f64(100)); got == nil || *got != 20.0 {
		t.Fatalf("(100-80)/100*100 应为 20，实际 %v", got)
	}
	if got := priceVsListPercent(f64(80), f64(0)); got != nil {
		t.Fatalf("牌价为 0 应返回 nil，实际 %v", got)
	}
	if got := priceVsListPercent(nil, f64(100)); got != nil {
		t.Fatalf("现价缺失应返回 nil，实际 %v", got)
	}
	// 保留两位
	if got := priceVsListPercent(f64(66.66), f64(100)); got == nil || *got != 33.34 {
		t.Fatalf("应四舍五入到两位，实际 %v", got)
	}
}

// ==================== 维度同步 ====================

func TestSyncDimProduct_SurrogateKeyStable(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 1001, Name: "sữa A", CategoryID: i64(42)})

	if _, err := svc.SyncDimCategory(ctx); err != nil {
		t.Fatalf("类目维度同步失败: %v", err)
	}
	if _, err := svc.SyncDimProduct(ctx); err != nil {
		t.Fatalf("商品维度首次同步失败: %v", err)
	}

	var first model.DimProduct
	if err := db.First(&first, "product_id = ?", 1001).Error; err != nil {
		t.Fatalf("查询维度行失败: %v", err)
	}
	if first.ProductSK != 1001 {
		t.Fatalf("新商品代理键应默认等于自然 ID 1001，实际 %d", first.ProductSK)
	}

	// 二次同步代理键不变
	if _, err := svc.SyncDimProduct(ctx); err != nil {
		t.Fatalf("商品维度二次同步失败: %v", err)
	}
	var second model.DimProduct
	db.First(&second, "product_id = ?", 1001)
	if second.ProductSK != first.ProductSK {
		t.Fatalf("代理键应跨运行稳定：%d != %d", second.ProductSK, first.ProductSK)
	}
}

func TestSyncDimProduct_SkipsUnknownCategory(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	// 类目 99 没有维度行
	db.Create(&model.Product{ID: 2001, Name: "孤儿商品", CategoryID: i64(99)})
	db.Create(&model.Product{ID: 2002, Name: "无类目商品"})

	n, err := svc.SyncDimProduct(ctx)
	if err != nil {
		t.Fatalf("商品维度同步失败: %v", err)
	}
	if n != 0 {
		t.Fatalf("类目无维度行的商品应被静默跳过，实际写入 %d 行", n)
	}
}

func TestSyncDimProduct_ParsesSpecifications(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	specs := `[{"attributes":[
		{"code":"brand_country","value":"Việt Nam"},
		{"code":"suitable_age_for_use","value":"Trẻ từ 1-3 tuổi"},
		{"code":"is_warranty_applied","value":"Không"},
		{"code":"thanh_phan","value":"Sữa bò tươi, đường"}
	]}]`
	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 3001, Name: "sữa C", CategoryID: i64(42), Specifications: []byte(specs)})

	if _, err := svc.SyncDimCategory(ctx); err != nil {
		t.Fatalf("类目维度同步失败: %v", err)
	}
	if _, err := svc.SyncDimProduct(ctx); err != nil {
		t.Fatalf("商品维度同步失败: %v", err)
	}

	var dim model.DimProduct
	if err := db.First(&dim, "product_id = ?", 3001).Error; err != nil {
		t.Fatalf("查询维度行失败: %v", err)
	}
	assert.NotNil(t, dim.BrandCountry)
	assert.Equal(t, "Việt Nam", *dim.BrandCountry)
	assert.NotNil(t, dim.MinAgeYears)
	assert.Equal(t, 1.0, *dim.MinAgeYears)
	assert.NotNil(t, dim.AgeSegment)
	assert.Equal(t, "kids_1_3", *dim.AgeSegment)
	assert.NotNil(t, dim.IsWarrantyApplied)
	assert.False(t, *dim.IsWarrantyApplied)

	// 成分表
	if _, err := svc.SyncProductIngredients(ctx); err != nil {
		t.Fatalf("成分同步失败: %v", err)
	}
	var ing model.ProductIngredient
	if err := db.First(&ing, "product_sk = ?", dim.ProductSK).Error; err != nil {
		t.Fatalf("查询成分行失败: %v", err)
	}
	assert.Equal(t, "thanh_phan", ing.SourceCode)
	assert.Equal(t, "Sữa bò tươi, đường", ing.IngredientTextRaw)
}

// ==================== 每日事实 ====================

func TestSyncFactProductDaily(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 5, Name: "sữa E", CategoryID: i64(42), Price: f64(80000), ListPrice: f64(100000)})

	if _, err := svc.SyncDimCategory(ctx); err != nil {
		t.Fatalf("类目维度同步失败: %v", err)
	}
	// 代理键指定为 5，验证打包
	if _, err := svc.SyncDimProduct(ctx); err != nil {
		t.Fatalf("商品维度同步失败: %v", err)
	}
	n, err := svc.SyncFactProductDaily(ctx)
	if err != nil {
		t.Fatalf("商品日快照失败: %v", err)
	}
	if n != 1 {
		t.Fatalf("应写入 1 行快照，实际 %d", n)
	}

	var fact model.FactProductDaily
	if err := db.First(&fact, "product_sk = ?", 5).Error; err != nil {
		t.Fatalf("查询快照失败: %v", err)
	}
	if fact.DateSK != 20240307 {
		t.Fatalf("date_sk 应为 20240307，实际 %d", fact.DateSK)
	}
	if fact.ProductDailySK != 500020240307 {
		t.Fatalf("product_daily_sk 应为 500020240307，实际 %d", fact.ProductDailySK)
	}
	if fact.PriceVsListPercent == nil || *fact.PriceVsListPercent != 20.0 {
		t.Fatalf("price_vs_list_percent 应为 20，实际 %v", fact.PriceVsListPercent)
	}

	// 引用到的日期已懒加载进 dim_date
	var dimDate model.DimDate
	if err := db.First(&dimDate, "date = ?", "2024-03-07").Error; err != nil {
		t.Fatalf("dim_date 应有 2024-03-07: %v", err)
	}
	if dimDate.DateSK != 20240307 || dimDate.Quarter != 1 {
		t.Fatalf("dim_date 字段不对: %+v", dimDate)
	}

	// 同日重跑幂等
	if _, err := svc.SyncFactProductDaily(ctx); err != nil {
		t.Fatalf("快照重跑失败: %v", err)
	}
	var count int64
	db.Model(&model.FactProductDaily{}).Count(&count)
	if count != 1 {
		t.Fatalf("同日重跑后应仍是 1 行，实际 %d", count)
	}
}

func TestSyncFactSellerDaily(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	joined := 400
	db.Create(&model.Seller{ID: 77, Name: "Shop A", AvgRatingPoint: f64(4.8), TotalFollower: iptr(12000), DaysSinceJoined: &joined})
	db.Create(&model.Seller{ID: 78, Name: "Shop B", Rating: f64(4.2)})

	if _, err := svc.SyncDimSeller(ctx); err != nil {
		t.Fatalf("卖家维度同步失败: %v", err)
	}
	n, err := svc.SyncFactSellerDaily(ctx)
	if err != nil {
		t.Fatalf("卖家日快照失败: %v", err)
	}
	if n != 2 {
		t.Fatalf("应写入 2 行快照，实际 %d", n)
	}

	var fact model.FactSellerDaily
	if err := db.First(&fact, "seller_sk = ?", 77).Error; err != nil {
		t.Fatalf("查询快照失败: %v", err)
	}
	if fact.DateSK != 20240307 || fact.SellerDailySK != 7700020240307 {
		t.Fatalf("代理键打包不对: %+v", fact)
	}
	// rating 缺失时回落 avg_rating_point
	if fact.Rating == nil || *fact.Rating != 4.8 {
		t.Fatalf("rating 应回落为 4.8，实际 %v", fact.Rating)
	}
	if fact.DaysActive == nil || *fact.DaysActive != 400 {
		t.Fatalf("days_active 应取 days_since_joined，实际 %v", fact.DaysActive)
	}

	// 同日重跑走冲突更新，行数不变
	if _, err := svc.SyncFactSellerDaily(ctx); err != nil {
		t.Fatalf("快照重跑失败: %v", err)
	}
	var count int64
	db.Model(&model.FactSellerDaily{}).Count(&count)
	if count != 2 {
		t.Fatalf("同日重跑后应仍是 2 行，实际 %d", count)
	}
}

func TestSyncProductIngredients_Idempotent(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	specs := `[{"attributes":[{"code":"thanh_phan","value":"Sữa bò tươi 99%"}]}]`
	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 3001, Name: "sữa C", CategoryID: i64(42), Specifications: []byte(specs)})
	db.Create(&model.Product{ID: 3002, Name: "không thành phần", CategoryID: i64(42)})

	svc.SyncDimCategory(ctx)
	svc.SyncDimProduct(ctx)

	n, err := svc.SyncProductIngredients(ctx)
	if err != nil {
		t.Fatalf("成分同步失败: %v", err)
	}
	if n != 1 {
		t.Fatalf("没有 thanh_phan 的商品不应有成分行，实际写入 %d", n)
	}
	var first model.ProductIngredient
	if err := db.First(&first, "product_sk = ?", 3001).Error; err != nil {
		t.Fatalf("查询成分行失败: %v", err)
	}

	// 重跑走冲突更新：代理键沿用，行数不涨
	if _, err := svc.SyncProductIngredients(ctx); err != nil {
		t.Fatalf("成分重跑失败: %v", err)
	}
	var second model.ProductIngredient
	db.First(&second, "product_sk = ?", 3001)
	if second.ProductIngredientSK != first.ProductIngredientSK {
		t.Fatalf("成分代理键应跨运行稳定：%d != %d", second.ProductIngredientSK, first.ProductIngredientSK)
	}
	var count int64
	db.Model(&model.ProductIngredient{}).Count(&count)
	if count != 1 {
		t.Fatalf("重跑后应仍是 1 行，实际 %d", count)
	}
}

// ==================== 评论聚合 ====================

func TestSyncReviewAggregates(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 9, Name: "sữa F", CategoryID: i64(42)})

	created := time.Date(2024, 3, 7, 8, 0, 0, 0, time.UTC)
	for i, rating := range []int{3, 4, 5} {
		r := rating
		cid := int64(100 + i)
		db.Create(&model.Review{
			ID:          int64(900 + i),
			ProductID:   9,
			CustomerID:  &cid,
			Rating:      &r,
			CreatedTime: &created,
			Purchased:   true,
			ThankCount:  iptr(1),
		})
	}

	if _, err := svc.SyncDimCategory(ctx); err != nil {
		t.Fatalf("类目维度同步失败: %v", err)
	}
	if _, err := svc.SyncDimProduct(ctx); err != nil {
		t.Fatalf("商品维度同步失败: %v", err)
	}
	if _, err := svc.SyncReviewClean(ctx); err != nil {
		t.Fatalf("评论清洗失败: %v", err)
	}
	if _, err := svc.SyncFactProductReviewAggDaily(ctx); err != nil {
		t.Fatalf("评论日聚合失败: %v", err)
	}

	var agg model.FactProductReviewAggDaily
	if err := db.First(&agg, "product_sk = ? AND date_sk = ?", 9, 20240307).Error; err != nil {
		t.Fatalf("查询日聚合失败: %v", err)
	}
	assert.Equal(t, 3, agg.ReviewCount)
	assert.Equal(t, 4.0, agg.AvgRating)
	// 总体标准差 sqrt(2/3) ≈ 0.8165
	assert.InDelta(t, 0.8165, agg.RatingStddev, 0.0001)
	assert.Equal(t, 1, agg.Rating3Count)
	assert.Equal(t, 1, agg.Rating4Count)
	assert.Equal(t, 1, agg.Rating5Count)
	assert.Equal(t, 3, agg.PurchasedReviewCount)
	assert.Equal(t, 3, agg.ThankCountSum)

	if _, err := svc.SyncFactProductReviewSummary(ctx); err != nil {
		t.Fatalf("评论汇总失败: %v", err)
	}
	var summary model.FactProductReviewSummary
	if err := db.First(&summary, "product_sk = ?", 9).Error; err != nil {
		t.Fatalf("查询汇总失败: %v", err)
	}
	assert.Equal(t, 3, summary.ReviewsCount)
	assert.Equal(t, 4.0, summary.RatingAverage)
	if summary.Star5Percent == nil {
		t.Fatalf("star_5_percent 不应为空")
	}
	assert.InDelta(t, 33.33, *summary.Star5Percent, 0.01)

	// 重跑走冲突更新列清单，行数不变
	if _, err := svc.SyncFactProductReviewAggDaily(ctx); err != nil {
		t.Fatalf("评论日聚合重跑失败: %v", err)
	}
	if _, err := svc.SyncFactProductReviewSummary(ctx); err != nil {
		t.Fatalf("评论汇总重跑失败: %v", err)
	}
	var aggCount, summaryCount int64
	db.Model(&model.FactProductReviewAggDaily{}).Count(&aggCount)
	db.Model(&model.FactProductReviewSummary{}).Count(&summaryCount)
	if aggCount != 1 || summaryCount != 1 {
		t.Fatalf("重跑后应仍是各 1 行，实际 agg=%d summary=%d", aggCount, summaryCount)
	}
}

func TestSyncReviewClean_HashesCustomerID(t *testing.T) {
	db := setupTransformTestDB(t)
	svc := newTestTransformService(t, db)
	ctx := context.Background()

	db.Create(&model.Category{ID: 42, Name: "Sữa bột", IsLeaf: true})
	db.Create(&model.Product{ID: 9, Name: "sữa F", CategoryID: i64(42)})
	rating := 5
	cid := int64(777)
	created := time.Date(2024, 3, 7, 8, 0, 0, 0, time.UTC)
	db.Create(&model.Review{ID: 1, ProductID: 9, CustomerID: &cid, Rating: &rating, CreatedTime: &created, Content: "Bé nhà mình rất thích"})

	svc.SyncDimCategory(ctx)
	svc.SyncDimProduct(ctx)
	if _, err := svc.SyncReviewClean(ctx); err != nil {
		t.Fatalf("评论清洗失败: %v", err)
	}

	var clean model.ReviewClean
	if err := db.First(&clean, "review_id = ?", 1).Error; err != nil {
		t.Fatalf("查询清洗行失败: %v", err)
	}
	if clean.CustomerIDHash == nil {
		t.Fatalf("customer_id_hash 不应为空")
	}
	if len(*clean.CustomerIDHash) != 64 {
		t.Fatalf("SHA-256 hex 应为 64 位，实际 %d", len(*clean.CustomerIDHash))
	}
	if *clean.CustomerIDHash == "777" {
		t.Fatalf("清洗层不应出现原始 customer_id")
	}
	// 内容长度按 rune 数，词数按空白切分
	if clean.ContentLength == nil || *clean.ContentLength != 21 {
		t.Fatalf("content_length 应为 21（rune 计数），实际 %v", clean.ContentLength)
	}
	if clean.WordCount == nil || *clean.WordCount != 5 {
		t.Fatalf("word_count 应为 5，实际 %v", clean.WordCount)
	}
}
