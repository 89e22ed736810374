package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 测试辅助 ====================

func setupRepoTestDB(t *testing.T) *gorm.DB {
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
	); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}
	return db
}

func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

// ==================== 单元测试 ====================

func TestProductRepo_UpsertIdempotent(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	rows := []model.Product{
		{ID: 1, Name: "sữa bột A", CategoryID: int64Ptr(42)},
		{ID: 2, Name: "sữa bột B", CategoryID: int64Ptr(42)},
	}
	if err := repo.Upsert(ctx, rows); err != nil {
		t.Fatalf("首次入库失败: %v", err)
	}
	if err := repo.Upsert(ctx, rows); err != nil {
		t.Fatalf("重复入库失败: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("计数失败: %v", err)
	}
	if count != 2 {
		t.Fatalf("幂等 upsert 后应有 2 行，实际 %d", count)
	}
}

func TestProductRepo_UpsertDetailsKeepsCategoryID(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	// listing 阶段写入带 category_id 的行
	if err := repo.Upsert(ctx, []model.Product{{ID: 10, Name: "旧名", CategoryID: int64Ptr(42)}}); err != nil {
		t.Fatalf("listing 行入库失败: %v", err)
	}

	// 详情补全不带 category_id
	detail := &model.Product{ID: 10, Name: "新名", Price: floatPtr(99000)}
	if err := repo.UpsertDetails(ctx, detail); err != nil {
		t.Fatalf("详情 upsert 失败: %v", err)
	}

	got, err := repo.GetByID(ctx, 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Name != "新名" {
		t.Fatalf("name 应被详情覆盖为 新名，实际 %q", got.Name)
	}
	if got.CategoryID == nil || *got.CategoryID != 42 {
		t.Fatalf("category_id 应保持 42 不被详情路径覆盖，实际 %v", got.CategoryID)
	}
}

func TestProductRepo_UpdateDetailFieldsNeverInserts(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	// 库里没有 id=99，窄列更新不应插入新行
	if err := repo.UpdateDetailFields(ctx, &model.Product{ID: 99, Name: "幽灵商品"}); err != nil {
		t.Fatalf("窄列更新失败: %v", err)
	}
	count, _ := repo.Count(ctx)
	if count != 0 {
		t.Fatalf("update 路径不应产生新行，实际 %d 行", count)
	}

	// 已有行走窄列更新，category_id 不被置空
	if err := repo.Upsert(ctx, []model.Product{{ID: 7, Name: "旧名", CategoryID: int64Ptr(8273)}}); err != nil {
		t.Fatalf("种子行入库失败: %v", err)
	}
	if err := repo.UpdateDetailFields(ctx, &model.Product{ID: 7, Name: "新名"}); err != nil {
		t.Fatalf("窄列更新失败: %v", err)
	}
	got, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Name != "新名" {
		t.Fatalf("name 应更新为 新名，实际 %q", got.Name)
	}
	if got.CategoryID == nil || *got.CategoryID != 8273 {
		t.Fatalf("category_id 应保持 8273，实际 %v", got.CategoryID)
	}
}

func TestSellerRepo_EnrichmentNeverRegresses(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSellerRepository(db)
	ctx := context.Background()

	official := true
	sellerType := "OFFICIAL_STORE"

	// 挂件补全写入完整行
	enriched := &model.Seller{
		ID:             5,
		Name:           "Tiki Trading",
		SellerType:     &sellerType,
		IsOfficial:     &official,
		AvgRatingPoint: floatPtr(4.8),
		TotalFollower:  intPtr(12000),
	}
	if err := repo.UpsertEnriched(ctx, enriched); err != nil {
		t.Fatalf("补全行入库失败: %v", err)
	}

	// 之后 listing 粗粒度行再进来，不应抹掉挂件字段
	if err := repo.UpsertCoarse(ctx, []model.Seller{{ID: 5, Name: "Tiki Trading"}}); err != nil {
		t.Fatalf("粗粒度行入库失败: %v", err)
	}

	var got model.Seller
	if err := db.First(&got, 5).Error; err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.AvgRatingPoint == nil || *got.AvgRatingPoint != 4.8 {
		t.Fatalf("挂件评分不应被粗粒度 upsert 抹掉，实际 %v", got.AvgRatingPoint)
	}
	if got.TotalFollower == nil || *got.TotalFollower != 12000 {
		t.Fatalf("粉丝数不应被粗粒度 upsert 抹掉，实际 %v", got.TotalFollower)
	}
}

func TestReviewRepo_UpsertAndCount(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	rating := 5
	rows := []model.Review{
		{ID: 100, ProductID: 1, Rating: &rating, Content: "Giao hàng nhanh"},
		{ID: 101, ProductID: 1, Rating: &rating},
	}
	if err := repo.Upsert(ctx, rows); err != nil {
		t.Fatalf("评论入库失败: %v", err)
	}

	// 同键覆盖
	updated := []model.Review{{ID: 100, ProductID: 1, Rating: &rating, Content: "đã sửa"}}
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("评论覆盖失败: %v", err)
	}

	count, _ := repo.Count(ctx)
	if count != 2 {
		t.Fatalf("应有 2 条评论，实际 %d", count)
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("全量读取失败: %v", err)
	}
	if all[0].Content != "đã sửa" {
		t.Fatalf("冲突键覆盖未生效，content=%q", all[0].Content)
	}
}

func intPtr(v int) *int { return &v }
