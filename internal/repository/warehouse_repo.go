package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 接口定义 ====================

// WarehouseRepository 清洗层网关：维度表、事实表、聚合表的读写
type WarehouseRepository interface {
	// --- 维度：类目 ---
	UpsertDimCategories(ctx context.Context, rows []model.DimCategory) error
	CategorySKs(ctx context.Context) (map[int64]int64, error)

	// --- 维度：卖家 ---
	UpsertDimSellers(ctx context.Context, rows []model.DimSeller) error
	SellerSKs(ctx context.Context) (map[int64]int64, error)

	// --- 维度：商品 ---
	UpsertDimProducts(ctx context.Context, rows []model.DimProduct) error
	ProductSKs(ctx context.Context) (map[int64]int64, error)
	ListDimProducts(ctx context.Context) ([]model.DimProduct, error)

	// --- 成分 ---
	UpsertProductIngredients(ctx context.Context, rows []model.ProductIngredient) error
	MaxProductIngredientSK(ctx context.Context) (int64, error)
	ExistingIngredientSKs(ctx context.Context) (map[ingredientKey]int64, error)

	// --- 日期维度 ---
	ExistingDimDates(ctx context.Context) (map[string]bool, error)
	InsertDimDates(ctx context.Context, rows []model.DimDate) error

	// --- 事实：每日快照 ---
	UpsertFactProductDaily(ctx context.Context, rows []model.FactProductDaily) error
	UpsertFactSellerDaily(ctx context.Context, rows []model.FactSellerDaily) error

	// --- 评论清洗与聚合 ---
	UpsertReviewClean(ctx context.Context, rows []model.ReviewClean) error
	ReviewCleanSKs(ctx context.Context) (map[int64]int64, error)
	ListReviewClean(ctx context.Context) ([]model.ReviewClean, error)
	UpsertFactProductReviewAggDaily(ctx context.Context, rows []model.FactProductReviewAggDaily) error
	UpsertFactProductReviewSummary(ctx context.Context, rows []model.FactProductReviewSummary) error
}

// ingredientKey (product_sk, source_code) 组合键
type ingredientKey struct {
	ProductSK  int64
	SourceCode string
}

// IngredientKey 构造组合键，供服务层查既有代理键
func IngredientKey(productSK int64, sourceCode string) ingredientKey {
	return ingredientKey{ProductSK: productSK, SourceCode: sourceCode}
}

// ==================== 仓储实现 ====================

type warehouseRepo struct {
	db *gorm.DB
}

// NewWarehouseRepository 创建清洗层仓储
func NewWarehouseRepository(db *gorm.DB) WarehouseRepository {
	return &warehouseRepo{db: db}
}

// ---------- 类目维度 ----------

func (r *warehouseRepo) UpsertDimCategories(ctx context.Context, rows []model.DimCategory) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"parent_category_id", "parent_category_sk",
			"name", "level", "url_key", "url_path",
			"status", "include_in_menu", "is_leaf", "product_count",
			"meta_title", "meta_description", "thumbnail_url",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) CategorySKs(ctx context.Context) (map[int64]int64, error) {
	type pair struct {
		CategoryID int64
		CategorySK int64
	}
	var out []pair
	err := r.db.WithContext(ctx).Model(&model.DimCategory{}).
		Select("category_id", "category_sk").Find(&out).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64]int64, len(out))
	for _, p := range out {
		m[p.CategoryID] = p.CategorySK
	}
	return m, nil
}

// ---------- 卖家维度 ----------

func (r *warehouseRepo) UpsertDimSellers(ctx context.Context, rows []model.DimSeller) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seller_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "seller_type", "is_official",
			"store_id", "store_level", "profile_url", "icon_url",
			"days_since_joined", "total_follower",
			"rating", "avg_rating_point", "review_count",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) SellerSKs(ctx context.Context) (map[int64]int64, error) {
	type pair struct {
		SellerID int64
		SellerSK int64
	}
	var out []pair
	err := r.db.WithContext(ctx).Model(&model.DimSeller{}).
		Select("seller_id", "seller_sk").Find(&out).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64]int64, len(out))
	for _, p := range out {
		m[p.SellerID] = p.SellerSK
	}
	return m, nil
}

// ---------- 商品维度 ----------

func (r *warehouseRepo) UpsertDimProducts(ctx context.Context, rows []model.DimProduct) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_sk", "seller_sk",
			"master_id", "sku", "name", "brand_id", "brand_name",
			"brand_country", "origin", "expiry_time", "is_warranty_applied",
			"capacity_raw", "product_weight_raw", "suitable_age_raw",
			"min_age_years", "age_segment",
			"is_organic", "regional_specialties",
			"organization_name", "organization_address",
			"thumbnail_url", "tiki_url",
			"product_last_updated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) ProductSKs(ctx context.Context) (map[int64]int64, error) {
	type pair struct {
		ProductID int64
		ProductSK int64
	}
	var out []pair
	err := r.db.WithContext(ctx).Model(&model.DimProduct{}).
		Select("product_id", "product_sk").Find(&out).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64]int64, len(out))
	for _, p := range out {
		m[p.ProductID] = p.ProductSK
	}
	return m, nil
}

func (r *warehouseRepo) ListDimProducts(ctx context.Context) ([]model.DimProduct, error) {
	var all []model.DimProduct
	for offset := 0; ; offset += readPageSize {
		var batch []model.DimProduct
		err := r.db.WithContext(ctx).
			Order("product_id").
			Limit(readPageSize).
			Offset(offset).
			Find(&batch).Error
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < readPageSize {
			break
		}
	}
	return all, nil
}

// ---------- 成分 ----------

func (r *warehouseRepo) UpsertProductIngredients(ctx context.Context, rows []model.ProductIngredient) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_sk"}, {Name: "source_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ingredient_text_raw", "ingredient_text_clean",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) MaxProductIngredientSK(ctx context.Context) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).Model(&model.ProductIngredient{}).
		Select("MAX(product_ingredient_sk)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *warehouseRepo) ExistingIngredientSKs(ctx context.Context) (map[ingredientKey]int64, error) {
	type row struct {
		ProductSK           int64
		SourceCode          string
		ProductIngredientSK int64
	}
	var out []row
	err := r.db.WithContext(ctx).Model(&model.ProductIngredient{}).
		Select("product_sk", "source_code", "product_ingredient_sk").Find(&out).Error
	if err != nil {
		return nil, err
	}
	m := make(map[ingredientKey]int64, len(out))
	for _, v := range out {
		m[ingredientKey{ProductSK: v.ProductSK, SourceCode: v.SourceCode}] = v.ProductIngredientSK
	}
	return m, nil
}

// ---------- 日期维度 ----------

func (r *warehouseRepo) ExistingDimDates(ctx context.Context) (map[string]bool, error) {
	var dates []string
	err := r.db.WithContext(ctx).Model(&model.DimDate{}).
		Pluck("date", &dates).Error
	if err != nil {
		return nil, err
	}
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m, nil
}

// InsertDimDates 日期行只增不改，冲突静默跳过
func (r *warehouseRepo) InsertDimDates(ctx context.Context, rows []model.DimDate) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).CreateInBatches(&rows, 500).Error
}

// ---------- 每日事实 ----------

func (r *warehouseRepo) UpsertFactProductDaily(ctx context.Context, rows []model.FactProductDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_sk"}, {Name: "date_sk"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_sk", "seller_sk",
			"price", "list_price", "original_price", "discount", "discount_rate",
			"rating_average", "review_count_cumulative", "all_time_quantity_sold_cumulative",
			"price_vs_list_percent", "snapshot_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) UpsertFactSellerDaily(ctx context.Context, rows []model.FactSellerDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seller_sk"}, {Name: "date_sk"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rating", "avg_rating_point",
			"review_count_cumulative", "total_follower_cumulative",
			"days_since_joined", "days_active", "snapshot_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

// ---------- 评论清洗与聚合 ----------

func (r *warehouseRepo) UpsertReviewClean(ctx context.Context, rows []model.ReviewClean) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_sk", "seller_sk", "customer_id_hash", "rating",
			"created_at", "purchased", "purchased_at",
			"thank_count", "comment_count",
			"title", "content", "content_length", "word_count",
			"has_images", "image_count",
			"days_used_at_review", "delivery_date", "delivery_time_hours",
			"delivery_time_rating", "shipper_attitude_rating",
			"delivery_time_slot_rating", "packing_quality_rating",
			"loaded_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) ReviewCleanSKs(ctx context.Context) (map[int64]int64, error) {
	type pair struct {
		ReviewID int64
		ReviewSK int64
	}
	var out []pair
	err := r.db.WithContext(ctx).Model(&model.ReviewClean{}).
		Select("review_id", "review_sk").Find(&out).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64]int64, len(out))
	for _, p := range out {
		m[p.ReviewID] = p.ReviewSK
	}
	return m, nil
}

func (r *warehouseRepo) ListReviewClean(ctx context.Context) ([]model.ReviewClean, error) {
	var all []model.ReviewClean
	for offset := 0; ; offset += readPageSize {
		var batch []model.ReviewClean
		err := r.db.WithContext(ctx).
			Order("review_id").
			Limit(readPageSize).
			Offset(offset).
			Find(&batch).Error
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < readPageSize {
			break
		}
	}
	return all, nil
}

func (r *warehouseRepo) UpsertFactProductReviewAggDaily(ctx context.Context, rows []model.FactProductReviewAggDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_sk"}, {Name: "date_sk"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"review_count", "avg_rating", "rating_stddev",
			"rating_1_count", "rating_2_count", "rating_3_count",
			"rating_4_count", "rating_5_count",
			"thank_count_sum", "comment_count_sum",
			"purchased_review_count", "non_purchased_review_count",
			"last_aggregated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *warehouseRepo) UpsertFactProductReviewSummary(ctx context.Context, rows []model.FactProductReviewSummary) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_sk"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rating_average", "reviews_count",
			"star_1_count", "star_2_count", "star_3_count",
			"star_4_count", "star_5_count",
			"star_1_percent", "star_2_percent", "star_3_percent",
			"star_4_percent", "star_5_percent",
			"snapshot_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}
