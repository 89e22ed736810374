package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
// 商品行有两种形态：listing 形态（带 category_id）和详情形态（不带）。
// category_id 只能由 Upsert 写入，UpsertDetails / UpdateDetailFields
// 的列清单里都没有它，后续任何代码路径都无法用详情数据污染类目归属。
type ProductRepository interface {
	// Upsert listing 形态整行插入或覆盖（含 category_id）
	Upsert(ctx context.Context, rows []model.Product) error
	// UpsertDetails 详情形态插入或覆盖，冲突更新列不含 category_id
	UpsertDetails(ctx context.Context, row *model.Product) error
	// UpdateDetailFields update 模式的窄列更新：只改允许列，不插入新行
	UpdateDetailFields(ctx context.Context, row *model.Product) error

	GetByID(ctx context.Context, id int64) (*model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// detailColumns 详情补全允许写入的列，刻意不含 category_id
var detailColumns = []string{
	"master_id", "sku", "name", "brand", "brand_id",
	"price", "list_price", "original_price", "discount", "discount_rate",
	"rating_average", "review_count", "all_time_quantity_sold",
	"thumbnail_url", "tiki_url", "seller_id",
	"specifications", "badges", "badges_new", "highlight", "extra",
	"updated_at",
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Upsert(ctx context.Context, rows []model.Product) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sku", "name", "brand", "category_id", "seller_id",
			"price", "list_price", "original_price", "discount", "discount_rate",
			"rating_average", "review_count", "all_time_quantity_sold",
			"thumbnail_url", "extra", "updated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *productRepo) UpsertDetails(ctx context.Context, row *model.Product) error {
	if row == nil {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(detailColumns),
	}).Create(row).Error
}

func (r *productRepo) UpdateDetailFields(ctx context.Context, row *model.Product) error {
	if row == nil {
		return nil
	}
	fields := map[string]interface{}{
		"master_id":              row.MasterID,
		"sku":                    row.SKU,
		"name":                   row.Name,
		"brand":                  row.Brand,
		"brand_id":               row.BrandID,
		"price":                  row.Price,
		"list_price":             row.ListPrice,
		"original_price":         row.OriginalPrice,
		"discount":               row.Discount,
		"discount_rate":          row.DiscountRate,
		"rating_average":         row.RatingAverage,
		"review_count":           row.ReviewCount,
		"all_time_quantity_sold": row.AllTimeQuantitySold,
		"thumbnail_url":          row.ThumbnailURL,
		"tiki_url":               row.TikiURL,
		"seller_id":              row.SellerID,
		"specifications":         row.Specifications,
		"badges":                 row.Badges,
		"badges_new":             row.BadgesNew,
		"highlight":              row.Highlight,
		"extra":                  row.Extra,
	}
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", row.ID).
		Updates(fields).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var all []model.Product
	for offset := 0; ; offset += readPageSize {
		var batch []model.Product
		err := r.db.WithContext(ctx).
			Order("id").
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

func (r *productRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var all []int64
	for offset := 0; ; offset += readPageSize {
		var batch []int64
		err := r.db.WithContext(ctx).
			Model(&model.Product{}).
			Order("id").
			Limit(readPageSize).
			Offset(offset).
			Pluck("id", &batch).Error
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

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&total).Error
	return total, err
}
