package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 接口定义 ====================

// SellerRepository 卖家仓储接口
// 卖家信息来源由粗到细：listing 埋点 -> 详情 current_seller -> 卖家挂件。
// 三个 Upsert 的冲突更新列按来源丰富程度递增，粗来源永远覆盖不掉
// 细来源已写入的字段，保证补全链只进不退。
type SellerRepository interface {
	// UpsertCoarse listing 埋点来源：名字/类型/官方标
	UpsertCoarse(ctx context.Context, rows []model.Seller) error
	// UpsertBasic 详情或评论来源：只有 id 和名字
	UpsertBasic(ctx context.Context, rows []model.Seller) error
	// UpsertEnriched 挂件来源：整行覆盖
	UpsertEnriched(ctx context.Context, row *model.Seller) error

	ListAll(ctx context.Context) ([]model.Seller, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// ==================== 仓储实现 ====================

type sellerRepo struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓储
func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepo{db: db}
}

func (r *sellerRepo) UpsertCoarse(ctx context.Context, rows []model.Seller) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "seller_type", "is_official", "updated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *sellerRepo) UpsertBasic(ctx context.Context, rows []model.Seller) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *sellerRepo) UpsertEnriched(ctx context.Context, row *model.Seller) error {
	if row == nil {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "seller_type", "is_official", "rating",
			"avg_rating_point", "review_count", "total_follower",
			"store_id", "store_level", "days_since_joined",
			"icon_url", "profile_url", "badge_img", "info", "updated_at",
		}),
	}).Create(row).Error
}

func (r *sellerRepo) ListAll(ctx context.Context) ([]model.Seller, error) {
	var all []model.Seller
	for offset := 0; ; offset += readPageSize {
		var batch []model.Seller
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

func (r *sellerRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var all []int64
	for offset := 0; ; offset += readPageSize {
		var batch []int64
		err := r.db.WithContext(ctx).
			Model(&model.Seller{}).
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

func (r *sellerRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Seller{}).Count(&total).Error
	return total, err
}
