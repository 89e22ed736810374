package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// readPageSize 全量读取时的内部分页大小，读到非满页为止
const readPageSize = 1000

// ==================== 接口定义 ====================

// CategoryRepository 类目仓储接口
type CategoryRepository interface {
	Upsert(ctx context.Context, rows []model.Category) error
	ListAll(ctx context.Context) ([]model.Category, error)
	Count(ctx context.Context) (int64, error)
}

// ==================== 仓储实现 ====================

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建类目仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Upsert(ctx context.Context, rows []model.Category) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"parent_id", "name", "level", "url_key", "url_path",
			"status", "include_in_menu", "is_leaf", "product_count",
			"meta_title", "meta_description", "thumbnail_url", "updated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *categoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	var all []model.Category
	for offset := 0; ; offset += readPageSize {
		var batch []model.Category
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

func (r *categoryRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Count(&total).Error
	return total, err
}
