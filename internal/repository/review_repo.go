package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 接口定义 ====================

// ReviewRepository 评论仓储接口
type ReviewRepository interface {
	// Upsert 按评论 id 冲突覆盖；调用方须保证同批次内 id 不重复
	Upsert(ctx context.Context, rows []model.Review) error
	ListAll(ctx context.Context) ([]model.Review, error)
	Count(ctx context.Context) (int64, error)
}

// ==================== 仓储实现 ====================

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评论仓储
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Upsert(ctx context.Context, rows []model.Review) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id", "seller_id", "customer_id",
			"title", "content", "rating",
			"thank_count", "comment_count",
			"created_time", "purchased", "purchased_at",
			"attributes", "suggestions", "extra", "updated_at",
		}),
	}).CreateInBatches(&rows, 500).Error
}

func (r *reviewRepo) ListAll(ctx context.Context) ([]model.Review, error) {
	var all []model.Review
	for offset := 0; ; offset += readPageSize {
		var batch []model.Review
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

func (r *reviewRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).Count(&total).Error
	return total, err
}
