package model

import (
	"time"

	"gorm.io/datatypes"
)

// Review 原始评论表
type Review struct {
	ID         int64  `gorm:"primaryKey" json:"id"` // Tiki 评论 ID（自然主键）
	ProductID  int64  `gorm:"index;not null" json:"product_id"`
	SellerID   *int64 `gorm:"index" json:"seller_id"`
	CustomerID *int64 `json:"customer_id"`

	Title   string `gorm:"size:512" json:"title"`
	Content string `gorm:"type:text" json:"content"`
	Rating  *int   `json:"rating"`

	ThankCount   *int `json:"thank_count"`
	CommentCount *int `json:"comment_count"`

	CreatedTime *time.Time `gorm:"column:created_time" json:"created_time"` // 评论创建时间（来自接口时间戳）
	Purchased   bool       `json:"purchased"`
	PurchasedAt *time.Time `json:"purchased_at"`

	// --- 半结构化字段 (JSONB) ---
	Attributes  datatypes.JSON `gorm:"type:jsonb" json:"attributes"`
	Suggestions datatypes.JSON `gorm:"type:jsonb" json:"suggestions"`
	Extra       datatypes.JSON `gorm:"type:jsonb" json:"extra"` // timeline / vote_attributes / delivery_rating

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "review"
}
