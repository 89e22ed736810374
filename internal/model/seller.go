package model

import (
	"time"

	"gorm.io/datatypes"
)

// Seller 原始卖家表
// 同一个卖家可能由四条路径写入：listing 埋点（粗）、商品详情 current_seller（补名字）、
// 卖家挂件接口（补评分/粉丝/店铺信息）、评论作者。后来的来源信息更全，
// 允许覆盖前面的写入；反方向不允许，补全链顺序由抓取引擎保证
type Seller struct {
	ID         int64    `gorm:"primaryKey" json:"id"` // Tiki 卖家 ID（自然主键）
	Name       string   `gorm:"size:255" json:"name"`
	SellerType *string  `gorm:"size:50" json:"seller_type"`
	IsOfficial *bool    `json:"is_official"`
	Rating     *float64 `json:"rating"`

	// --- 挂件接口补全字段 ---
	AvgRatingPoint  *float64 `json:"avg_rating_point"`
	ReviewCount     *int     `json:"review_count"`
	TotalFollower   *int     `json:"total_follower"`
	StoreID         *int64   `json:"store_id"`
	StoreLevel      *string  `gorm:"size:50" json:"store_level"`
	DaysSinceJoined *int     `json:"days_since_joined"`
	IconURL         string   `gorm:"size:512" json:"icon_url"`
	ProfileURL      string   `gorm:"size:512" json:"profile_url"`

	BadgeImg datatypes.JSON `gorm:"type:jsonb" json:"badge_img"`
	Info     datatypes.JSON `gorm:"type:jsonb" json:"info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Seller) TableName() string {
	return "seller"
}
