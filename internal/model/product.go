package model

import (
	"time"

	"gorm.io/datatypes"
)

// Product 原始商品表
// CategoryID 只在 listing 阶段首次写入（listing 的类目一定已入库），
// 详情补全阶段永远不碰这一列，避免把非空外键刷成 NULL
type Product struct {
	ID       int64  `gorm:"primaryKey" json:"id"` // Tiki 商品 ID（自然主键）
	MasterID *int64 `json:"master_id"`
	SKU      string `gorm:"size:100" json:"sku"`
	Name     string `gorm:"size:512" json:"name"`

	Brand   string `gorm:"size:255" json:"brand"`
	BrandID *int64 `json:"brand_id"`

	CategoryID *int64 `gorm:"index" json:"category_id"`
	SellerID   *int64 `gorm:"index" json:"seller_id"`

	// --- 价格 ---
	Price         *float64 `json:"price"`
	ListPrice     *float64 `json:"list_price"`
	OriginalPrice *float64 `json:"original_price"`
	Discount      *float64 `json:"discount"`
	DiscountRate  *float64 `json:"discount_rate"`

	// --- 评分快照（以最后一次抓取为准，真实聚合在 cleaned 层） ---
	RatingAverage       *float64 `json:"rating_average"`
	ReviewCount         *int     `json:"review_count"`
	AllTimeQuantitySold *int     `json:"all_time_quantity_sold"`

	ThumbnailURL string `gorm:"size:512" json:"thumbnail_url"`
	TikiURL      string `gorm:"size:512" json:"tiki_url"`

	// --- 半结构化字段 (JSONB) ---
	Specifications datatypes.JSON `gorm:"type:jsonb" json:"specifications"` // 嵌套属性组
	Badges         datatypes.JSON `gorm:"type:jsonb" json:"badges"`
	BadgesNew      datatypes.JSON `gorm:"type:jsonb" json:"badges_new"`
	Highlight      datatypes.JSON `gorm:"type:jsonb" json:"highlight"`
	Extra          datatypes.JSON `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}
