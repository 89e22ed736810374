package model

import "time"

// Category 原始类目表，一行对应 Tiki 类目树的一个节点
// 树约束：非根节点的 parent_id 必须指向已存在的类目（应用层保证，非事务约束）
type Category struct {
	ID       int64  `gorm:"primaryKey" json:"id"` // Tiki 类目 ID（自然主键）
	ParentID *int64 `gorm:"index" json:"parent_id"`
	Name     string `gorm:"size:255" json:"name"`
	Level    *int   `json:"level"`
	URLKey   string `gorm:"size:255" json:"url_key"`
	URLPath  string `gorm:"size:512" json:"url_path"`

	Status        *int  `json:"status"`
	IncludeInMenu *bool `json:"include_in_menu"`
	IsLeaf        bool  `gorm:"index" json:"is_leaf"` // 只有叶子类目会作为 listing 抓取入口
	ProductCount  *int  `json:"product_count"`

	MetaTitle       string `gorm:"size:512" json:"meta_title"`
	MetaDescription string `gorm:"type:text" json:"meta_description"`
	ThumbnailURL    string `gorm:"size:512" json:"thumbnail_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "category"
}
