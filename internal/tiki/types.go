package tiki

import "encoding/json"

// ==================== 接口报文结构 ====================

// Paging 列表接口统一分页块
type Paging struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

// CategoryNode 类目树节点（categories?include=children）
type CategoryNode struct {
	ID              int64  `json:"id"`
	ParentID        *int64 `json:"parent_id"`
	Name            string `json:"name"`
	Level           *int   `json:"level"`
	URLKey          string `json:"url_key"`
	URLPath         string `json:"url_path"`
	Status          *int   `json:"status"`
	IncludeInMenu   *bool  `json:"include_in_menu"`
	ProductCount    *int   `json:"product_count"`
	IsLeaf          bool   `json:"is_leaf"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	ThumbnailURL    string `json:"thumbnail_url"`
}

type categoryResponse struct {
	Data []CategoryNode `json:"data"`
}

// ListingPage listing 接口单页
type ListingPage struct {
	Data   []ListingItem `json:"data"`
	Paging *Paging       `json:"paging"`
}

// ListingItem listing 接口单个商品条目
type ListingItem struct {
	ID            int64    `json:"id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	BrandName     string   `json:"brand_name"`
	Price         *float64 `json:"price"`
	ListPrice     *float64 `json:"list_price"`
	OriginalPrice *float64 `json:"original_price"`
	Discount      *float64 `json:"discount"`
	DiscountRate  *float64 `json:"discount_rate"`
	RatingAverage *float64 `json:"rating_average"`
	ReviewCount   *int     `json:"review_count"`
	QuantitySold  *struct {
		Value int `json:"value"`
	} `json:"quantity_sold"`
	ThumbnailURL        string `json:"thumbnail_url"`
	SellerID            *int64 `json:"seller_id"`
	PrimaryCategoryPath string `json:"primary_category_path"`

	// 埋点信息原样透传到 product.extra，卖家粗信息从 amplitude 里解析
	ImpressionInfo        json.RawMessage `json:"impression_info"`
	VisibleImpressionInfo json.RawMessage `json:"visible_impression_info"`
}

// amplitudeInfo visible_impression_info.amplitude 里关心的几个埋点字段
type amplitudeInfo struct {
	Amplitude struct {
		BrandName       string   `json:"brand_name"`
		SellerType      *string  `json:"seller_type"`
		IsOfficialStore *float64 `json:"is_official_store"` // 1 表示官方店
	} `json:"amplitude"`
}

// ProductDetail 商品详情接口报文
type ProductDetail struct {
	ID       int64  `json:"id"`
	MasterID *int64 `json:"master_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`

	Brand *struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"brand"`

	Price         *float64 `json:"price"`
	ListPrice     *float64 `json:"list_price"`
	OriginalPrice *float64 `json:"original_price"`
	Discount      *float64 `json:"discount"`
	DiscountRate  *float64 `json:"discount_rate"`

	RatingAverage       *float64 `json:"rating_average"`
	ReviewCount         *int     `json:"review_count"`
	AllTimeQuantitySold *int     `json:"all_time_quantity_sold"`

	ThumbnailURL string `json:"thumbnail_url"`
	ShortURL     string `json:"short_url"`
	URLPath      string `json:"url_path"`

	CurrentSeller *struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"current_seller"`

	Specifications json.RawMessage `json:"specifications"`
	Badges         json.RawMessage `json:"badges"`
	BadgesNew      json.RawMessage `json:"badges_new"`
	Highlight      json.RawMessage `json:"highlight"`

	// 以下三项打包进 product.extra
	DealSpecs    json.RawMessage `json:"deal_specs"`
	Benefits     json.RawMessage `json:"benefits"`
	ReturnPolicy json.RawMessage `json:"return_policy"`
}

// ReviewPage 评论接口单页；首页才带总体评分块
type ReviewPage struct {
	RatingAverage *float64        `json:"rating_average"`
	ReviewsCount  *int            `json:"reviews_count"`
	Stars         json.RawMessage `json:"stars"`
	Data          []ReviewItem    `json:"data"`
	Paging        *Paging         `json:"paging"`
}

// ReviewItem 单条评论
type ReviewItem struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	CustomerID *int64 `json:"customer_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Rating     *int   `json:"rating"`

	ThankCount   *int `json:"thank_count"`
	CommentCount *int `json:"comment_count"`

	CreatedAt *int64 `json:"created_at"` // unix 秒

	CreatedBy *struct {
		Purchased   bool   `json:"purchased"`
		PurchasedAt *int64 `json:"purchased_at"`
	} `json:"created_by"`

	SellerID *int64 `json:"seller_id"`
	Seller   *struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"seller"`

	Attributes        json.RawMessage `json:"attributes"`
	Suggestions       json.RawMessage `json:"suggestions"`
	ProductAttributes json.RawMessage `json:"product_attributes"`
	Timeline          json.RawMessage `json:"timeline"`
	VoteAttributes    json.RawMessage `json:"vote_attributes"`
	DeliveryRating    json.RawMessage `json:"delivery_rating"`
}

// ReviewSummary 评论首页的总体评分块
type ReviewSummary struct {
	RatingAverage *float64        `json:"rating_average"`
	ReviewsCount  *int            `json:"reviews_count"`
	Stars         json.RawMessage `json:"stars"`
}

// ReviewBundle 单个商品的全部评论页汇总结果
type ReviewBundle struct {
	Summary ReviewSummary
	Reviews []ReviewItem
}

// SellerWidget 卖家挂件接口报文
type SellerWidget struct {
	Data struct {
		Seller *SellerNode `json:"seller"`
	} `json:"data"`
}

// SellerNode 挂件里的卖家主体
type SellerNode struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	IsOfficial      bool            `json:"is_official"`
	AvgRatingPoint  *float64        `json:"avg_rating_point"`
	ReviewCount     *int            `json:"review_count"`
	TotalFollower   *int            `json:"total_follower"`
	StoreID         *int64          `json:"store_id"`
	StoreLevel      *string         `json:"store_level"`
	DaysSinceJoined *int            `json:"days_since_joined"`
	Icon            string          `json:"icon"`
	URL             string          `json:"url"`
	BadgeImg        json.RawMessage `json:"badge_img"`
	Info            json.RawMessage `json:"info"`
}
