package model

import "time"

// 清洗层表结构。原始库里这些表位于独立的 cleaned schema，
// 这里用 cleaned_ 表名前缀承载同一层次划分，方便单测用 sqlite 跑通。
// 代理键 (*SK) 一经分配跨运行稳定：已有自然键沿用旧代理键，新键默认等于自然 ID。

// ==================== 维度表 ====================

// DimCategory 类目维度
type DimCategory struct {
	CategorySK       int64  `gorm:"column:category_sk;not null" json:"category_sk"`
	CategoryID       int64  `gorm:"column:category_id;primaryKey" json:"category_id"`
	ParentCategoryID *int64 `gorm:"column:parent_category_id" json:"parent_category_id"`
	ParentCategorySK *int64 `gorm:"column:parent_category_sk" json:"parent_category_sk"`

	Name          string `gorm:"size:255" json:"name"`
	Level         *int   `json:"level"`
	URLKey        string `gorm:"size:255" json:"url_key"`
	URLPath       string `gorm:"size:512" json:"url_path"`
	Status        *int   `json:"status"`
	IncludeInMenu *bool  `json:"include_in_menu"`
	IsLeaf        bool   `json:"is_leaf"`
	ProductCount  *int   `json:"product_count"`

	MetaTitle       string `gorm:"size:512" json:"meta_title"`
	MetaDescription string `gorm:"type:text" json:"meta_description"`
	ThumbnailURL    string `gorm:"size:512" json:"thumbnail_url"`
}

func (DimCategory) TableName() string {
	return "cleaned_dim_category"
}

// DimSeller 卖家维度
type DimSeller struct {
	SellerSK int64 `gorm:"column:seller_sk;not null" json:"seller_sk"`
	SellerID int64 `gorm:"column:seller_id;primaryKey" json:"seller_id"`

	Name       string  `gorm:"size:255" json:"name"`
	SellerType *string `gorm:"size:50" json:"seller_type"`
	IsOfficial *bool   `json:"is_official"`
	StoreID    *int64  `json:"store_id"`
	StoreLevel *string `gorm:"size:50" json:"store_level"`
	ProfileURL string  `gorm:"size:512" json:"profile_url"`
	IconURL    string  `gorm:"size:512" json:"icon_url"`

	DaysSinceJoined *int     `json:"days_since_joined"`
	TotalFollower   *int     `json:"total_follower"`
	Rating          *float64 `json:"rating"`
	AvgRatingPoint  *float64 `json:"avg_rating_point"`
	ReviewCount     *int     `json:"review_count"`
}

func (DimSeller) TableName() string {
	return "cleaned_dim_seller"
}

// DimProduct 商品维度，含从 specifications 解析出的结构化属性
type DimProduct struct {
	ProductSK  int64  `gorm:"column:product_sk;not null" json:"product_sk"`
	ProductID  int64  `gorm:"column:product_id;primaryKey" json:"product_id"`
	CategorySK int64  `gorm:"column:category_sk;not null" json:"category_sk"`
	SellerSK   *int64 `gorm:"column:seller_sk" json:"seller_sk"`

	MasterID  *int64 `json:"master_id"`
	SKU       string `gorm:"size:100" json:"sku"`
	Name      string `gorm:"size:512" json:"name"`
	BrandID   *int64 `json:"brand_id"`
	BrandName string `gorm:"size:255" json:"brand_name"`

	// --- specifications 派生字段 ---
	BrandCountry        *string  `gorm:"size:255" json:"brand_country"`
	Origin              *string  `gorm:"size:255" json:"origin"`
	ExpiryTime          *string  `gorm:"size:255" json:"expiry_time"`
	IsWarrantyApplied   *bool    `json:"is_warranty_applied"`
	CapacityRaw         *string  `gorm:"size:255" json:"capacity_raw"`
	ProductWeightRaw    *string  `gorm:"size:255" json:"product_weight_raw"`
	SuitableAgeRaw      *string  `gorm:"size:255" json:"suitable_age_raw"`
	MinAgeYears         *float64 `json:"min_age_years"`
	AgeSegment          *string  `gorm:"size:50" json:"age_segment"`
	IsOrganic           *bool    `json:"is_organic"`
	RegionalSpecialties *string  `gorm:"size:255" json:"regional_specialties"`
	OrganizationName    *string  `gorm:"size:255" json:"organization_name"`
	OrganizationAddress *string  `gorm:"size:512" json:"organization_address"`

	ThumbnailURL string `gorm:"size:512" json:"thumbnail_url"`
	TikiURL      string `gorm:"size:512" json:"tiki_url"`

	ProductFirstSeenAt   *time.Time `json:"product_first_seen_at"`
	ProductLastUpdatedAt *time.Time `json:"product_last_updated_at"`
}

func (DimProduct) TableName() string {
	return "cleaned_dim_product"
}

// ProductIngredient 成分表，每个 (product, source_code) 至多一行
type ProductIngredient struct {
	ProductIngredientSK int64   `gorm:"column:product_ingredient_sk;not null" json:"product_ingredient_sk"`
	ProductSK           int64   `gorm:"column:product_sk;primaryKey" json:"product_sk"`
	SourceCode          string  `gorm:"column:source_code;primaryKey;size:50" json:"source_code"`
	IngredientTextRaw   string  `gorm:"type:text" json:"ingredient_text_raw"`
	IngredientTextClean *string `gorm:"type:text" json:"ingredient_text_clean"`
}

func (ProductIngredient) TableName() string {
	return "cleaned_product_ingredients"
}

// DimDate 日期维度，事实表引用到的日期懒加载创建，从不删除
type DimDate struct {
	DateSK    int64  `gorm:"column:date_sk;not null" json:"date_sk"` // YYYYMMDD
	Date      string `gorm:"column:date;primaryKey;size:10" json:"date"`
	Year      int    `json:"year"`
	Quarter   int    `json:"quarter"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	DayOfWeek int    `json:"day_of_week"` // ISO：周一=1
	IsWeekend bool   `json:"is_weekend"`
}

func (DimDate) TableName() string {
	return "cleaned_dim_date"
}

// ==================== 事实表 ====================

// FactProductDaily 商品每日快照
type FactProductDaily struct {
	ProductDailySK int64  `gorm:"column:product_daily_sk;not null" json:"product_daily_sk"`
	ProductSK      int64  `gorm:"column:product_sk;primaryKey" json:"product_sk"`
	DateSK         int64  `gorm:"column:date_sk;primaryKey" json:"date_sk"`
	CategorySK     int64  `gorm:"column:category_sk" json:"category_sk"`
	SellerSK       *int64 `gorm:"column:seller_sk" json:"seller_sk"`

	Price         *float64 `json:"price"`
	ListPrice     *float64 `json:"list_price"`
	OriginalPrice *float64 `json:"original_price"`
	Discount      *float64 `json:"discount"`
	DiscountRate  *float64 `json:"discount_rate"`

	RatingAverage                 *float64 `json:"rating_average"`
	ReviewCountCumulative         *int     `json:"review_count_cumulative"`
	AllTimeQuantitySoldCumulative *int     `json:"all_time_quantity_sold_cumulative"`

	PriceVsListPercent *float64  `json:"price_vs_list_percent"` // (牌价-现价)/牌价*100，保留两位
	SnapshotAt         time.Time `json:"snapshot_at"`
}

func (FactProductDaily) TableName() string {
	return "cleaned_fact_product_daily"
}

// FactSellerDaily 卖家每日快照
type FactSellerDaily struct {
	SellerDailySK int64 `gorm:"column:seller_daily_sk;not null" json:"seller_daily_sk"`
	SellerSK      int64 `gorm:"column:seller_sk;primaryKey" json:"seller_sk"`
	DateSK        int64 `gorm:"column:date_sk;primaryKey" json:"date_sk"`

	Rating                  *float64 `json:"rating"`
	AvgRatingPoint          *float64 `json:"avg_rating_point"`
	ReviewCountCumulative   *int     `json:"review_count_cumulative"`
	TotalFollowerCumulative *int     `json:"total_follower_cumulative"`
	DaysSinceJoined         *int     `json:"days_since_joined"`
	DaysActive              *int     `json:"days_active"`

	SnapshotAt time.Time `json:"snapshot_at"`
}

func (FactSellerDaily) TableName() string {
	return "cleaned_fact_seller_daily"
}

// ReviewClean 清洗后的评论明细
// 客户标识只保留单向哈希，原始 customer_id 不落清洗层
type ReviewClean struct {
	ReviewSK int64 `gorm:"column:review_sk;not null" json:"review_sk"`
	ReviewID int64 `gorm:"column:review_id;primaryKey" json:"review_id"`

	ProductSK int64  `gorm:"column:product_sk;index" json:"product_sk"`
	SellerSK  *int64 `gorm:"column:seller_sk" json:"seller_sk"`

	CustomerIDHash *string `gorm:"size:64" json:"customer_id_hash"`
	Rating         int     `json:"rating"`

	CreatedAt   *time.Time `gorm:"column:created_at" json:"created_at"`
	Purchased   bool       `json:"purchased"`
	PurchasedAt *time.Time `json:"purchased_at"`

	ThankCount   *int `json:"thank_count"`
	CommentCount *int `json:"comment_count"`

	Title         string  `gorm:"size:512" json:"title"`
	Content       *string `gorm:"type:text" json:"content"`
	ContentLength *int    `json:"content_length"`
	WordCount     *int    `json:"word_count"`
	HasImages     *bool   `json:"has_images"`
	ImageCount    *int    `json:"image_count"`

	// --- 配送时间线派生字段 ---
	DaysUsedAtReview       *int       `json:"days_used_at_review"`
	DeliveryDate           *time.Time `json:"delivery_date"`
	DeliveryTimeHours      *float64   `json:"delivery_time_hours"`
	DeliveryTimeRating     *string    `gorm:"size:255" json:"delivery_time_rating"`
	ShipperAttitudeRating  *string    `gorm:"size:255" json:"shipper_attitude_rating"`
	DeliveryTimeSlotRating *string    `gorm:"size:255" json:"delivery_time_slot_rating"`
	PackingQualityRating   *string    `gorm:"size:255" json:"packing_quality_rating"`

	LoadedAt time.Time `json:"loaded_at"`
}

func (ReviewClean) TableName() string {
	return "cleaned_review_clean"
}

// FactProductReviewAggDaily 商品×日期评论聚合
type FactProductReviewAggDaily struct {
	ProductReviewAggDailySK int64 `gorm:"column:product_review_agg_daily_sk;not null" json:"product_review_agg_daily_sk"`
	ProductSK               int64 `gorm:"column:product_sk;primaryKey" json:"product_sk"`
	DateSK                  int64 `gorm:"column:date_sk;primaryKey" json:"date_sk"`

	ReviewCount  int     `json:"review_count"`
	AvgRating    float64 `json:"avg_rating"`
	RatingStddev float64 `json:"rating_stddev"` // 总体标准差，负方差钳为 0 再开方

	// 列名要带下划线分隔数字，gorm 默认派生不出来
	Rating1Count int `gorm:"column:rating_1_count" json:"rating_1_count"`
	Rating2Count int `gorm:"column:rating_2_count" json:"rating_2_count"`
	Rating3Count int `gorm:"column:rating_3_count" json:"rating_3_count"`
	Rating4Count int `gorm:"column:rating_4_count" json:"rating_4_count"`
	Rating5Count int `gorm:"column:rating_5_count" json:"rating_5_count"`

	ThankCountSum   int `json:"thank_count_sum"`
	CommentCountSum int `json:"comment_count_sum"`

	PurchasedReviewCount    int `json:"purchased_review_count"`
	NonPurchasedReviewCount int `json:"non_purchased_review_count"`

	LastAggregatedAt time.Time `json:"last_aggregated_at"`
}

func (FactProductReviewAggDaily) TableName() string {
	return "cleaned_fact_product_review_agg_daily"
}

// FactProductReviewSummary 商品全量评论汇总（无日期维度）
type FactProductReviewSummary struct {
	ProductReviewSummarySK int64 `gorm:"column:product_review_summary_sk;not null" json:"product_review_summary_sk"`
	ProductSK              int64 `gorm:"column:product_sk;primaryKey" json:"product_sk"`

	RatingAverage float64 `json:"rating_average"`
	ReviewsCount  int     `json:"reviews_count"`

	// 同上，显式列名
	Star1Count int `gorm:"column:star_1_count" json:"star_1_count"`
	Star2Count int `gorm:"column:star_2_count" json:"star_2_count"`
	Star3Count int `gorm:"column:star_3_count" json:"star_3_count"`
	Star4Count int `gorm:"column:star_4_count" json:"star_4_count"`
	Star5Count int `gorm:"column:star_5_count" json:"star_5_count"`

	Star1Percent *float64 `gorm:"column:star_1_percent" json:"star_1_percent"`
	Star2Percent *float64 `gorm:"column:star_2_percent" json:"star_2_percent"`
	Star3Percent *float64 `gorm:"column:star_3_percent" json:"star_3_percent"`
	Star4Percent *float64 `gorm:"column:star_4_percent" json:"star_4_percent"`
	Star5Percent *float64 `gorm:"column:star_5_percent" json:"star_5_percent"`

	SnapshotAt time.Time `json:"snapshot_at"`
}

func (FactProductReviewSummary) TableName() string {
	return "cleaned_fact_product_review_summary"
}
