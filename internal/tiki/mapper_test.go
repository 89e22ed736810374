package tiki

import (
	"encoding/json"
	"testing"
	"time"
)

func i64p(v int64) *int64     { return &v }
func f64p(v float64) *float64 { return &v }

// ==================== 类目映射 ====================

func TestToCategoryRows(t *testing.T) {
	level := 2
	nodes := []CategoryNode{
		{ID: 10, ParentID: i64p(8273), Name: "Sữa bột", Level: &level, IsLeaf: true, URLKey: "sua-bot"},
		{ID: 11, Name: "Sữa tươi"},
	}
	rows := ToCategoryRows(nodes)
	if len(rows) != 2 {
		t.Fatalf("应映射 2 行，实际 %d", len(rows))
	}
	if rows[0].ID != 10 || rows[0].ParentID == nil || *rows[0].ParentID != 8273 {
		t.Fatalf("父类目映射错: %+v", rows[0])
	}
	if !rows[0].IsLeaf || rows[1].IsLeaf {
		t.Fatalf("叶子标映射错")
	}
}

// ==================== listing 映射 ====================

func TestToProductAndSellerRows(t *testing.T) {
	amp := json.RawMessage(`{"amplitude":{"brand_name":"Shop A","seller_type":"OFFICIAL","is_official_store":1}}`)
	items := []ListingItem{
		{ID: 1, Name: "sp 1", SellerID: i64p(77), Price: f64p(80000), VisibleImpressionInfo: amp},
		{ID: 2, Name: "sp 2", SellerID: i64p(77), VisibleImpressionInfo: amp}, // 同一卖家
		{ID: 0, Name: "id 为零的脏条目"},
		{ID: 3, Name: "sp 3"}, // 没有卖家
	}

	products, sellers := ToProductAndSellerRows(items, 42)
	if len(products) != 3 {
		t.Fatalf("id=0 的条目应跳过，实际 %d 行", len(products))
	}
	for _, p := range products {
		if p.CategoryID == nil || *p.CategoryID != 42 {
			t.Fatalf("category_id 应来自 listing 上下文 42: %+v", p)
		}
	}
	if len(sellers) != 1 {
		t.Fatalf("同一卖家应去重成 1 行，实际 %d", len(sellers))
	}
	s := sellers[0]
	if s.ID != 77 || s.Name != "Shop A" {
		t.Fatalf("卖家埋点解析错: %+v", s)
	}
	if s.SellerType == nil || *s.SellerType != "OFFICIAL" {
		t.Fatalf("seller_type 解析错: %v", s.SellerType)
	}
	if s.IsOfficial == nil || !*s.IsOfficial {
		t.Fatalf("is_official_store=1 应映射为官方店")
	}
}

func TestToProductAndSellerRows_QuantitySold(t *testing.T) {
	items := []ListingItem{{ID: 1, QuantitySold: &struct {
		Value int `json:"value"`
	}{Value: 350}}}
	products, _ := ToProductAndSellerRows(items, 42)
	if products[0].AllTimeQuantitySold == nil || *products[0].AllTimeQuantitySold != 350 {
		t.Fatalf("quantity_sold 映射错: %v", products[0].AllTimeQuantitySold)
	}
}

// ==================== 详情映射 ====================

func TestToProductRow(t *testing.T) {
	brandID := int64(5)
	sellerID := int64(77)
	detail := &ProductDetail{
		ID:       1,
		Name:     "sp 1",
		ShortURL: "https://tiki.vn/sp-1",
		Brand: &struct {
			ID   *int64 `json:"id"`
			Name string `json:"name"`
		}{ID: &brandID, Name: "Vinamilk"},
		CurrentSeller: &struct {
			ID   *int64 `json:"id"`
			Name string `json:"name"`
		}{ID: &sellerID, Name: "Shop A"},
		Specifications: json.RawMessage(`[{"attributes":[]}]`),
	}

	row := ToProductRow(detail)
	if row == nil {
		t.Fatalf("合法详情不应映射成 nil")
	}
	// 详情行刻意不带 category_id，类目归属以 listing 为准
	if row.CategoryID != nil {
		t.Fatalf("详情行不应带 category_id: %v", *row.CategoryID)
	}
	if row.Brand != "Vinamilk" || row.BrandID == nil || *row.BrandID != 5 {
		t.Fatalf("品牌映射错: %+v", row)
	}
	if row.SellerID == nil || *row.SellerID != 77 {
		t.Fatalf("卖家映射错: %v", row.SellerID)
	}
	if row.TikiURL != "https://tiki.vn/sp-1" {
		t.Fatalf("tiki_url 映射错: %q", row.TikiURL)
	}
	if len(row.Specifications) == 0 {
		t.Fatalf("specifications 应原样透传")
	}

	if ToProductRow(nil) != nil || ToProductRow(&ProductDetail{}) != nil {
		t.Fatalf("nil 或 id=0 的详情应映射成 nil")
	}
}

func TestToProductRow_URLPathFallback(t *testing.T) {
	row := ToProductRow(&ProductDetail{ID: 1, URLPath: "sp-1.html"})
	if row.TikiURL != "sp-1.html" {
		t.Fatalf("short_url 缺失时应回退 url_path，实际 %q", row.TikiURL)
	}
}

// ==================== 评论映射 ====================

func TestToReviewRows(t *testing.T) {
	rating := 5
	created := int64(1709800000)
	purchasedAt := int64(1709500000)
	sellerID := int64(77)
	bundle := &ReviewBundle{
		Reviews: []ReviewItem{
			{
				ID:        100,
				ProductID: 9,
				Rating:    &rating,
				Content:   "Rất tốt",
				CreatedAt: &created,
				CreatedBy: &struct {
					Purchased   bool   `json:"purchased"`
					PurchasedAt *int64 `json:"purchased_at"`
				}{Purchased: true, PurchasedAt: &purchasedAt},
				Seller: &struct {
					ID   *int64 `json:"id"`
					Name string `json:"name"`
				}{ID: &sellerID, Name: "Shop A"},
				Timeline: json.RawMessage(`{"delivery_date":"2024-03-05"}`),
			},
			{ID: 0, ProductID: 9}, // 脏条目
		},
	}

	reviews, sellers := ToReviewRows(bundle)
	if len(reviews) != 1 {
		t.Fatalf("id=0 的评论应跳过，实际 %d", len(reviews))
	}
	r := reviews[0]
	if r.CreatedTime == nil || !r.CreatedTime.Equal(time.Unix(created, 0).UTC()) {
		t.Fatalf("created_time 应从 unix 秒转换: %v", r.CreatedTime)
	}
	if !r.Purchased || r.PurchasedAt == nil {
		t.Fatalf("购买信息映射错: %+v", r)
	}
	if len(r.Extra) == 0 {
		t.Fatalf("timeline 应打包进 extra")
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(r.Extra, &extra); err != nil {
		t.Fatalf("extra 应是合法 JSON: %v", err)
	}
	if string(extra["timeline"]) == "null" {
		t.Fatalf("timeline 不应为 null")
	}

	if len(sellers) != 1 || sellers[0].ID != 77 || sellers[0].Name != "Shop A" {
		t.Fatalf("评论卖家映射错: %+v", sellers)
	}

	if r2, s2 := ToReviewRows(nil); r2 != nil || s2 != nil {
		t.Fatalf("nil bundle 应映射成双 nil")
	}
}

// ==================== 卖家挂件映射 ====================

func TestToSellerRowFromWidget(t *testing.T) {
	rating := 4.8
	follower := 12000
	level := "GOLD"
	w := &SellerWidget{}
	w.Data.Seller = &SellerNode{
		ID:             77,
		Name:           "Shop A",
		IsOfficial:     true,
		AvgRatingPoint: &rating,
		TotalFollower:  &follower,
		StoreLevel:     &level,
	}

	row := ToSellerRowFromWidget(w)
	if row == nil {
		t.Fatalf("合法挂件不应映射成 nil")
	}
	if row.ID != 77 || row.Name != "Shop A" {
		t.Fatalf("主体映射错: %+v", row)
	}
	if row.IsOfficial == nil || !*row.IsOfficial {
		t.Fatalf("官方标映射错")
	}
	if row.Rating == nil || *row.Rating != 4.8 || row.AvgRatingPoint == nil || *row.AvgRatingPoint != 4.8 {
		t.Fatalf("评分映射错: %+v", row)
	}
	if row.StoreLevel == nil || *row.StoreLevel != "GOLD" || row.SellerType == nil || *row.SellerType != "GOLD" {
		t.Fatalf("店铺等级映射错: %+v", row)
	}

	if ToSellerRowFromWidget(nil) != nil {
		t.Fatalf("nil 挂件应映射成 nil")
	}
	if ToSellerRowFromWidget(&SellerWidget{}) != nil {
		t.Fatalf("空挂件应映射成 nil")
	}
}
