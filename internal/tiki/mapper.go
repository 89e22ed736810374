package tiki

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
)

// ==================== 行映射 ====================
// 映射函数全部是纯函数：字段缺失一律映射为零值/NULL，永不报错。

// ToCategoryRows 类目节点 -> category 表行
func ToCategoryRows(nodes []CategoryNode) []model.Category {
	rows := make([]model.Category, 0, len(nodes))
	for _, c := range nodes {
		rows = append(rows, model.Category{
			ID:              c.ID,
			ParentID:        c.ParentID,
			Name:            c.Name,
			Level:           c.Level,
			URLKey:          c.URLKey,
			URLPath:         c.URLPath,
			Status:          c.Status,
			IncludeInMenu:   c.IncludeInMenu,
			IsLeaf:          c.IsLeaf,
			ProductCount:    c.ProductCount,
			MetaTitle:       c.MetaTitle,
			MetaDescription: c.MetaDescription,
			ThumbnailURL:    c.ThumbnailURL,
		})
	}
	return rows
}

// ToProductAndSellerRows listing 条目 -> (product 行, 卖家粗信息行)
// categoryID 来自 listing 上下文，保证对应类目已入库；卖家按 id 去重取首次出现
func ToProductAndSellerRows(items []ListingItem, categoryID int64) ([]model.Product, []model.Seller) {
	products := make([]model.Product, 0, len(items))
	var sellers []model.Seller
	seenSellers := make(map[int64]struct{})

	for _, item := range items {
		if item.ID == 0 {
			continue
		}

		var sold *int
		if item.QuantitySold != nil {
			v := item.QuantitySold.Value
			sold = &v
		}

		cid := categoryID
		products = append(products, model.Product{
			ID:                  item.ID,
			SKU:                 item.SKU,
			Name:                item.Name,
			Brand:               item.BrandName,
			CategoryID:          &cid,
			SellerID:            item.SellerID,
			Price:               item.Price,
			ListPrice:           item.ListPrice,
			OriginalPrice:       item.OriginalPrice,
			Discount:            item.Discount,
			DiscountRate:        item.DiscountRate,
			RatingAverage:       item.RatingAverage,
			ReviewCount:         item.ReviewCount,
			AllTimeQuantitySold: sold,
			ThumbnailURL:        item.ThumbnailURL,
			Extra: marshalJSON(map[string]interface{}{
				"primary_category_path":   item.PrimaryCategoryPath,
				"impression_info":         rawOrNil(item.ImpressionInfo),
				"visible_impression_info": rawOrNil(item.VisibleImpressionInfo),
			}),
		})

		if item.SellerID == nil || *item.SellerID == 0 {
			continue
		}
		if _, ok := seenSellers[*item.SellerID]; ok {
			continue
		}
		seenSellers[*item.SellerID] = struct{}{}

		var amp amplitudeInfo
		_ = json.Unmarshal(item.VisibleImpressionInfo, &amp)
		official := amp.Amplitude.IsOfficialStore != nil && *amp.Amplitude.IsOfficialStore == 1
		sellers = append(sellers, model.Seller{
			ID:         *item.SellerID,
			Name:       amp.Amplitude.BrandName,
			SellerType: amp.Amplitude.SellerType,
			IsOfficial: &official,
		})
	}
	return products, sellers
}

// ToProductRow 商品详情 -> product 表行
// 行里刻意不含 CategoryID：详情接口可能返回与 listing 不同的类目，
// 或者干脆没有类目信息，类目归属永远以 listing 阶段为准
func ToProductRow(data *ProductDetail) *model.Product {
	if data == nil || data.ID == 0 {
		return nil
	}

	row := &model.Product{
		ID:                  data.ID,
		MasterID:            data.MasterID,
		SKU:                 data.SKU,
		Name:                data.Name,
		Price:               data.Price,
		ListPrice:           data.ListPrice,
		OriginalPrice:       data.OriginalPrice,
		Discount:            data.Discount,
		DiscountRate:        data.DiscountRate,
		RatingAverage:       data.RatingAverage,
		ReviewCount:         data.ReviewCount,
		AllTimeQuantitySold: data.AllTimeQuantitySold,
		ThumbnailURL:        data.ThumbnailURL,
		TikiURL:             data.ShortURL,
		Specifications:      rawJSON(data.Specifications),
		Badges:              rawJSON(data.Badges),
		BadgesNew:           rawJSON(data.BadgesNew),
		Highlight:           rawJSON(data.Highlight),
		Extra: marshalJSON(map[string]interface{}{
			"deal_specs":    rawOrNil(data.DealSpecs),
			"benefits":      rawOrNil(data.Benefits),
			"return_policy": rawOrNil(data.ReturnPolicy),
		}),
	}
	if row.TikiURL == "" {
		row.TikiURL = data.URLPath
	}
	if data.Brand != nil {
		row.Brand = data.Brand.Name
		row.BrandID = data.Brand.ID
	}
	if data.CurrentSeller != nil {
		row.SellerID = data.CurrentSeller.ID
	}
	return row
}

// ToSellerRow 商品详情里的 current_seller -> seller 表行（只有 id 和名字）
func ToSellerRow(data *ProductDetail) *model.Seller {
	if data == nil || data.CurrentSeller == nil || data.CurrentSeller.ID == nil || *data.CurrentSeller.ID == 0 {
		return nil
	}
	return &model.Seller{
		ID:   *data.CurrentSeller.ID,
		Name: data.CurrentSeller.Name,
	}
}

// ToReviewRows 评论汇总 -> (review 表行, 评论里带出的卖家行)
func ToReviewRows(bundle *ReviewBundle) ([]model.Review, []model.Seller) {
	if bundle == nil {
		return nil, nil
	}

	reviews := make([]model.Review, 0, len(bundle.Reviews))
	var sellers []model.Seller
	seenSellers := make(map[int64]struct{})

	for _, r := range bundle.Reviews {
		if r.ID == 0 {
			continue
		}

		if r.Seller != nil && r.Seller.ID != nil && *r.Seller.ID != 0 {
			if _, ok := seenSellers[*r.Seller.ID]; !ok {
				seenSellers[*r.Seller.ID] = struct{}{}
				sellers = append(sellers, model.Seller{
					ID:   *r.Seller.ID,
					Name: r.Seller.Name,
				})
			}
		}

		row := model.Review{
			ID:           r.ID,
			ProductID:    r.ProductID,
			SellerID:     r.SellerID,
			CustomerID:   r.CustomerID,
			Title:        r.Title,
			Content:      r.Content,
			Rating:       r.Rating,
			ThankCount:   r.ThankCount,
			CommentCount: r.CommentCount,
			CreatedTime:  unixTime(r.CreatedAt),
			Attributes:   rawJSON(r.Attributes),
			Suggestions:  rawJSON(r.Suggestions),
			Extra: marshalJSON(map[string]interface{}{
				"product_attributes": rawOrNil(r.ProductAttributes),
				"timeline":           rawOrNil(r.Timeline),
				"vote_attributes":    rawOrNil(r.VoteAttributes),
				"delivery_rating":    rawOrNil(r.DeliveryRating),
			}),
		}
		if r.CreatedBy != nil {
			row.Purchased = r.CreatedBy.Purchased
			row.PurchasedAt = unixTime(r.CreatedBy.PurchasedAt)
		}
		reviews = append(reviews, row)
	}
	return reviews, sellers
}

// ToSellerRowFromWidget 卖家挂件 -> seller 表行（最全的来源，允许覆盖之前的写入）
func ToSellerRowFromWidget(widget *SellerWidget) *model.Seller {
	if widget == nil || widget.Data.Seller == nil || widget.Data.Seller.ID == 0 {
		return nil
	}
	s := widget.Data.Seller
	official := s.IsOfficial
	return &model.Seller{
		ID:              s.ID,
		Name:            s.Name,
		SellerType:      s.StoreLevel,
		IsOfficial:      &official,
		Rating:          s.AvgRatingPoint,
		AvgRatingPoint:  s.AvgRatingPoint,
		ReviewCount:     s.ReviewCount,
		TotalFollower:   s.TotalFollower,
		StoreID:         s.StoreID,
		StoreLevel:      s.StoreLevel,
		DaysSinceJoined: s.DaysSinceJoined,
		IconURL:         s.Icon,
		ProfileURL:      s.URL,
		BadgeImg:        rawJSON(s.BadgeImg),
		Info:            rawJSON(s.Info),
	}
}

// ==================== 工具函数 ====================

func unixTime(ts *int64) *time.Time {
	if ts == nil || *ts == 0 {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}

func rawJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}

// rawOrNil 让空 RawMessage 序列化成 null 而不是空串
func rawOrNil(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func marshalJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
