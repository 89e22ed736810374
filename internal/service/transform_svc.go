package service

import (
	"context"
	"log"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DoLong3304/TikiWebScraping/internal/model"
	"github.com/DoLong3304/TikiWebScraping/internal/repository"
)

// ==================== 计划与结果 ====================

// TransformPlan 清洗阶段开关，默认全开
type TransformPlan struct {
	DimCategory        bool `json:"dim_category"`
	DimSeller          bool `json:"dim_seller"`
	DimProduct         bool `json:"dim_product"`
	ProductIngredients bool `json:"product_ingredients"`
	FactProductDaily   bool `json:"fact_product_daily"`
	FactSellerDaily    bool `json:"fact_seller_daily"`
	ReviewClean        bool `json:"review_clean"`
	ReviewDaily        bool `json:"review_daily"`
	ReviewSummary      bool `json:"review_summary"`
}

// FullTransformPlan 全量清洗计划
func FullTransformPlan() TransformPlan {
	return TransformPlan{
		DimCategory:        true,
		DimSeller:          true,
		DimProduct:         true,
		ProductIngredients: true,
		FactProductDaily:   true,
		FactSellerDaily:    true,
		ReviewClean:        true,
		ReviewDaily:        true,
		ReviewSummary:      true,
	}
}

// TransformStageAliases 清洗阶段别名 -> 规范名
var TransformStageAliases = map[string]string{
	"dim_category":        "dim_category",
	"category":            "dim_category",
	"dim_seller":          "dim_seller",
	"seller":              "dim_seller",
	"dim_product":         "dim_product",
	"product":             "dim_product",
	"product_ingredients": "product_ingredients",
	"ingredients":         "product_ingredients",
	"fact_product_daily":  "fact_product_daily",
	"product_daily":       "fact_product_daily",
	"fact_seller_daily":   "fact_seller_daily",
	"seller_daily":        "fact_seller_daily",
	"review_clean":        "review_clean",
	"reviews":             "review_clean",
	"review_daily":        "review_daily",
	"review_summary":      "review_summary",
}

// TransformPlanFromAliases 由阶段别名列表生成计划，空列表等于全量
func TransformPlanFromAliases(aliases []string) TransformPlan {
	if len(aliases) == 0 {
		return FullTransformPlan()
	}
	normalized := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		name, ok := TransformStageAliases[strings.TrimSpace(a)]
		if !ok {
			name = strings.TrimSpace(a)
		}
		normalized[name] = true
	}
	return TransformPlan{
		DimCategory:        normalized["dim_category"],
		DimSeller:          normalized["dim_seller"],
		DimProduct:         normalized["dim_product"],
		ProductIngredients: normalized["product_ingredients"],
		FactProductDaily:   normalized["fact_product_daily"],
		FactSellerDaily:    normalized["fact_seller_daily"],
		ReviewClean:        normalized["review_clean"],
		ReviewDaily:        normalized["review_daily"],
		ReviewSummary:      normalized["review_summary"],
	}
}

// TransformResult 每个阶段写入的行数
type TransformResult struct {
	DimCategoryRows       int `json:"dim_category_rows"`
	DimSellerRows         int `json:"dim_seller_rows"`
	DimProductRows        int `json:"dim_product_rows"`
	ProductIngredientRows int `json:"product_ingredient_rows"`
	FactProductDailyRows  int `json:"fact_product_daily_rows"`
	FactSellerDailyRows   int `json:"fact_seller_daily_rows"`
	ReviewCleanRows       int `json:"review_clean_rows"`
	ReviewDailyRows       int `json:"review_daily_rows"`
	ReviewSummaryRows     int `json:"review_summary_rows"`
}

// ==================== 服务实现 ====================

// TransformService 批式重算清洗层：全量读原始表，维表先行，事实表在后。
// 代理键已分配则沿用，否则默认取自然 ID，重复执行结果稳定
type TransformService struct {
	categoryRepo  repository.CategoryRepository
	productRepo   repository.ProductRepository
	sellerRepo    repository.SellerRepository
	reviewRepo    repository.ReviewRepository
	warehouseRepo repository.WarehouseRepository

	now func() time.Time
}

// NewTransformService 创建清洗服务
func NewTransformService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	sellerRepo repository.SellerRepository,
	reviewRepo repository.ReviewRepository,
	warehouseRepo repository.WarehouseRepository,
) *TransformService {
	return &TransformService{
		categoryRepo:  categoryRepo,
		productRepo:   productRepo,
		sellerRepo:    sellerRepo,
		reviewRepo:    reviewRepo,
		warehouseRepo: warehouseRepo,
		now:           time.Now,
	}
}

// RunWithPlan 按计划顺序执行各清洗阶段
func (s *TransformService) RunWithPlan(ctx context.Context, plan TransformPlan) (*TransformResult, error) {
	result := &TransformResult{}
	var err error

	if plan.DimCategory {
		if result.DimCategoryRows, err = s.SyncDimCategory(ctx); err != nil {
			return result, err
		}
	}
	if plan.DimSeller {
		if result.DimSellerRows, err = s.SyncDimSeller(ctx); err != nil {
			return result, err
		}
	}
	if plan.DimProduct {
		if result.DimProductRows, err = s.SyncDimProduct(ctx); err != nil {
			return result, err
		}
	}
	if plan.ProductIngredients {
		if result.ProductIngredientRows, err = s.SyncProductIngredients(ctx); err != nil {
			return result, err
		}
	}
	if plan.FactProductDaily {
		if result.FactProductDailyRows, err = s.SyncFactProductDaily(ctx); err != nil {
			return result, err
		}
	}
	if plan.FactSellerDaily {
		if result.FactSellerDailyRows, err = s.SyncFactSellerDaily(ctx); err != nil {
			return result, err
		}
	}
	if plan.ReviewClean {
		if result.ReviewCleanRows, err = s.SyncReviewClean(ctx); err != nil {
			return result, err
		}
	}
	if plan.ReviewDaily {
		if result.ReviewDailyRows, err = s.SyncFactProductReviewAggDaily(ctx); err != nil {
			return result, err
		}
	}
	if plan.ReviewSummary {
		if result.ReviewSummaryRows, err = s.SyncFactProductReviewSummary(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ---------- 类目维度 ----------

// SyncDimCategory 由 category 重建 cleaned_dim_category
func (s *TransformService) SyncDimCategory(ctx context.Context) (int, error) {
	rows, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	existing, err := s.warehouseRepo.CategorySKs(ctx)
	if err != nil {
		return 0, err
	}

	finalSK := make(map[int64]int64, len(rows))
	for _, r := range rows {
		if sk, ok := existing[r.ID]; ok {
			finalSK[r.ID] = sk
		} else {
			finalSK[r.ID] = r.ID
		}
	}

	cleaned := make([]model.DimCategory, 0, len(rows))
	for _, r := range rows {
		var parentSK *int64
		if r.ParentID != nil {
			if sk, ok := finalSK[*r.ParentID]; ok {
				parentSK = &sk
			}
		}
		cleaned = append(cleaned, model.DimCategory{
			CategorySK:       finalSK[r.ID],
			CategoryID:       r.ID,
			ParentCategoryID: r.ParentID,
			ParentCategorySK: parentSK,
			Name:             r.Name,
			Level:            r.Level,
			URLKey:           r.URLKey,
			URLPath:          r.URLPath,
			Status:           r.Status,
			IncludeInMenu:    r.IncludeInMenu,
			IsLeaf:           r.IsLeaf,
			ProductCount:     r.ProductCount,
			MetaTitle:        r.MetaTitle,
			MetaDescription:  r.MetaDescription,
			ThumbnailURL:     r.ThumbnailURL,
		})
	}

	if err := s.warehouseRepo.UpsertDimCategories(ctx, cleaned); err != nil {
		return 0, err
	}
	return len(cleaned), nil
}

// ---------- 卖家维度 ----------

// SyncDimSeller 由 seller 重建 cleaned_dim_seller
func (s *TransformService) SyncDimSeller(ctx context.Context) (int, error) {
	rows, err := s.sellerRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	existing, err := s.warehouseRepo.SellerSKs(ctx)
	if err != nil {
		return 0, err
	}

	cleaned := make([]model.DimSeller, 0, len(rows))
	for _, r := range rows {
		sk, ok := existing[r.ID]
		if !ok {
			sk = r.ID
		}
		rating := r.Rating
		if rating == nil {
			rating = r.AvgRatingPoint
		}
		cleaned = append(cleaned, model.DimSeller{
			SellerSK:        sk,
			SellerID:        r.ID,
			Name:            r.Name,
			SellerType:      r.SellerType,
			IsOfficial:      r.IsOfficial,
			StoreID:         r.StoreID,
			StoreLevel:      r.StoreLevel,
			ProfileURL:      r.ProfileURL,
			IconURL:         r.IconURL,
			DaysSinceJoined: r.DaysSinceJoined,
			TotalFollower:   r.TotalFollower,
			Rating:          rating,
			AvgRatingPoint:  r.AvgRatingPoint,
			ReviewCount:     r.ReviewCount,
		})
	}

	if err := s.warehouseRepo.UpsertDimSellers(ctx, cleaned); err != nil {
		return 0, err
	}
	return len(cleaned), nil
}

// ---------- 商品维度 ----------

// SyncDimProduct 由 product 重建 cleaned_dim_product。
// 类目还没有维表行的商品直接跳过（不算错），等下一轮类目同步后再进
func (s *TransformService) SyncDimProduct(ctx context.Context) (int, error) {
	rows, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	catSKs, err := s.warehouseRepo.CategorySKs(ctx)
	if err != nil {
		return 0, err
	}
	sellerSKs, err := s.warehouseRepo.SellerSKs(ctx)
	if err != nil {
		return 0, err
	}
	productSKs, err := s.warehouseRepo.ProductSKs(ctx)
	if err != nil {
		return 0, err
	}

	unmatchedAge := 0
	cleaned := make([]model.DimProduct, 0, len(rows))
	for _, r := range rows {
		if r.CategoryID == nil {
			continue
		}
		categorySK, ok := catSKs[*r.CategoryID]
		if !ok {
			continue
		}
		var sellerSK *int64
		if r.SellerID != nil {
			if sk, ok := sellerSKs[*r.SellerID]; ok {
				sellerSK = &sk
			}
		}
		productSK, ok := productSKs[r.ID]
		if !ok {
			productSK = r.ID
		}

		spec := parseSpecifications(r.Specifications)
		minAge, segment := deriveAgeFields(spec.SuitableAgeRaw)
		if spec.SuitableAgeRaw != nil && *spec.SuitableAgeRaw != "" && segment == nil {
			unmatchedAge++
		}

		firstSeen := r.CreatedAt
		lastUpdated := r.UpdatedAt
		cleaned = append(cleaned, model.DimProduct{
			ProductSK:            productSK,
			ProductID:            r.ID,
			CategorySK:           categorySK,
			SellerSK:             sellerSK,
			MasterID:             r.MasterID,
			SKU:                  r.SKU,
			Name:                 r.Name,
			BrandID:              r.BrandID,
			BrandName:            r.Brand,
			BrandCountry:         spec.BrandCountry,
			Origin:               spec.Origin,
			ExpiryTime:           spec.ExpiryTime,
			IsWarrantyApplied:    spec.IsWarrantyApplied,
			CapacityRaw:          spec.CapacityRaw,
			ProductWeightRaw:     spec.ProductWeightRaw,
			SuitableAgeRaw:       spec.SuitableAgeRaw,
			MinAgeYears:          minAge,
			AgeSegment:           segment,
			IsOrganic:            spec.IsOrganic,
			RegionalSpecialties:  spec.RegionalSpecialties,
			OrganizationName:     spec.OrganizationName,
			OrganizationAddress:  spec.OrganizationAddress,
			ThumbnailURL:         r.ThumbnailURL,
			TikiURL:              r.TikiURL,
			ProductFirstSeenAt:   &firstSeen,
			ProductLastUpdatedAt: &lastUpdated,
		})
	}

	if unmatchedAge > 0 {
		log.Printf("[Transform] dim_product: %d 条年龄文本未命中任何分段规则", unmatchedAge)
	}
	if len(cleaned) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertDimProducts(ctx, cleaned); err != nil {
		return 0, err
	}
	return len(cleaned), nil
}

// ---------- 成分 ----------

// SyncProductIngredients 从 specifications 抽 thanh_phan 写入成分表，
// 每个 (product_sk, source_code) 至多一行
func (s *TransformService) SyncProductIngredients(ctx context.Context) (int, error) {
	rows, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	productSKs, err := s.warehouseRepo.ProductSKs(ctx)
	if err != nil {
		return 0, err
	}
	existing, err := s.warehouseRepo.ExistingIngredientSKs(ctx)
	if err != nil {
		return 0, err
	}
	nextSK, err := s.warehouseRepo.MaxProductIngredientSK(ctx)
	if err != nil {
		return 0, err
	}
	nextSK++

	inserts := make([]model.ProductIngredient, 0)
	for _, r := range rows {
		productSK, ok := productSKs[r.ID]
		if !ok {
			continue
		}
		value := extractThanhPhan(r.Specifications)
		if value == nil {
			continue
		}
		const sourceCode = "thanh_phan"
		key := repository.IngredientKey(productSK, sourceCode)
		sk, ok := existing[key]
		if !ok {
			sk = nextSK
			existing[key] = sk
			nextSK++
		}
		inserts = append(inserts, model.ProductIngredient{
			ProductIngredientSK: sk,
			ProductSK:           productSK,
			SourceCode:          sourceCode,
			IngredientTextRaw:   *value,
		})
	}

	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertProductIngredients(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// ---------- 每日事实 ----------

// SyncFactProductDaily 把当前 product 状态按今天的 date_sk 快照进事实表
func (s *TransformService) SyncFactProductDaily(ctx context.Context) (int, error) {
	rows, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	dims, err := s.warehouseRepo.ListDimProducts(ctx)
	if err != nil {
		return 0, err
	}
	dimByID := make(map[int64]model.DimProduct, len(dims))
	for _, d := range dims {
		dimByID[d.ProductID] = d
	}

	snapshot := s.now().UTC()
	if err := s.ensureDimDates(ctx, []time.Time{snapshot}); err != nil {
		return 0, err
	}
	sk := dateSK(snapshot)

	inserts := make([]model.FactProductDaily, 0, len(rows))
	for _, r := range rows {
		dim, ok := dimByID[r.ID]
		if !ok {
			continue
		}
		inserts = append(inserts, model.FactProductDaily{
			ProductDailySK:                dailySK(dim.ProductSK, sk),
			ProductSK:                     dim.ProductSK,
			DateSK:                        sk,
			CategorySK:                    dim.CategorySK,
			SellerSK:                      dim.SellerSK,
			Price:                         r.Price,
			ListPrice:                     r.ListPrice,
			OriginalPrice:                 r.OriginalPrice,
			Discount:                      r.Discount,
			DiscountRate:                  r.DiscountRate,
			RatingAverage:                 r.RatingAverage,
			ReviewCountCumulative:         r.ReviewCount,
			AllTimeQuantitySoldCumulative: r.AllTimeQuantitySold,
			PriceVsListPercent:            priceVsListPercent(r.Price, r.ListPrice),
			SnapshotAt:                    snapshot,
		})
	}

	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertFactProductDaily(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// SyncFactSellerDaily 卖家当日快照
func (s *TransformService) SyncFactSellerDaily(ctx context.Context) (int, error) {
	rows, err := s.sellerRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sellerSKs, err := s.warehouseRepo.SellerSKs(ctx)
	if err != nil {
		return 0, err
	}

	snapshot := s.now().UTC()
	if err := s.ensureDimDates(ctx, []time.Time{snapshot}); err != nil {
		return 0, err
	}
	sk := dateSK(snapshot)

	inserts := make([]model.FactSellerDaily, 0, len(rows))
	for _, r := range rows {
		sellerSK, ok := sellerSKs[r.ID]
		if !ok {
			continue
		}
		rating := r.Rating
		if rating == nil {
			rating = r.AvgRatingPoint
		}
		inserts = append(inserts, model.FactSellerDaily{
			SellerDailySK:           dailySK(sellerSK, sk),
			SellerSK:                sellerSK,
			DateSK:                  sk,
			Rating:                  rating,
			AvgRatingPoint:          r.AvgRatingPoint,
			ReviewCountCumulative:   r.ReviewCount,
			TotalFollowerCumulative: r.TotalFollower,
			DaysSinceJoined:         r.DaysSinceJoined,
			DaysActive:              r.DaysSinceJoined,
			SnapshotAt:              snapshot,
		})
	}

	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertFactSellerDaily(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// ---------- 评论清洗 ----------

// SyncReviewClean 原始评论 -> cleaned_review_clean。
// 商品没有维表行的评论跳过；天数优先取时间线差值，没有再回落到文案正则
func (s *TransformService) SyncReviewClean(ctx context.Context) (int, error) {
	rows, err := s.reviewRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	productSKs, err := s.warehouseRepo.ProductSKs(ctx)
	if err != nil {
		return 0, err
	}
	sellerSKs, err := s.warehouseRepo.SellerSKs(ctx)
	if err != nil {
		return 0, err
	}
	reviewSKs, err := s.warehouseRepo.ReviewCleanSKs(ctx)
	if err != nil {
		return 0, err
	}

	loadedAt := s.now().UTC()
	var dateCandidates []time.Time
	inserts := make([]model.ReviewClean, 0, len(rows))
	for _, r := range rows {
		if r.Rating == nil {
			continue
		}
		productSK, ok := productSKs[r.ProductID]
		if !ok {
			continue
		}
		var sellerSK *int64
		if r.SellerID != nil {
			if sk, ok := sellerSKs[*r.SellerID]; ok {
				sellerSK = &sk
			}
		}

		if r.CreatedTime != nil {
			dateCandidates = append(dateCandidates, *r.CreatedTime)
		}
		if r.PurchasedAt != nil {
			dateCandidates = append(dateCandidates, *r.PurchasedAt)
		}

		var content *string
		var contentLength, wordCount *int
		if r.Content != "" {
			c := r.Content
			content = &c
			cl := utf8.RuneCountInString(c)
			wc := len(strings.Fields(c))
			contentLength = &cl
			wordCount = &wc
		}

		hasImages, imageCount := parseImageFields(r.Attributes)

		var daysUsed *int
		if r.CreatedTime != nil && r.PurchasedAt != nil {
			days := int(r.CreatedTime.Sub(*r.PurchasedAt).Hours() / 24)
			if days >= 0 {
				daysUsed = &days
			}
		}

		extra := parseReviewExtra(r.Extra)
		if daysUsed == nil && extra.DaysUsedAtReview != nil {
			days := int(*extra.DaysUsedAtReview)
			daysUsed = &days
		}
		if extra.DeliveryDate != nil {
			dateCandidates = append(dateCandidates, *extra.DeliveryDate)
		}

		sk, ok := reviewSKs[r.ID]
		if !ok {
			sk = r.ID
		}
		inserts = append(inserts, model.ReviewClean{
			ReviewSK:               sk,
			ReviewID:               r.ID,
			ProductSK:              productSK,
			SellerSK:               sellerSK,
			CustomerIDHash:         hashCustomerID(r.CustomerID),
			Rating:                 *r.Rating,
			CreatedAt:              r.CreatedTime,
			Purchased:              r.Purchased,
			PurchasedAt:            r.PurchasedAt,
			ThankCount:             r.ThankCount,
			CommentCount:           r.CommentCount,
			Title:                  r.Title,
			Content:                content,
			ContentLength:          contentLength,
			WordCount:              wordCount,
			HasImages:              hasImages,
			ImageCount:             imageCount,
			DaysUsedAtReview:       daysUsed,
			DeliveryDate:           extra.DeliveryDate,
			DeliveryTimeHours:      extra.DeliveryTimeHours,
			DeliveryTimeRating:     extra.DeliveryTimeRating,
			ShipperAttitudeRating:  extra.ShipperAttitudeRating,
			DeliveryTimeSlotRating: extra.DeliveryTimeSlotRating,
			PackingQualityRating:   extra.PackingQualityRating,
			LoadedAt:               loadedAt,
		})
	}

	if err := s.ensureDimDates(ctx, dateCandidates); err != nil {
		return 0, err
	}
	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertReviewClean(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// ---------- 评论聚合 ----------

type reviewAggAcc struct {
	count        int
	sumRating    int
	sumRatingSq  int
	ratingCounts [6]int // 下标 1..5
	thankSum     int
	commentSum   int
	purchased    int
	nonPurchased int
}

func (a *reviewAggAcc) add(rating, thank, comment int, purchased bool) {
	a.count++
	a.sumRating += rating
	a.sumRatingSq += rating * rating
	if rating >= 1 && rating <= 5 {
		a.ratingCounts[rating]++
	}
	a.thankSum += thank
	a.commentSum += comment
	if purchased {
		a.purchased++
	} else {
		a.nonPurchased++
	}
}

// SyncFactProductReviewAggDaily 按 (商品, 评论日期) 聚合清洗后的评论。
// 标准差按总体方差 E[X²]−E[X]² 计算，浮点噪声导致的负值钳为 0 再开方
func (s *TransformService) SyncFactProductReviewAggDaily(ctx context.Context) (int, error) {
	rows, err := s.warehouseRepo.ListReviewClean(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	type aggKey struct {
		productSK int64
		dateSK    int64
	}
	aggregates := make(map[aggKey]*reviewAggAcc)
	var datesNeeded []time.Time
	for _, r := range rows {
		if r.CreatedAt == nil {
			continue
		}
		datesNeeded = append(datesNeeded, *r.CreatedAt)
		key := aggKey{productSK: r.ProductSK, dateSK: dateSK(*r.CreatedAt)}
		acc, ok := aggregates[key]
		if !ok {
			acc = &reviewAggAcc{}
			aggregates[key] = acc
		}
		acc.add(r.Rating, intOrZero(r.ThankCount), intOrZero(r.CommentCount), r.Purchased)
	}

	if err := s.ensureDimDates(ctx, datesNeeded); err != nil {
		return 0, err
	}

	now := s.now().UTC()
	inserts := make([]model.FactProductReviewAggDaily, 0, len(aggregates))
	for key, acc := range aggregates {
		if acc.count == 0 {
			continue
		}
		avg := float64(acc.sumRating) / float64(acc.count)
		variance := float64(acc.sumRatingSq)/float64(acc.count) - avg*avg
		if variance < 0 {
			variance = 0
		}
		inserts = append(inserts, model.FactProductReviewAggDaily{
			ProductReviewAggDailySK: dailySK(key.productSK, key.dateSK),
			ProductSK:               key.productSK,
			DateSK:                  key.dateSK,
			ReviewCount:             acc.count,
			AvgRating:               round3(avg),
			RatingStddev:            round4(math.Sqrt(variance)),
			Rating1Count:            acc.ratingCounts[1],
			Rating2Count:            acc.ratingCounts[2],
			Rating3Count:            acc.ratingCounts[3],
			Rating4Count:            acc.ratingCounts[4],
			Rating5Count:            acc.ratingCounts[5],
			ThankCountSum:           acc.thankSum,
			CommentCountSum:         acc.commentSum,
			PurchasedReviewCount:    acc.purchased,
			NonPurchasedReviewCount: acc.nonPurchased,
			LastAggregatedAt:        now,
		})
	}

	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertFactProductReviewAggDaily(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// SyncFactProductReviewSummary 按商品做全量评论汇总（无日期维度）
func (s *TransformService) SyncFactProductReviewSummary(ctx context.Context) (int, error) {
	rows, err := s.warehouseRepo.ListReviewClean(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	aggregates := make(map[int64]*reviewAggAcc)
	for _, r := range rows {
		acc, ok := aggregates[r.ProductSK]
		if !ok {
			acc = &reviewAggAcc{}
			aggregates[r.ProductSK] = acc
		}
		acc.add(r.Rating, 0, 0, r.Purchased)
	}

	now := s.now().UTC()
	inserts := make([]model.FactProductReviewSummary, 0, len(aggregates))
	for productSK, acc := range aggregates {
		if acc.count == 0 {
			continue
		}
		pct := func(star int) *float64 {
			v := round2(float64(acc.ratingCounts[star]) * 100 / float64(acc.count))
			return &v
		}
		inserts = append(inserts, model.FactProductReviewSummary{
			ProductReviewSummarySK: productSK,
			ProductSK:              productSK,
			RatingAverage:          round3(float64(acc.sumRating) / float64(acc.count)),
			ReviewsCount:           acc.count,
			Star1Count:             acc.ratingCounts[1],
			Star2Count:             acc.ratingCounts[2],
			Star3Count:             acc.ratingCounts[3],
			Star4Count:             acc.ratingCounts[4],
			Star5Count:             acc.ratingCounts[5],
			Star1Percent:           pct(1),
			Star2Percent:           pct(2),
			Star3Percent:           pct(3),
			Star4Percent:           pct(4),
			Star5Percent:           pct(5),
			SnapshotAt:             now,
		})
	}

	if len(inserts) == 0 {
		return 0, nil
	}
	if err := s.warehouseRepo.UpsertFactProductReviewSummary(ctx, inserts); err != nil {
		return 0, err
	}
	return len(inserts), nil
}

// ---------- 键与日期工具 ----------

// dateSK 日历日期的整数编码 YYYYMMDD
func dateSK(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// dailySK 每日事实代理键：实体代理键 × 1e11 + date_sk。
// date_sk 固定 8 位，乘数取 1e11 保证两段永不重叠
func dailySK(entitySK, dateSK int64) int64 {
	return entitySK*100_000_000_000 + dateSK
}

func buildDimDate(t time.Time) model.DimDate {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO：周日=7
	}
	return model.DimDate{
		DateSK:    dateSK(t),
		Date:      t.Format("2006-01-02"),
		Year:      t.Year(),
		Quarter:   (int(t.Month())-1)/3 + 1,
		Month:     int(t.Month()),
		Day:       t.Day(),
		DayOfWeek: weekday,
		IsWeekend: weekday == 6 || weekday == 7,
	}
}

// ensureDimDates 为所有被事实表引用到的日期懒加载维表行，只增不删
func (s *TransformService) ensureDimDates(ctx context.Context, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	unique := make(map[string]time.Time, len(dates))
	for _, d := range dates {
		unique[d.Format("2006-01-02")] = d
	}
	existing, err := s.warehouseRepo.ExistingDimDates(ctx)
	if err != nil {
		return err
	}
	inserts := make([]model.DimDate, 0)
	for key, d := range unique {
		if existing[key] {
			continue
		}
		inserts = append(inserts, buildDimDate(d))
	}
	return s.warehouseRepo.InsertDimDates(ctx, inserts)
}

// priceVsListPercent (牌价-现价)/牌价×100，保留两位；牌价缺失或为零返回 nil
func priceVsListPercent(price, listPrice *float64) *float64 {
	if price == nil || listPrice == nil || *listPrice == 0 {
		return nil
	}
	v := round2((*listPrice - *price) / *listPrice * 100)
	return &v
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
