package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ==================== 评论 extra 解析 ====================

// reviewExtraFields 从评论 extra（配送时间线 + 配送问卷）解析出的字段
type reviewExtraFields struct {
	DeliveryDate           *time.Time
	DeliveryTimeHours      *float64
	DeliveryTimeRating     *string
	ShipperAttitudeRating  *string
	DeliveryTimeSlotRating *string
	PackingQualityRating   *string
	DaysUsedAtReview       *float64
}

type reviewExtra struct {
	Timeline       *reviewTimeline    `json:"timeline"`
	DeliveryRating []deliveryQuestion `json:"delivery_rating"`
}

type reviewTimeline struct {
	DeliveryDate      string `json:"delivery_date"`
	ReviewCreatedDate string `json:"review_created_date"`
	Content           string `json:"content"`
}

type deliveryQuestion struct {
	Question string `json:"question"`
	Option   string `json:"option"`
}

// usedDurationPattern 从"đã dùng X giờ/ngày"之类的文案里抽使用时长
var usedDurationPattern = regexp.MustCompile(`(\d+[.,]?\d*)\s*(giờ|ngày)`)

// parseReviewExtra 解析评论 extra JSON。任何形状问题都静默返回零值，
// 配送问卷按问题文案的越南语子串归到固定的四个评分槽位
func parseReviewExtra(raw datatypes.JSON) reviewExtraFields {
	var out reviewExtraFields
	if len(raw) == 0 {
		return out
	}
	var data reviewExtra
	if err := json.Unmarshal(raw, &data); err != nil {
		return out
	}

	if tl := data.Timeline; tl != nil {
		deliveryDt := parseFlexibleTime(tl.DeliveryDate)
		reviewDt := parseFlexibleTime(tl.ReviewCreatedDate)
		if deliveryDt != nil {
			out.DeliveryDate = deliveryDt
		}
		if deliveryDt != nil && reviewDt != nil {
			hours := reviewDt.Sub(*deliveryDt).Hours()
			if hours >= 0 {
				rounded := round2(hours)
				out.DeliveryTimeHours = &rounded
			}
		}
		if tl.Content != "" {
			if m := usedDurationPattern.FindStringSubmatch(strings.ToLower(tl.Content)); m != nil {
				value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
				if err == nil {
					days := value
					if strings.Contains(m[2], "giờ") {
						days = value / 24
					}
					rounded := round2(days)
					out.DaysUsedAtReview = &rounded
				}
			}
		}
	}

	for _, item := range data.DeliveryRating {
		if item.Option == "" {
			continue
		}
		question := strings.ToLower(strings.TrimSpace(item.Question))
		option := item.Option
		switch {
		case strings.Contains(question, "thời gian giao hàng"):
			out.DeliveryTimeRating = &option
		case strings.Contains(question, "thái độ"):
			out.ShipperAttitudeRating = &option
		case strings.Contains(question, "giờ giao hàng"):
			out.DeliveryTimeSlotRating = &option
		case strings.Contains(question, "đóng gói"):
			out.PackingQualityRating = &option
		}
	}

	return out
}

// parseImageFields 从评论 attributes 的 images/photos 列表得到图片标记
func parseImageFields(raw datatypes.JSON) (hasImages *bool, imageCount *int) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, nil
	}
	list := attrs["images"]
	if len(list) == 0 {
		list = attrs["photos"]
	}
	if len(list) == 0 {
		return nil, nil
	}
	var images []json.RawMessage
	if err := json.Unmarshal(list, &images); err != nil {
		return nil, nil
	}
	count := len(images)
	has := count > 0
	return &has, &count
}

// hashCustomerID 客户 ID 单向哈希（SHA-256 hex），清洗层不落原始 ID
func hashCustomerID(customerID *int64) *string {
	if customerID == nil {
		return nil
	}
	sum := sha256.Sum256([]byte(strconv.FormatInt(*customerID, 10)))
	hexed := hex.EncodeToString(sum[:])
	return &hexed
}

// parseFlexibleTime 宽容解析接口里的几种时间写法，解析不了返回 nil
func parseFlexibleTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
