package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// ==================== specifications 解析 ====================

// specFields 从商品 specifications 嵌套属性组里提取出的结构化字段
// 未命中的字段保持 nil，解析过程从不报错
type specFields struct {
	BrandCountry        *string
	Origin              *string
	ExpiryTime          *string
	CapacityRaw         *string
	ProductWeightRaw    *string
	SuitableAgeRaw      *string
	IsWarrantyApplied   *bool
	IsOrganic           *bool
	RegionalSpecialties *string
	OrganizationName    *string
	OrganizationAddress *string
}

type specGroup struct {
	Attributes []specAttr `json:"attributes"`
}

type specAttr struct {
	Code  string          `json:"code"`
	Value json.RawMessage `json:"value"`
}

// specExtractor 单个属性码的提取规则
type specExtractor func(value string, out *specFields)

// specRules 属性码 -> 提取函数的规则表。越南语启发式解析集中在这里，
// 新的属性码只需加一条规则，未登记的码一律忽略
var specRules = map[string]specExtractor{
	"brand_country": func(v string, out *specFields) { out.BrandCountry = &v },
	"origin":        func(v string, out *specFields) { out.Origin = &v },
	"expiry_time":   func(v string, out *specFields) { out.ExpiryTime = &v },
	"capacity":      func(v string, out *specFields) { out.CapacityRaw = &v },
	"product_weight": func(v string, out *specFields) {
		out.ProductWeightRaw = &v
	},
	"suitable_age_for_use": func(v string, out *specFields) {
		out.SuitableAgeRaw = &v
	},
	"is_warranty_applied": func(v string, out *specFields) {
		out.IsWarrantyApplied = parseViBool(v)
	},
	"Organic": func(v string, out *specFields) {
		b := parseViBool(v)
		yes := b != nil && *b
		out.IsOrganic = &yes
	},
	"regional_specialties": func(v string, out *specFields) {
		out.RegionalSpecialties = &v
	},
	"Organization_name": func(v string, out *specFields) {
		out.OrganizationName = &v
	},
	"Organization_address": func(v string, out *specFields) {
		out.OrganizationAddress = &v
	},
}

// parseSpecifications 线性扫描属性组，按规则表提取字段。
// 输入为空、不是合法 JSON、形状不对时全部返回零值
func parseSpecifications(raw datatypes.JSON) specFields {
	var out specFields
	groups, ok := decodeSpecGroups(raw)
	if !ok {
		return out
	}
	for _, g := range groups {
		for _, attr := range g.Attributes {
			if attr.Code == "" {
				continue
			}
			rule, ok := specRules[attr.Code]
			if !ok {
				continue
			}
			v, ok := attrString(attr.Value)
			if !ok {
				continue
			}
			rule(v, &out)
		}
	}
	return out
}

// extractThanhPhan 提取第一个 thanh_phan（成分）属性值，没有则返回 nil
func extractThanhPhan(raw datatypes.JSON) *string {
	groups, ok := decodeSpecGroups(raw)
	if !ok {
		return nil
	}
	for _, g := range groups {
		for _, attr := range g.Attributes {
			if attr.Code != "thanh_phan" {
				continue
			}
			if v, ok := attrString(attr.Value); ok && v != "" {
				return &v
			}
		}
	}
	return nil
}

func decodeSpecGroups(raw datatypes.JSON) ([]specGroup, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var groups []specGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, false
	}
	return groups, true
}

// attrString 属性值按字符串取用，非字符串值忽略
func attrString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseViBool 越南语 有/无 口径的布尔解析：có=真，không=假，其余 nil
func parseViBool(v string) *bool {
	low := strings.ToLower(strings.TrimSpace(v))
	switch low {
	case "có", "co", "yes", "true":
		t := true
		return &t
	case "không", "khong", "no", "false":
		f := false
		return &f
	}
	return nil
}

// ==================== 年龄段推导 ====================

var agePattern = regexp.MustCompile(`(\d+)(?:\s*-\s*(\d+))?\s*\+?`)

// deriveAgeFields 从年龄自由文本推导 (min_age_years, age_segment)。
// 先抽取首个数字（容忍区间 "1-3" 和后缀 "+"），min_age 取下界；
// 分桶时若给了区间上界则按上界归类（"1-3 tuổi" 归 kids_1_3 而不是 1 岁档）。
// 分桶边界按当前目录（奶粉/母婴）调的，其他父类目换规则表时在这里扩
func deriveAgeFields(suitableAgeRaw *string) (*float64, *string) {
	if suitableAgeRaw == nil || *suitableAgeRaw == "" {
		return nil, nil
	}
	text := strings.ToLower(strings.TrimSpace(*suitableAgeRaw))

	var minAge, bucketAge *float64
	if m := agePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			minAge = &v
			bucketAge = &v
		}
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				bucketAge = &v
			}
		}
	}

	var segment *string
	set := func(s string) { segment = &s }

	switch {
	case strings.Contains(text, "trẻ") || strings.Contains(text, "tre"):
		switch {
		case bucketAge != nil && *bucketAge <= 1:
			set("under_1_or_1_plus")
		case bucketAge != nil && *bucketAge <= 3:
			set("kids_1_3")
		case bucketAge != nil && *bucketAge <= 12:
			set("kids_4_12")
		default:
			set("kids_unspecified")
		}
	case strings.Contains(text, "gia đình") || strings.Contains(text, "gia dinh"):
		set("family")
	case text == "không" || text == "khong" || text == "none" || text == "all":
		set("unspecified")
	default:
		if bucketAge != nil {
			switch {
			case *bucketAge <= 1:
				set("1_plus")
			case *bucketAge <= 3:
				set("kids_1_3")
			case *bucketAge <= 12:
				set("kids_4_12")
			default:
				set("adult")
			}
		}
	}

	return minAge, segment
}
