package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ==================== 全局配置 ====================

// Tiki 开放接口地址（无需鉴权）
const (
	TikiBaseURL     = "https://tiki.vn"
	TikiCategoryURL = TikiBaseURL + "/api/v2/categories"
	TikiListingURL  = TikiBaseURL + "/api/personalish/v1/blocks/listings"
	TikiProductURL  = TikiBaseURL + "/api/v2/products"
	TikiReviewURL   = TikiBaseURL + "/api/v2/reviews"
	TikiSellerURL   = "https://api.tiki.vn/product-detail/v2/widgets/seller"
)

// Config 运行配置，全部来自环境变量（支持 .env 文件）
type Config struct {
	// 数据库
	DatabaseDSN string

	// 抓取入口与翻页上限
	ParentCategoryID         int64 // 默认 8273（牛奶类目，历史入口）
	MaxPagesPerCategory      int
	MaxReviewPagesPerProduct int

	// 自限速：同一接口连续翻页之间的固定延迟 + 随机抖动
	BaseDelay   time.Duration
	JitterRange time.Duration

	// 请求超时
	RequestTimeout time.Duration
	ReviewTimeout  time.Duration

	// HTTP 服务
	ServerPort string

	// 定时任务开关
	CrawlTaskEnabled bool

	// 统计面板抽样的叶子类目数量上限
	StatsCategoryLimit int
}

// Load 读取环境变量并构建配置
// .env 不存在时静默跳过，与直接导出环境变量等价
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("加载 .env 失败（已忽略）: %v", err)
	}

	return &Config{
		DatabaseDSN:              getEnv("DATABASE_DSN", "host=localhost user=tiki password=tiki dbname=tiki port=5432 sslmode=disable"),
		ParentCategoryID:         getEnvInt64("TIKI_PARENT_CATEGORY_ID", 8273),
		MaxPagesPerCategory:      getEnvInt("TIKI_MAX_PAGES_PER_CATEGORY", 500),
		MaxReviewPagesPerProduct: getEnvInt("TIKI_MAX_REVIEW_PAGES_PER_PRODUCT", 500),
		BaseDelay:                getEnvDuration("TIKI_BASE_DELAY_SECONDS", 1.0),
		JitterRange:              getEnvDuration("TIKI_JITTER_RANGE", 0.5),
		RequestTimeout:           10 * time.Second,
		ReviewTimeout:            30 * time.Second, // 评论接口偏慢，放宽超时
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		CrawlTaskEnabled:         getEnvBool("CRAWL_TASK_ENABLED", false),
		StatsCategoryLimit:       getEnvInt("STATS_CATEGORY_LIMIT", 10),
	}
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("环境变量 %s=%q 不是合法整数，使用默认值 %d", key, os.Getenv(key), defaultValue)
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("环境变量 %s=%q 不是合法整数，使用默认值 %d", key, os.Getenv(key), defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration 以秒为单位读取浮点数延迟
func getEnvDuration(key string, defaultSeconds float64) time.Duration {
	seconds := defaultSeconds
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			seconds = f
		}
	}
	return time.Duration(seconds * float64(time.Second))
}
