package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/DoLong3304/TikiWebScraping/internal/config"
	"github.com/DoLong3304/TikiWebScraping/internal/controller"
	"github.com/DoLong3304/TikiWebScraping/internal/model"
	"github.com/DoLong3304/TikiWebScraping/internal/repository"
	"github.com/DoLong3304/TikiWebScraping/internal/router"
	"github.com/DoLong3304/TikiWebScraping/internal/service"
	"github.com/DoLong3304/TikiWebScraping/internal/task"
	"github.com/DoLong3304/TikiWebScraping/internal/tiki"
	"github.com/DoLong3304/TikiWebScraping/pkg/database"
)

func main() {
	root := &cobra.Command{
		Use:   "tiki",
		Short: "Tiki 目录抓取与清洗流水线",
	}
	root.AddCommand(newCrawlCmd(), newTransformCmd(), newServeCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config *config.Config
	DB     *gorm.DB
	Tiki   *tiki.Client

	CategoryRepo  repository.CategoryRepository
	ProductRepo   repository.ProductRepository
	SellerRepo    repository.SellerRepository
	ReviewRepo    repository.ReviewRepository
	WarehouseRepo repository.WarehouseRepository

	Extract   *service.ExtractService
	Transform *service.TransformService
	Pipeline  *service.PipelineService
	Stats     *service.StatsService
}

// initDependencies 建库连接并逐层装配服务
func initDependencies() *Dependencies {
	cfg := config.Load()

	db := database.MustOpen(cfg.DatabaseDSN,
		&model.Category{},
		&model.Product{},
		&model.Seller{},
		&model.Review{},
		&model.DimCategory{},
		&model.DimSeller{},
		&model.DimProduct{},
		&model.ProductIngredient{},
		&model.DimDate{},
		&model.FactProductDaily{},
		&model.FactSellerDaily{},
		&model.ReviewClean{},
		&model.FactProductReviewAggDaily{},
		&model.FactProductReviewSummary{},
	)

	client := tiki.NewClient(tiki.Options{
		BaseDelay:                cfg.BaseDelay,
		JitterRange:              cfg.JitterRange,
		MaxPagesPerCategory:      cfg.MaxPagesPerCategory,
		MaxReviewPagesPerProduct: cfg.MaxReviewPagesPerProduct,
		Timeout:                  cfg.RequestTimeout,
		ReviewTimeout:            cfg.ReviewTimeout,
	})

	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)

	extract := service.NewExtractService(client, categoryRepo, productRepo, sellerRepo, reviewRepo)
	transform := service.NewTransformService(categoryRepo, productRepo, sellerRepo, reviewRepo, warehouseRepo)
	pipeline := service.NewPipelineService(extract, transform, productRepo)
	stats := service.NewStatsService(client, db, categoryRepo, productRepo, sellerRepo, reviewRepo, cfg.StatsCategoryLimit)

	return &Dependencies{
		Config:        cfg,
		DB:            db,
		Tiki:          client,
		CategoryRepo:  categoryRepo,
		ProductRepo:   productRepo,
		SellerRepo:    sellerRepo,
		ReviewRepo:    reviewRepo,
		WarehouseRepo: warehouseRepo,
		Extract:       extract,
		Transform:     transform,
		Pipeline:      pipeline,
		Stats:         stats,
	}
}

// ==================== crawl 子命令 ====================

func newCrawlCmd() *cobra.Command {
	var (
		stages          []string
		mode            string
		productIDs      string
		startIndex      int
		parentCategory  int64
		runTransform    bool
		transformStages []string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "按计划执行抓取段，可选接清洗",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := initDependencies()

			plan, err := planFromFlags(stages, mode, productIDs, startIndex, parentCategory, deps.Config.ParentCategoryID)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := deps.Pipeline.ExecutePlan(ctx, plan)
			if err != nil {
				return err
			}
			if n := result.IssueCount(); n > 0 {
				log.Printf("运行结束，共记录 %d 个问题", n)
			}
			if len(result.FailedReviewIDs) > 0 {
				log.Printf("评论抓取失败的商品: %v", result.FailedReviewIDs)
			}
			if len(result.FailedProductIDs) > 0 {
				log.Printf("详情补全失败的商品: %v", result.FailedProductIDs)
			}

			if runTransform {
				log.Println("按要求执行清洗...")
				return runTransformStages(ctx, deps, transformStages)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&stages, "data", []string{"categories_listings", "products", "reviews", "sellers"}, "要跑的抓取段")
	cmd.Flags().StringVar(&mode, "mode", service.ModeScrape, "scrape 抓新 | update 只刷已有")
	cmd.Flags().StringVar(&productIDs, "product-ids", "", "逗号分隔的商品 ID，指定则跳过发现")
	cmd.Flags().IntVar(&startIndex, "start-index", 0, "评论段续抓起点")
	cmd.Flags().Int64Var(&parentCategory, "parent-category", 0, "根类目 ID（默认取配置）")
	cmd.Flags().BoolVar(&runTransform, "run-transform", false, "抓完接清洗")
	cmd.Flags().StringSliceVar(&transformStages, "transform-stages", nil, "只跑指定清洗阶段（默认全量）")
	return cmd
}

// planFromFlags 把 CLI 旗标折算成运行计划，段别名与单复数都认
func planFromFlags(stages []string, mode, productIDs string, startIndex int, parentCategory, defaultParent int64) (service.RunPlan, error) {
	aliases := map[string]string{
		"categories": "categories_listings",
		"listings":   "categories_listings",
		"product":    "products",
		"review":     "reviews",
		"seller":     "sellers",
	}
	selected := make(map[string]bool, len(stages))
	for _, s := range stages {
		name := strings.TrimSpace(s)
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		selected[name] = true
	}

	var override []int64
	if productIDs != "" {
		for _, part := range strings.Split(productIDs, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return service.RunPlan{}, errors.New("product-ids 必须是逗号分隔的整数")
			}
			override = append(override, id)
		}
	}

	if parentCategory == 0 {
		parentCategory = defaultParent
	}
	return service.RunPlan{
		CategoriesListings: selected["categories_listings"],
		Products:           selected["products"],
		Reviews:            selected["reviews"],
		Sellers:            selected["sellers"],
		Mode:               mode,
		ProductIDsOverride: override,
		StartIndexReviews:  startIndex,
		ParentCategoryID:   parentCategory,
	}, nil
}

// ==================== transform 子命令 ====================

func newTransformCmd() *cobra.Command {
	var stages []string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "只跑清洗（默认全量，可指定阶段子集）",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := initDependencies()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTransformStages(ctx, deps, stages)
		},
	}
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "只跑指定清洗阶段（默认全量）")
	return cmd
}

func runTransformStages(ctx context.Context, deps *Dependencies, stages []string) error {
	plan := service.TransformPlanFromAliases(stages)
	result, err := deps.Pipeline.RunTransform(ctx, plan)
	if err != nil {
		return err
	}
	log.Printf("清洗完成: dim_category=%d, dim_seller=%d, dim_product=%d, ingredients=%d, product_daily=%d, seller_daily=%d, review_clean=%d, review_daily=%d, review_summary=%d",
		result.DimCategoryRows,
		result.DimSellerRows,
		result.DimProductRows,
		result.ProductIngredientRows,
		result.FactProductDailyRows,
		result.FactSellerDailyRows,
		result.ReviewCleanRows,
		result.ReviewDailyRows,
		result.ReviewSummaryRows)
	return nil
}

// ==================== serve 子命令 ====================

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 控制面和定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := initDependencies()

			var crawlTask *task.CrawlTask
			if deps.Config.CrawlTaskEnabled {
				crawlTask = task.NewCrawlTask(deps.Pipeline, deps.Config.ParentCategoryID)
				crawlTask.Start()
			} else {
				log.Println("[Main] 定时抓取任务未启用 (CRAWL_TASK_ENABLED=false)")
			}

			r := gin.Default()
			router.InitRoutes(r,
				controller.NewPipelineController(deps.Pipeline, deps.Config.ParentCategoryID),
				controller.NewTransformController(deps.Pipeline),
				controller.NewStatsController(deps.Stats, deps.Config.ParentCategoryID),
			)

			srv := &http.Server{
				Addr:    ":" + deps.Config.ServerPort,
				Handler: r,
			}
			go func() {
				log.Printf("[Main] HTTP 服务启动，端口 %s", deps.Config.ServerPort)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("[Main] HTTP 服务异常退出: %v", err)
				}
			}()

			// 优雅退出：先停任务再停服务
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit
			log.Println("[Main] 收到退出信号，开始优雅关闭...")

			if crawlTask != nil {
				crawlTask.Stop()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("[Main] HTTP 服务关闭超时: %v", err)
			}
			log.Println("[Main] 已退出")
			return nil
		},
	}
}
