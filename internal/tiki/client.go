package tiki

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DoLong3304/TikiWebScraping/internal/config"
)

// ==================== 接口定义 ====================

// Fetcher Tiki 数据源抓取接口，抓取引擎通过它访问远端，方便测试替换
type Fetcher interface {
	FetchCategories(ctx context.Context, parentID int64) ([]CategoryNode, error)
	FetchListingPage(ctx context.Context, categoryID int64, page int) (*ListingPage, error)
	FetchListings(ctx context.Context, categoryID int64) ([]ListingItem, error)
	FetchProduct(ctx context.Context, productID int64) (*ProductDetail, error)
	FetchReviews(ctx context.Context, productID int64) (*ReviewBundle, error)
	FetchSeller(ctx context.Context, sellerID int64) (*SellerWidget, error)
}

// Options 客户端参数
type Options struct {
	// 同一接口连续翻页之间的固定延迟 + 随机抖动（自限速，不是重试退避）
	BaseDelay   time.Duration
	JitterRange time.Duration

	MaxPagesPerCategory      int
	MaxReviewPagesPerProduct int

	Timeout       time.Duration
	ReviewTimeout time.Duration // 评论接口偏慢，单独放宽
}

// ==================== 客户端实现 ====================

type Client struct {
	http       *resty.Client
	reviewHTTP *resty.Client
	opts       Options
}

// NewClient 创建 Tiki API 客户端
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ReviewTimeout == 0 {
		opts.ReviewTimeout = 30 * time.Second
	}
	if opts.MaxPagesPerCategory == 0 {
		opts.MaxPagesPerCategory = 500
	}
	if opts.MaxReviewPagesPerProduct == 0 {
		opts.MaxReviewPagesPerProduct = 500
	}

	return &Client{
		http:       resty.New().SetTimeout(opts.Timeout),
		reviewHTTP: resty.New().SetTimeout(opts.ReviewTimeout),
		opts:       opts,
	}
}

// FetchCategories 拉取类目树（include=children）
func (c *Client) FetchCategories(ctx context.Context, parentID int64) ([]CategoryNode, error) {
	var out categoryResponse
	if err := c.get(ctx, c.http, config.TikiCategoryURL, map[string]string{
		"include":   "children",
		"parent_id": strconv.FormatInt(parentID, 10),
	}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FetchListingPage 拉取单页 listing
func (c *Client) FetchListingPage(ctx context.Context, categoryID int64, page int) (*ListingPage, error) {
	var out ListingPage
	if err := c.get(ctx, c.http, config.TikiListingURL, map[string]string{
		"category": strconv.FormatInt(categoryID, 10),
		"page":     strconv.Itoa(page),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchListings 翻页拉取某类目的全部 listing
// 终止条件：空页，或 current_page >= last_page，或达到页数上限
func (c *Client) FetchListings(ctx context.Context, categoryID int64) ([]ListingItem, error) {
	var items []ListingItem
	for page := 1; page <= c.opts.MaxPagesPerCategory; page++ {
		data, err := c.FetchListingPage(ctx, categoryID, page)
		if err != nil {
			return nil, err
		}
		if len(data.Data) == 0 {
			break
		}
		items = append(items, data.Data...)

		currentPage, lastPage := page, page
		if data.Paging != nil {
			currentPage, lastPage = data.Paging.CurrentPage, data.Paging.LastPage
		}
		if currentPage >= lastPage {
			break
		}
		c.throttle()
	}
	return items, nil
}

// FetchProduct 拉取商品详情
func (c *Client) FetchProduct(ctx context.Context, productID int64) (*ProductDetail, error) {
	var out ProductDetail
	url := fmt.Sprintf("%s/%d", config.TikiProductURL, productID)
	if err := c.get(ctx, c.http, url, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchReviews 翻页拉取某商品的全部评论，首页截留总体评分块
// 翻页途中超时不视为失败，返回已拉到的部分
func (c *Client) FetchReviews(ctx context.Context, productID int64) (*ReviewBundle, error) {
	bundle := &ReviewBundle{}
	for page := 1; page <= c.opts.MaxReviewPagesPerProduct; page++ {
		var data ReviewPage
		err := c.get(ctx, c.reviewHTTP, config.TikiReviewURL, map[string]string{
			"product_id": strconv.FormatInt(productID, 10),
			"page":       strconv.Itoa(page),
		}, &data)
		if err != nil {
			if IsTimeout(err) {
				return bundle, nil
			}
			return nil, err
		}
		if page == 1 {
			bundle.Summary = ReviewSummary{
				RatingAverage: data.RatingAverage,
				ReviewsCount:  data.ReviewsCount,
				Stars:         data.Stars,
			}
		}
		if len(data.Data) == 0 {
			break
		}
		bundle.Reviews = append(bundle.Reviews, data.Data...)

		currentPage, lastPage := page, page
		if data.Paging != nil {
			currentPage, lastPage = data.Paging.CurrentPage, data.Paging.LastPage
		}
		if currentPage >= lastPage {
			break
		}
		c.throttle()
	}
	return bundle, nil
}

// FetchSeller 拉取卖家挂件
func (c *Client) FetchSeller(ctx context.Context, sellerID int64) (*SellerWidget, error) {
	var out SellerWidget
	if err := c.get(ctx, c.http, config.TikiSellerURL, map[string]string{
		"seller_id": strconv.FormatInt(sellerID, 10),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== 内部方法 ====================

func (c *Client) get(ctx context.Context, client *resty.Client, url string, params map[string]string, result interface{}) error {
	req := client.R().SetContext(ctx).SetResult(result)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// throttle 翻页间隔：固定延迟 + [0, JitterRange) 随机抖动
func (c *Client) throttle() {
	delay := c.opts.BaseDelay
	if c.opts.JitterRange > 0 {
		delay += time.Duration(rand.Int63n(int64(c.opts.JitterRange)))
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

// IsTimeout 判断错误是否为超时，抓取引擎据此区分失败原因
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
}
