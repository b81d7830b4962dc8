package service

import (
	"context"
	"fmt"

	"pointshop/internal/infrastructure/cache"
	"pointshop/internal/model"
	"pointshop/internal/repository"
	"pointshop/pkg/pagination"

	"gorm.io/gorm"
)

type ProductService struct {
	productRepo  *repository.ProductRepository
	productCache *cache.ProductCache
}

func NewProductService(db *gorm.DB, productCache *cache.ProductCache) *ProductService {
	return &ProductService{
		productRepo:  repository.NewProductRepository(db),
		productCache: productCache,
	}
}

type CreateProductRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Price int64  `json:"price" binding:"required,min=1,max=10000000"`
	Stock int64  `json:"stock" binding:"omitempty,min=0,max=999999"`
}

// ProductDetail 商品视图，is_sold_out 由库存投影而来
type ProductDetail struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int64  `json:"stock"`
	IsSoldOut bool   `json:"is_sold_out"`
}

func toDetail(p *model.Product) *ProductDetail {
	return &ProductDetail{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		IsSoldOut: p.IsSoldOut(),
	}
}

// Create 管理端录入商品
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (int64, error) {
	product := &model.Product{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return 0, fmt.Errorf("创建商品失败: %w", err)
	}
	return product.ID, nil
}

// List 商品目录分页
func (s *ProductService) List(ctx context.Context, q *pagination.OffsetQuery) ([]*ProductDetail, pagination.OffsetMeta, error) {
	q.Normalize()

	products, total, err := s.productRepo.List(ctx, q.Offset(), q.Limit)
	if err != nil {
		return nil, pagination.OffsetMeta{}, fmt.Errorf("查询商品列表失败: %w", err)
	}

	details := make([]*ProductDetail, 0, len(products))
	for _, p := range products {
		details = append(details, toDetail(p))
	}
	return details, pagination.NewOffsetMeta(q.Page, q.Limit, total), nil
}

// Get 商品详情，cache-aside 读缓存
func (s *ProductService) Get(ctx context.Context, productID int64) (*ProductDetail, error) {
	var cached ProductDetail
	if s.productCache.Get(ctx, productID, &cached) {
		return &cached, nil
	}

	product, err := s.productRepo.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}

	detail := toDetail(product)
	s.productCache.Set(ctx, productID, detail)
	return detail, nil
}
